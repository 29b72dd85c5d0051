package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

const (
	titleLoginFailed     = "Login Failed"
	titleSignupFailed    = "Signup Failed"
	titleGoogleSignIn    = "Google Sign-In Failed"
	titleSessionRestore  = "Session Restore Failed"
	genericErrorTitle    = "Something Went Wrong"
	genericErrorDetails  = "An unexpected error occurred. Please try again."
	invalidRequestTitle  = "Invalid Request"
	unauthenticatedTitle = "Authentication Required"
)

type apiError struct {
	status int
	ErrorResponse
}

func newAPIError(status int, title, details, code string) apiError {
	return apiError{status: status, ErrorResponse: ErrorResponse{Error: title, Details: details, Code: code}}
}

var authStatus = map[string]int{
	identity.CodeInvalidCredential: http.StatusUnauthorized,
	identity.CodeUserNotFound:      http.StatusUnauthorized,
	identity.CodeWrongPassword:     http.StatusUnauthorized,
	identity.CodeUserDisabled:      http.StatusForbidden,
	identity.CodeFederatedRequired: http.StatusForbidden,
	identity.CodeEmailAlreadyInUse: http.StatusConflict,
	identity.CodeWeakPassword:      http.StatusBadRequest,
	identity.CodeInvalidEmail:      http.StatusBadRequest,
	identity.CodeTooManyRequests:   http.StatusTooManyRequests,
	identity.CodeInternalError:     http.StatusServiceUnavailable,
}

// classify maps a service error to its HTTP answer. authTitle replaces the
// title of identity provider errors, which depends on the operation.
func classify(err error, authTitle string) apiError {
	var ae *identity.AuthError
	if errors.As(err, &ae) {
		status, ok := authStatus[ae.Code]
		if !ok {
			status = http.StatusServiceUnavailable
		}
		if authTitle == "" {
			authTitle = "Authentication Failed"
		}
		return newAPIError(status, authTitle, ae.Message, ae.Code)
	}

	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		return newAPIError(http.StatusUnauthorized, unauthenticatedTitle, "Please sign in to continue.", "unauthenticated")
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrSessionNotFound):
		return newAPIError(http.StatusUnauthorized, "Session Expired", "Your session has ended. Please sign in again.", "session-expired")
	case errors.Is(err, core.ErrInsufficientCredits):
		return newAPIError(http.StatusPaymentRequired, "Insufficient Credits", "You do not have enough credits for this generation.", "insufficient-credits")
	case errors.Is(err, core.ErrLedgerWrite):
		return newAPIError(http.StatusServiceUnavailable, "Credits Unavailable", "We could not update your credits. Please try again.", "ledger-write-failed")
	case errors.Is(err, core.ErrGenerationInProgress):
		return newAPIError(http.StatusConflict, "Generation In Progress", "Please wait for your current generation to finish.", "generation-in-progress")
	case errors.Is(err, core.ErrEmptyPrompt):
		return newAPIError(http.StatusBadRequest, "Invalid Prompt", "Please enter a prompt.", "empty-prompt")
	case errors.Is(err, core.ErrInvalidCost), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidProfileUpdate):
		return newAPIError(http.StatusBadRequest, invalidRequestTitle, err.Error(), "invalid-argument")
	case errors.Is(err, core.ErrCreationNotFound):
		return newAPIError(http.StatusNotFound, "Not Found", "This creation does not exist.", "not-found")
	case errors.Is(err, core.ErrProfileNotFound):
		return newAPIError(http.StatusNotFound, "Not Found", "No profile exists for this account.", "not-found")
	case errors.Is(err, core.ErrAccessDenied):
		return newAPIError(http.StatusForbidden, "Access Denied", "You do not have access to this creation.", "permission-denied")
	case errors.Is(err, core.ErrProfileResolution):
		return newAPIError(http.StatusInternalServerError, "Profile Unavailable", "We could not load your profile. Please try again.", "profile-resolution-failed")
	case errors.Is(err, core.ErrGenerationFailed):
		return newAPIError(http.StatusBadGateway, "Generation Failed", "The image could not be generated. Please try again.", "generation-failed")
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "Request Timed Out", "The request took too long. Please try again.", "deadline-exceeded")
	}
	return newAPIError(http.StatusInternalServerError, genericErrorTitle, genericErrorDetails, "internal")
}

// respondError writes err as an ErrorResponse. Server-side failures are logged.
func respondError(c *gin.Context, logger *zap.Logger, err error, authTitle string) {
	e := classify(err, authTitle)
	if e.status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status_code", e.status),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.status, e.ErrorResponse)
}

func respondBindError(c *gin.Context, err error, title string) {
	if title == "" {
		title = invalidRequestTitle
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   title,
		Details: "The request body is invalid: " + err.Error(),
		Code:    "invalid-argument",
	})
}
