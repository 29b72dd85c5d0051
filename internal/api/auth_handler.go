package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

// AuthHandler opens, restores and closes client sessions.
type AuthHandler struct {
	registry       *session.Registry
	auth           *middleware.AuthMiddleware
	restoreTimeout time.Duration
	logger         *zap.Logger
}

func NewAuthHandler(registry *session.Registry, auth *middleware.AuthMiddleware, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{registry: registry, auth: auth, restoreTimeout: 15 * time.Second, logger: logger}
}

// sessionFor reuses the caller's session or opens a new one. fresh reports
// whether the session was created for this request.
func (h *AuthHandler) sessionFor(c *gin.Context) (mgr *session.Manager, fresh bool) {
	if mgr, ok := middleware.SessionFrom(c); ok {
		return mgr, false
	}
	return h.registry.Create(), true
}

// signIn runs op on the caller's session and answers with the new session.
// A session opened for a failed attempt is discarded.
func (h *AuthHandler) signIn(c *gin.Context, status int, title string, op func(context.Context, *session.Manager) error) {
	mgr, fresh := h.sessionFor(c)
	if err := op(c.Request.Context(), mgr); err != nil {
		if fresh {
			h.registry.Remove(mgr.ID())
		}
		respondError(c, h.logger, err, title)
		return
	}
	token, err := h.auth.IssueSession(c, mgr)
	if err != nil {
		respondError(c, h.logger, err, title)
		return
	}
	c.JSON(status, SessionResponse{Token: token, Session: mgr.Snapshot()})
}

// SignUp handles POST /api/v1/auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, titleSignupFailed)
		return
	}
	h.signIn(c, http.StatusCreated, titleSignupFailed, func(ctx context.Context, mgr *session.Manager) error {
		_, err := mgr.SignUpWithCredentials(ctx, strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.DisplayName))
		return err
	})
}

// SignIn handles POST /api/v1/auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, titleLoginFailed)
		return
	}
	h.signIn(c, http.StatusOK, titleLoginFailed, func(ctx context.Context, mgr *session.Manager) error {
		_, err := mgr.SignInWithCredentials(ctx, strings.TrimSpace(req.Email), req.Password)
		return err
	})
}

// SignInFederated handles POST /api/v1/auth/federated with a Google-backed ID token.
func (h *AuthHandler) SignInFederated(c *gin.Context) {
	var req models.FederatedSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, titleGoogleSignIn)
		return
	}
	h.signIn(c, http.StatusOK, titleGoogleSignIn, func(ctx context.Context, mgr *session.Manager) error {
		_, err := mgr.SignInWithFederatedProvider(ctx, req.IDToken)
		return err
	})
}

// RestoreSession handles POST /api/v1/auth/session. It starts observing the
// provider session behind an ID token and answers once the session settled.
func (h *AuthHandler) RestoreSession(c *gin.Context) {
	var req RestoreSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err, titleSessionRestore)
			return
		}
	}
	credential := req.IDToken
	if credential == "" {
		if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			credential = parts[1]
		}
	}
	if credential == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: titleSessionRestore, Details: "An ID token is required.", Code: "invalid-argument"})
		return
	}

	mgr := h.registry.Create()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.restoreTimeout)
	defer cancel()
	snap, err := mgr.Start(ctx, credential)
	if err != nil {
		h.registry.Remove(mgr.ID())
		respondError(c, h.logger, err, titleSessionRestore)
		return
	}
	if snap.State != session.StateAuthenticated {
		h.registry.Remove(mgr.ID())
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:   titleSessionRestore,
			Details: "Your sign-in has expired. Please sign in again.",
			Code:    "session-expired",
		})
		return
	}
	token, err := h.auth.IssueSession(c, mgr)
	if err != nil {
		respondError(c, h.logger, err, titleSessionRestore)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Token: token, Session: snap})
}

// SignOut handles POST /api/v1/auth/signout. It always succeeds.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if mgr, ok := middleware.SessionFrom(c); ok {
		mgr.SignOut(c.Request.Context())
		h.registry.Remove(mgr.ID())
	}
	h.auth.ClearSession(c)
	c.JSON(http.StatusOK, SignOutResponse{Redirect: "/"})
}

// GetSession handles GET /api/v1/session.
func (h *AuthHandler) GetSession(c *gin.Context) {
	mgr, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusOK, SessionResponse{Session: session.Snapshot{State: session.StateAnonymous, AuthResolved: true}})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: mgr.Snapshot()})
}
