package identity

import (
	"errors"
	"fmt"
)

// Credential-taxonomy codes, in the identity provider's vocabulary.
const (
	CodeInvalidCredential = "auth/invalid-credential"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeEmailAlreadyInUse = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserDisabled      = "auth/user-disabled"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeFederatedRequired = "auth/operation-not-allowed"
	CodeInternalError     = "auth/internal-error"
)

var messages = map[string]string{
	CodeInvalidCredential: "Invalid credentials. Please ensure your email and password are correct.",
	CodeUserNotFound:      "Invalid credentials. Please ensure your email and password are correct.",
	CodeWrongPassword:     "Invalid credentials. Please ensure your email and password are correct.",
	CodeEmailAlreadyInUse: "This email is already registered. Try logging in.",
	CodeWeakPassword:      "Password is too weak. Please choose a stronger one.",
	CodeInvalidEmail:      "Please enter a valid email address.",
	CodeUserDisabled:      "This account has been disabled.",
	CodeTooManyRequests:   "Too many attempts. Please wait a moment and try again.",
	CodeFederatedRequired: "This sign-in method is not available for this account.",
	CodeInternalError:     "Authentication is temporarily unavailable. Please try again.",
}

// AuthError is a credential-taxonomy failure reported by the identity provider.
// Message is safe to show to end users.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

// NewAuthError builds an AuthError with the standard message for code.
func NewAuthError(code string, cause error) *AuthError {
	msg, ok := messages[code]
	if !ok {
		msg = messages[CodeInternalError]
	}
	return &AuthError{Code: code, Message: msg, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another AuthError by code, so errors.Is(err, &AuthError{Code: c}) works.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

// CodeOf returns the taxonomy code carried by err, or "".
func CodeOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCredentialError reports whether err means the supplied credentials were rejected.
func IsCredentialError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidCredential, CodeUserNotFound, CodeWrongPassword:
		return true
	}
	return false
}

// MinPasswordLength matches the provider's weak-password threshold.
const MinPasswordLength = 6
