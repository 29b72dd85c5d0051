package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/crypto"
	"github.com/luxemuse/luxe-muse-backend/internal/identity"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

const (
	SessionCookie = "lm_session"
	SessionHeader = "X-Session-Token"

	sessionKey   = "session"
	principalKey = "principal"
)

// ErrorResponse mirrors api.ErrorResponse; it is defined here to avoid an
// import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AuthOptions configures NewAuthMiddleware.
type AuthOptions struct {
	Registry *session.Registry
	Sealer   *crypto.TokenSealer
	Provider identity.Provider
	// CookieTTL is the Max-Age of the session cookie.
	CookieTTL time.Duration
	// SecureCookie marks the cookie Secure; set in release mode.
	SecureCookie bool
	// SettleTimeout bounds how long a request waits for a session that is
	// still resolving.
	SettleTimeout time.Duration
	Logger        *zap.Logger
}

// AuthMiddleware loads sessions from the client token and gates routes on them.
type AuthMiddleware struct {
	registry      *session.Registry
	sealer        *crypto.TokenSealer
	provider      identity.Provider
	cookieTTL     time.Duration
	secure        bool
	settleTimeout time.Duration
	logger        *zap.Logger
}

func NewAuthMiddleware(opts AuthOptions) *AuthMiddleware {
	if opts.Registry == nil || opts.Sealer == nil || opts.Provider == nil {
		panic("NewAuthMiddleware requires a session registry, token sealer and identity provider")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 10 * time.Second
	}
	return &AuthMiddleware{
		registry:      opts.Registry,
		sealer:        opts.Sealer,
		provider:      opts.Provider,
		cookieTTL:     opts.CookieTTL,
		secure:        opts.SecureCookie,
		settleTimeout: opts.SettleTimeout,
		logger:        opts.Logger,
	}
}

func (m *AuthMiddleware) tokenFrom(c *gin.Context) string {
	if token := c.GetHeader(SessionHeader); token != "" {
		return token
	}
	token, _ := c.Cookie(SessionCookie)
	return token
}

// LoadSession attaches the caller's session, if any, to the context. It never
// rejects a request.
func (m *AuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.tokenFrom(c)
		if token == "" {
			c.Next()
			return
		}
		id, err := m.sealer.Open(token)
		if err != nil {
			m.logger.Debug("Rejected session token", zap.Error(err))
			c.Next()
			return
		}
		if mgr, err := m.registry.Get(id); err == nil {
			c.Set(sessionKey, mgr)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without an AUTHENTICATED session. A session
// still resolving is waited for.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication Required", Details: "Please sign in to continue."})
			return
		}
		snap := mgr.Snapshot()
		if !snap.Settled() {
			ctx, cancel := context.WithTimeout(c.Request.Context(), m.settleTimeout)
			snap, _ = mgr.WaitSettled(ctx)
			cancel()
		}
		if snap.State != session.StateAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication Required", Details: "Please sign in to continue."})
			return
		}
		c.Next()
	}
}

// RequireOwner rejects authenticated sessions that do not hold the owner role.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr, ok := SessionFrom(c)
		if !ok || !mgr.Snapshot().IsOwner() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Access Denied", Details: "This area is reserved for the owner."})
			return
		}
		c.Next()
	}
}

// BearerPrincipal verifies an "Authorization: Bearer <ID token>" header and
// attaches the principal. Missing or invalid tokens leave the request
// anonymous; the handler decides how to answer.
func (m *AuthMiddleware) BearerPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.Next()
			return
		}
		principal, err := m.provider.VerifyCredential(c.Request.Context(), parts[1])
		if err != nil {
			m.logger.Info("Bearer token rejected", zap.String("code", identity.CodeOf(err)))
			c.Next()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// IssueSession hands the session token to the client as a cookie and a header.
func (m *AuthMiddleware) IssueSession(c *gin.Context, mgr *session.Manager) (string, error) {
	token, err := m.sealer.Seal(mgr.ID())
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(m.cookieTTL.Seconds()), "/", "", m.secure, true)
	c.Header(SessionHeader, token)
	c.Set(sessionKey, mgr)
	return token, nil
}

// ClearSession expires the session cookie.
func (m *AuthMiddleware) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", m.secure, true)
}

// SessionFrom returns the session attached by LoadSession or IssueSession.
func SessionFrom(c *gin.Context) (*session.Manager, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	mgr, ok := v.(*session.Manager)
	return mgr, ok
}

// PrincipalFrom returns the principal attached by BearerPrincipal.
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Principal)
	return p, ok
}
