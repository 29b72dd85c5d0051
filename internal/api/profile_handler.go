package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

// ProfileHandler serves the signed-in account's profile and balance.
type ProfileHandler struct {
	ledger core.CreditLedger
	logger *zap.Logger
}

func NewProfileHandler(ledger core.CreditLedger, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{ledger: ledger, logger: logger}
}

// currentSession returns the session attached by the auth middleware.
func currentSession(c *gin.Context, logger *zap.Logger) (*session.Manager, bool) {
	mgr, ok := middleware.SessionFrom(c)
	if !ok {
		respondError(c, logger, core.ErrNotAuthenticated, "")
		return nil, false
	}
	return mgr, true
}

// GetProfile handles GET /api/v1/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	profile, err := mgr.Current()
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RefreshProfile handles POST /api/v1/profile/refresh.
func (h *ProfileHandler) RefreshProfile(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	if err := mgr.RefreshProfile(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	profile, err := mgr.Current()
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/v1/profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Update Failed")
		return
	}
	profile, err := mgr.UpdateProfile(c.Request.Context(), models.PrincipalUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		respondError(c, h.logger, err, "Update Failed")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ConsumeCredits handles POST /api/v1/credits/consume.
func (h *ProfileHandler) ConsumeCredits(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	var req models.ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "")
		return
	}
	if err := h.ledger.Consume(c.Request.Context(), mgr, req.Cost); err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	profile, err := mgr.Current()
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, creditsOf(profile))
}
