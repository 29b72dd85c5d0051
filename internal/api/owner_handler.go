package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/internal/session"
)

// OwnerHandler serves the owner-only console.
type OwnerHandler struct {
	profiles  core.ProfileService
	creations core.CreationService
	ledger    core.CreditLedger
	registry  *session.Registry
	logger    *zap.Logger
}

func NewOwnerHandler(profiles core.ProfileService, creations core.CreationService, ledger core.CreditLedger, registry *session.Registry, logger *zap.Logger) *OwnerHandler {
	return &OwnerHandler{profiles: profiles, creations: creations, ledger: ledger, registry: registry, logger: logger}
}

// Overview handles GET /api/v1/owner/overview.
func (h *OwnerHandler) Overview(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	owner, err := mgr.Current()
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	count, err := h.creations.Count(c.Request.Context(), owner.UID)
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, OwnerOverviewResponse{
		Owner:          owner,
		CreationCount:  count,
		ActiveSessions: h.registry.Len(),
	})
}

// GetUser handles GET /api/v1/owner/users/:uid.
func (h *OwnerHandler) GetUser(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GrantCredits handles POST /api/v1/owner/users/:uid/credits.
func (h *OwnerHandler) GrantCredits(c *gin.Context) {
	var req models.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "")
		return
	}
	uid := c.Param("uid")
	balance, err := h.ledger.Refund(c.Request.Context(), uid, req.Amount)
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	h.logger.Info("Credits granted", zap.String("uid", uid), zap.Int("amount", req.Amount), zap.Int("balance", balance))
	c.JSON(http.StatusOK, GrantCreditsResponse{UID: uid, Credits: balance})
}
