package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
)

// CreationHandler serves the signed-in account's gallery.
type CreationHandler struct {
	creations core.CreationService
	logger    *zap.Logger
}

func NewCreationHandler(creations core.CreationService, logger *zap.Logger) *CreationHandler {
	return &CreationHandler{creations: creations, logger: logger}
}

func (h *CreationHandler) uid(c *gin.Context) (string, bool) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return "", false
	}
	profile, err := mgr.Current()
	if err != nil {
		respondError(c, h.logger, err, "")
		return "", false
	}
	return profile.UID, true
}

// ListCreations handles GET /api/v1/creations, newest first.
func (h *CreationHandler) ListCreations(c *gin.Context) {
	uid, ok := h.uid(c)
	if !ok {
		return
	}
	creations, err := h.creations.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"creations": creations})
}

// GetCreation handles GET /api/v1/creations/:id.
func (h *CreationHandler) GetCreation(c *gin.Context) {
	uid, ok := h.uid(c)
	if !ok {
		return
	}
	creation, err := h.creations.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, creation)
}

// DeleteCreation handles DELETE /api/v1/creations/:id.
func (h *CreationHandler) DeleteCreation(c *gin.Context) {
	uid, ok := h.uid(c)
	if !ok {
		return
	}
	if err := h.creations.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadCreation handles GET /api/v1/creations/:id/download.
func (h *CreationHandler) DownloadCreation(c *gin.Context) {
	uid, ok := h.uid(c)
	if !ok {
		return
	}
	body, name, err := h.creations.Download(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	defer body.Close()
	c.DataFromReader(http.StatusOK, -1, "image/png", body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}
