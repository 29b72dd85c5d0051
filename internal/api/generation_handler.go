package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/middleware"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// GenerationHandler serves metered generations and the generateAiImage callable.
type GenerationHandler struct {
	gate      core.GenerationGate
	generator core.ImageGenerator
	logger    *zap.Logger
}

func NewGenerationHandler(gate core.GenerationGate, generator core.ImageGenerator, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{gate: gate, generator: generator, logger: logger}
}

// Generate handles POST /api/v1/generations.
func (h *GenerationHandler) Generate(c *gin.Context) {
	mgr, ok := currentSession(c, h.logger)
	if !ok {
		return
	}
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Generation Failed")
		return
	}
	creation, err := h.gate.Generate(c.Request.Context(), mgr, req)
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}
	profile, _ := mgr.Current()
	c.JSON(http.StatusCreated, GenerationResponse{Creation: creation, Credits: creditsOf(profile)})
}

// GenerateAiImage handles POST /api/v1/functions/generateAiImage using the
// callable wire format: {"data": {...}} in, {"result": {...}} or
// {"error": {"status", "message"}} out.
func (h *GenerationHandler) GenerateAiImage(c *gin.Context) {
	var uid string
	if p, ok := middleware.PrincipalFrom(c); ok {
		uid = p.UID
	}

	var envelope callableRequest
	var req models.GenerateImageRequest
	if err := c.ShouldBindJSON(&envelope); err != nil || len(envelope.Data) == 0 || json.Unmarshal(envelope.Data, &req) != nil {
		h.callableError(c, &core.CallableError{Code: core.CallableInvalidArgument, Message: "Request body must be {\"data\": {\"prompt\": ...}}."})
		return
	}

	image, err := h.generator.Generate(c.Request.Context(), uid, req)
	if err != nil {
		h.callableError(c, err)
		return
	}
	c.JSON(http.StatusOK, callableResponse{Result: image})
}

// RateLimited answers a throttled callable request in the callable wire format.
func (h *GenerationHandler) RateLimited(c *gin.Context) {
	h.callableError(c, &core.CallableError{Code: core.CallableResourceExhausted, Message: "Too many image requests. Please wait a moment and try again."})
}

func (h *GenerationHandler) callableError(c *gin.Context, err error) {
	ce := core.AsCallableError(err)
	if ce.Code == core.CallableInternal {
		h.logger.Error("generateAiImage failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(ce.HTTPStatus(), callableErrorResponse{Error: callableErrorBody{Status: ce.Status(), Message: ce.Message}})
}
