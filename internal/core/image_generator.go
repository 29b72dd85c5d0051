package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/storage"
)

// Callable error codes.
const (
	CallableUnauthenticated   = "unauthenticated"
	CallableInvalidArgument   = "invalid-argument"
	CallableResourceExhausted = "resource-exhausted"
	CallableInternal          = "internal"
)

// CallableError is a categorized failure of the generateAiImage callable.
type CallableError struct {
	Code    string
	Message string
	Err     error
}

func newCallableError(code, message string, cause error) *CallableError {
	return &CallableError{Code: code, Message: message, Err: cause}
}

func (e *CallableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *CallableError) Unwrap() error { return e.Err }

// Status is the canonical status name used on the callable wire format.
func (e *CallableError) Status() string {
	return strings.ToUpper(strings.ReplaceAll(e.Code, "-", "_"))
}

// HTTPStatus maps the code to the status the callable endpoint answers with.
func (e *CallableError) HTTPStatus() int {
	switch e.Code {
	case CallableUnauthenticated:
		return http.StatusUnauthorized
	case CallableInvalidArgument:
		return http.StatusBadRequest
	case CallableResourceExhausted:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Renderer turns a prompt into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, prompt, negativePrompt string, ratio configs.AspectRatio) ([]byte, error)
}

// placeholderPNG is a 1x1 PNG returned until a real model is wired in.
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type placeholderRenderer struct {
	delay time.Duration
}

// NewPlaceholderRenderer returns a Renderer that waits delay and returns a fixed image.
func NewPlaceholderRenderer(delay time.Duration) Renderer {
	return placeholderRenderer{delay: delay}
}

func (r placeholderRenderer) Render(ctx context.Context, _, _ string, _ configs.AspectRatio) ([]byte, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return base64.StdEncoding.DecodeString(placeholderPNG)
}

// ImageGeneratorOptions configures NewImageGenerator.
type ImageGeneratorOptions struct {
	Renderer  Renderer
	Blobs     storage.BlobStore
	Creations db.CreationRepository
	Catalog   *configs.Catalog
	Logger    *zap.Logger
}

type imageGenerator struct {
	renderer  Renderer
	blobs     storage.BlobStore
	creations db.CreationRepository
	catalog   *configs.Catalog
	logger    *zap.Logger
}

// NewImageGenerator creates the generateAiImage implementation.
func NewImageGenerator(opts ImageGeneratorOptions) ImageGenerator {
	if opts.Renderer == nil {
		opts.Renderer = NewPlaceholderRenderer(0)
	}
	if opts.Catalog == nil {
		opts.Catalog = configs.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &imageGenerator{
		renderer:  opts.Renderer,
		blobs:     opts.Blobs,
		creations: opts.Creations,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
	}
}

// Generate renders the image, uploads it to creations/{uid}/{creationId}.png and
// returns its public URL. The creation document itself is written by the caller.
func (g *imageGenerator) Generate(ctx context.Context, uid string, req models.GenerateImageRequest) (*models.GeneratedImage, error) {
	if uid == "" {
		return nil, newCallableError(CallableUnauthenticated, "The function must be called while authenticated.", nil)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, newCallableError(CallableInvalidArgument, "The function must be called with a valid \"prompt\" argument.", nil)
	}
	ratio := g.catalog.AspectRatio(req.AspectRatio)

	g.logger.Info("Generating image",
		zap.String("uid", uid),
		zap.String("aspect_ratio", ratio.Value),
		zap.Bool("negative_prompt", req.NegativePrompt != ""))

	data, err := g.renderer.Render(ctx, prompt, req.NegativePrompt, ratio)
	if err != nil {
		g.logger.Error("Image rendering failed", zap.String("uid", uid), zap.Error(err))
		return nil, newCallableError(CallableInternal, "Failed to generate image.", err)
	}

	creationID := g.creations.NewID()
	path := fmt.Sprintf("creations/%s/%s.png", uid, creationID)
	url, err := g.blobs.Upload(ctx, path, data, "image/png", true)
	if err != nil {
		g.logger.Error("Image upload failed", zap.String("uid", uid), zap.String("path", path), zap.Error(err))
		return nil, newCallableError(CallableInternal, "Failed to store generated image.", err)
	}

	return &models.GeneratedImage{
		ImageURL:    url,
		CreationID:  creationID,
		ImageWidth:  ratio.Width,
		ImageHeight: ratio.Height,
		StoragePath: path,
	}, nil
}

// AsCallableError returns err as a *CallableError, wrapping unknown errors as internal.
func AsCallableError(err error) *CallableError {
	var ce *CallableError
	if errors.As(err, &ce) {
		return ce
	}
	return newCallableError(CallableInternal, "An internal error occurred.", err)
}
