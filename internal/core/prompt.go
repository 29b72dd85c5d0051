package core

import (
	"fmt"
	"strings"

	"github.com/luxemuse/luxe-muse-backend/configs"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// GenerationOptions is a generation request resolved against the catalog.
type GenerationOptions struct {
	BasePrompt   string
	Preset       configs.StylePreset
	AspectRatio  configs.AspectRatio
	Creativity   int
	DetailLevel  int
	ColorPalette string
	// Prompt is the final text sent to the renderer.
	Prompt string
}

// ComposePrompt validates req and builds the renderer prompt:
// "<prompt><preset addition> (Creativity: C, Detail: D, Palette: P)".
// The enhanced prompt, when present, replaces the raw one. Unknown presets,
// ratios and palettes fall back to the catalog defaults.
func ComposePrompt(catalog *configs.Catalog, req models.GenerationRequest) (GenerationOptions, error) {
	base := strings.TrimSpace(req.EnhancedPrompt)
	if base == "" {
		base = strings.TrimSpace(req.Prompt)
	}
	if base == "" {
		return GenerationOptions{}, ErrEmptyPrompt
	}

	opts := GenerationOptions{
		BasePrompt:   base,
		Preset:       catalog.StylePreset(req.StylePreset),
		AspectRatio:  catalog.AspectRatio(req.AspectRatio),
		Creativity:   catalog.DefaultCreativity,
		DetailLevel:  catalog.DefaultDetailLevel,
		ColorPalette: catalog.DefaultColorPalette,
	}
	if req.Creativity != nil {
		opts.Creativity = clampPercent(*req.Creativity)
	}
	if req.DetailLevel != nil {
		opts.DetailLevel = clampPercent(*req.DetailLevel)
	}
	if catalog.HasColorPalette(req.ColorPalette) {
		opts.ColorPalette = req.ColorPalette
	}

	opts.Prompt = fmt.Sprintf("%s%s (Creativity: %d, Detail: %d, Palette: %s)",
		opts.BasePrompt, opts.Preset.Addition, opts.Creativity, opts.DetailLevel, opts.ColorPalette)
	return opts, nil
}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}
