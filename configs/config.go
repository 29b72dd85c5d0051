// Package configs holds the generation catalog: the aspect ratios, style presets
// and colour palettes a client may pick from.
package configs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// AspectRatio maps a ratio value to the output dimensions.
type AspectRatio struct {
	Value  string `yaml:"value" json:"value"`
	Label  string `yaml:"label" json:"label"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// StylePreset appends a fixed phrase to the prompt.
type StylePreset struct {
	Value    string `yaml:"value" json:"value"`
	Name     string `yaml:"name" json:"name"`
	Addition string `yaml:"addition" json:"-"`
}

// ColorPalette is a palette hint passed through to the prompt.
type ColorPalette struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the full set of generation options.
type Catalog struct {
	DefaultAspectRatio  string         `yaml:"default_aspect_ratio" json:"defaultAspectRatio"`
	DefaultStylePreset  string         `yaml:"default_style_preset" json:"defaultStylePreset"`
	DefaultColorPalette string         `yaml:"default_color_palette" json:"defaultColorPalette"`
	DefaultCreativity   int            `yaml:"default_creativity" json:"defaultCreativity"`
	DefaultDetailLevel  int            `yaml:"default_detail_level" json:"defaultDetailLevel"`
	AspectRatios        []AspectRatio  `yaml:"aspect_ratios" json:"aspectRatios"`
	StylePresets        []StylePreset  `yaml:"style_presets" json:"stylePresets"`
	ColorPalettes       []ColorPalette `yaml:"color_palettes" json:"colorPalettes"`
}

// LoadCatalog reads the catalog from path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("embedded catalog is invalid: " + err.Error())
	}
	return c
}

func (c *Catalog) validate() error {
	if len(c.AspectRatios) == 0 {
		return errors.New("catalog has no aspect ratios")
	}
	if len(c.StylePresets) == 0 {
		return errors.New("catalog has no style presets")
	}
	for _, ar := range c.AspectRatios {
		if ar.Width <= 0 || ar.Height <= 0 {
			return fmt.Errorf("aspect ratio %q has invalid dimensions %dx%d", ar.Value, ar.Width, ar.Height)
		}
	}
	if _, ok := c.lookupAspectRatio(c.DefaultAspectRatio); !ok {
		return fmt.Errorf("default aspect ratio %q is not in the catalog", c.DefaultAspectRatio)
	}
	if _, ok := c.lookupStylePreset(c.DefaultStylePreset); !ok {
		return fmt.Errorf("default style preset %q is not in the catalog", c.DefaultStylePreset)
	}
	if c.DefaultColorPalette == "" {
		return errors.New("default colour palette is required")
	}
	return nil
}

// AspectRatio resolves value, falling back to the default ratio for unknown values.
func (c *Catalog) AspectRatio(value string) AspectRatio {
	if ar, ok := c.lookupAspectRatio(value); ok {
		return ar
	}
	ar, _ := c.lookupAspectRatio(c.DefaultAspectRatio)
	return ar
}

// StylePreset resolves value, falling back to the default preset for unknown values.
func (c *Catalog) StylePreset(value string) StylePreset {
	if p, ok := c.lookupStylePreset(value); ok {
		return p
	}
	p, _ := c.lookupStylePreset(c.DefaultStylePreset)
	return p
}

// HasColorPalette reports whether value is a known palette.
func (c *Catalog) HasColorPalette(value string) bool {
	for _, p := range c.ColorPalettes {
		if p.Value == value {
			return true
		}
	}
	return false
}

func (c *Catalog) lookupAspectRatio(value string) (AspectRatio, bool) {
	for _, ar := range c.AspectRatios {
		if ar.Value == value {
			return ar, true
		}
	}
	return AspectRatio{}, false
}

func (c *Catalog) lookupStylePreset(value string) (StylePreset, bool) {
	for _, p := range c.StylePresets {
		if p.Value == value {
			return p, true
		}
	}
	return StylePreset{}, false
}
