package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	square := c.AspectRatio("1:1")
	assert.Equal(t, 512, square.Width)
	assert.Equal(t, 512, square.Height)
	assert.Equal(t, "Square (1:1)", square.Label)

	wide := c.AspectRatio("16:9")
	assert.Equal(t, 288, wide.Height)
	portrait := c.AspectRatio("4:5")
	assert.Equal(t, 640, portrait.Height)

	assert.Equal(t, "1:1", c.AspectRatio("3:2").Value, "unknown ratios fall back to the default")

	pop := c.StylePreset("vibrant-pop")
	assert.Equal(t, ", bright colors, pop art style, dynamic lighting", pop.Addition)
	assert.Equal(t, "none", c.StylePreset("nope").Value)

	assert.True(t, c.HasColorPalette("muted"))
	assert.False(t, c.HasColorPalette("neon"))
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `
default_aspect_ratio: "2:1"
default_style_preset: plain
default_color_palette: mono
aspect_ratios:
  - value: "2:1"
    label: Banner
    width: 1024
    height: 512
style_presets:
  - value: plain
    name: Plain
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, c.AspectRatio("").Width)
	assert.Equal(t, "Plain", c.StylePreset("").Name)
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	_, err := ParseCatalog([]byte("aspect_ratios: []\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`
default_aspect_ratio: "1:1"
default_style_preset: none
default_color_palette: default
aspect_ratios:
  - value: "1:1"
    width: 0
    height: 512
style_presets:
  - value: none
`))
	assert.ErrorContains(t, err, "invalid dimensions")

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
