package structure

import (
	"bytes"
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

// CanvasSurface is a raster Surface backed by a gg context.
type CanvasSurface struct {
	dc *gg.Context
}

// NewCanvasSurface allocates a transparent width x height canvas.
func NewCanvasSurface(width, height int) (*CanvasSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("structure: canvas size %dx%d must be positive", width, height)
	}
	return &CanvasSurface{dc: gg.NewContext(width, height)}, nil
}

func (c *CanvasSurface) Width() int  { return c.dc.Width() }
func (c *CanvasSurface) Height() int { return c.dc.Height() }

// Context exposes the underlying drawing context.
func (c *CanvasSurface) Context() *gg.Context { return c.dc }

// Image returns the current pixels.
func (c *CanvasSurface) Image() image.Image { return c.dc.Image() }

// PNG encodes the canvas.
func (c *CanvasSurface) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("structure: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
