package rasterize

import (
	"context"
	"image/draw"
)

// Engine parses documents into renderable pages.
type Engine interface {
	Open(data []byte) (Document, error)
}

// Document is a parsed paginated document.
type Document interface {
	NumPages() int
	// Page returns page n, counting from 1.
	Page(n int) (Page, error)
}

// Page renders itself onto a raster surface.
type Page interface {
	Viewport(scale float64) (Viewport, error)
	Render(ctx context.Context, dst draw.Image, vp Viewport) error
}

// Viewport is the pixel geometry of a page at a given scale.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// maxSurfaceSide bounds either side of the raster surface.
const maxSurfaceSide = 16384
