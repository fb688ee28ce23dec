package rasterize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"resume-review/internal/documents"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/telemetry"
)

// DefaultScale renders at four times the page's native size.
const DefaultScale = 4

// Result carries either a rendered image or an error, never both.
type Result struct {
	Image *Image
	File  documents.File
	Err   error
}

// OK reports whether the conversion produced an image.
func (r Result) OK() bool { return r.Err == nil && r.File != nil }

// Image is a handle to a rendered PNG on local disk. Release deletes it.
type Image struct {
	Path   string
	Width  int
	Height int

	once sync.Once
}

// URL returns a local reference to the image.
func (i *Image) URL() string {
	if i == nil {
		return ""
	}
	return "file://" + filepath.ToSlash(i.Path)
}

// Release removes the rendered file. Safe to call more than once.
func (i *Image) Release() {
	if i == nil {
		return
	}
	i.once.Do(func() {
		if err := os.Remove(i.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			telemetry.Error("rasterize.release_failed", map[string]any{"path": i.Path, "error": err})
		}
	})
}

// Rasterizer converts the first page of a PDF into a PNG.
type Rasterizer struct {
	Loader  *Loader
	Scale   float64
	TempDir string
}

// New returns a Rasterizer using loader at DefaultScale.
func New(loader *Loader) *Rasterizer {
	return &Rasterizer{Loader: loader, Scale: DefaultScale}
}

// Rasterize renders page one of file. Failures are reported in Result.Err;
// Rasterize itself never panics.
func (r *Rasterizer) Rasterize(ctx context.Context, file documents.File) Result {
	start := time.Now()
	res := r.rasterize(ctx, file)
	metrics.ObserveRasterizeDurationMs(time.Since(start).Milliseconds(), res.OK())
	if res.Err != nil {
		telemetry.Error("rasterize.failed", map[string]any{
			"file":  fileName(file),
			"error": res.Err,
		})
	}
	return res
}

func (r *Rasterizer) rasterize(ctx context.Context, file documents.File) Result {
	if r == nil || r.Loader == nil {
		return Result{Err: ErrEnvironmentUnavailable}
	}

	var engine Engine
	if err := step(StepLoad, func() (err error) {
		engine, err = r.Loader.Load(ctx)
		return err
	}); err != nil {
		var se *StepError
		if errors.As(err, &se) && errors.Is(se.Err, ErrEnvironmentUnavailable) {
			return Result{Err: ErrEnvironmentUnavailable}
		}
		return Result{Err: err}
	}

	var data []byte
	if err := step(StepRead, func() error {
		if file == nil {
			return errors.New("no file")
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return errors.New("file is empty")
		}
		return nil
	}); err != nil {
		return Result{Err: err}
	}

	var doc Document
	if err := step(StepParse, func() (err error) {
		doc, err = engine.Open(data)
		return err
	}); err != nil {
		return Result{Err: err}
	}

	var page Page
	if err := step(StepPage, func() (err error) {
		page, err = doc.Page(1)
		return err
	}); err != nil {
		return Result{Err: err}
	}

	scale := r.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	var vp Viewport
	if err := step(StepViewport, func() (err error) {
		vp, err = page.Viewport(scale)
		return err
	}); err != nil {
		return Result{Err: err}
	}

	var surface *image.RGBA
	if err := step(StepSurface, func() error {
		if vp.Width <= 0 || vp.Height <= 0 || vp.Width > maxSurfaceSide || vp.Height > maxSurfaceSide {
			return fmt.Errorf("surface %dx%d out of range", vp.Width, vp.Height)
		}
		surface = image.NewRGBA(image.Rect(0, 0, vp.Width, vp.Height))
		return nil
	}); err != nil {
		return Result{Err: err}
	}

	if err := step(StepRender, func() error {
		return page.Render(ctx, surface, vp)
	}); err != nil {
		return Result{Err: err}
	}

	var out *os.File
	if err := step(StepEncode, func() (err error) {
		out, err = os.CreateTemp(r.TempDir, "page-*.png")
		if err != nil {
			return err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(out, surface); err != nil {
			out.Close()
			os.Remove(out.Name())
			return err
		}
		return out.Close()
	}); err != nil {
		return Result{Err: err}
	}

	img := &Image{Path: out.Name(), Width: vp.Width, Height: vp.Height}
	var wrapped documents.File
	if err := step(StepWrap, func() error {
		wrapped = documents.DiskFile(img.Path, "image/png")
		wrapped = renamed{File: wrapped, name: PNGName(fileName(file))}
		return nil
	}); err != nil {
		img.Release()
		return Result{Err: err}
	}
	return Result{Image: img, File: wrapped}
}

// step runs fn, converting both errors and panics into a *StepError.
func step(s Step, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &StepError{Step: s, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if err := fn(); err != nil {
		return &StepError{Step: s, Err: err}
	}
	return nil
}

// PNGName derives the output name: a trailing .pdf (any case) becomes .png,
// any other extension is replaced and a bare name gets .png appended.
func PNGName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		return "page.png"
	}
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		return base[:len(base)-len(".pdf")] + ".png"
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext) + ".png"
	}
	return base + ".png"
}

func fileName(f documents.File) string {
	if f == nil {
		return ""
	}
	return f.Name()
}

type renamed struct {
	documents.File
	name string
}

func (r renamed) Name() string { return r.name }
