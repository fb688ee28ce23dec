package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// US Letter in points, used when a page carries no usable MediaBox.
var letterBox = box{x0: 0, y0: 0, x1: 612, y1: 792}

var (
	ruleColor = color.Gray{Y: 0x33}
	inkColor  = color.Black
)

// NewPDFEngine parses the bundled glyph faces and returns an engine that
// rasterizes text and filled rectangles of PDF pages.
func NewPDFEngine(context.Context) (Engine, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &pdfEngine{regular: regular, bold: bold}, nil
}

type pdfEngine struct {
	regular *opentype.Font
	bold    *opentype.Font
}

func (e *pdfEngine) Open(data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if r.NumPage() < 1 {
		return nil, errors.New("document has no pages")
	}
	return &pdfDocument{engine: e, reader: r}, nil
}

type pdfDocument struct {
	engine *pdfEngine
	reader *pdf.Reader
}

func (d *pdfDocument) NumPages() int { return d.reader.NumPage() }

func (d *pdfDocument) Page(n int) (Page, error) {
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", n)
	}
	return &pdfPage{engine: d.engine, page: p}, nil
}

type pdfPage struct {
	engine *pdfEngine
	page   pdf.Page
}

type box struct{ x0, y0, x1, y1 float64 }

func (b box) width() float64  { return b.x1 - b.x0 }
func (b box) height() float64 { return b.y1 - b.y0 }

// mediaBox walks the page tree for an inherited MediaBox.
func (p *pdfPage) mediaBox() box {
	for v := p.page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.Kind() != pdf.Array || mb.Len() != 4 {
			continue
		}
		b := box{
			x0: math.Min(mb.Index(0).Float64(), mb.Index(2).Float64()),
			y0: math.Min(mb.Index(1).Float64(), mb.Index(3).Float64()),
			x1: math.Max(mb.Index(0).Float64(), mb.Index(2).Float64()),
			y1: math.Max(mb.Index(1).Float64(), mb.Index(3).Float64()),
		}
		if b.width() > 0 && b.height() > 0 {
			return b
		}
	}
	return letterBox
}

func (p *pdfPage) Viewport(scale float64) (Viewport, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Viewport{}, fmt.Errorf("invalid scale %v", scale)
	}
	mb := p.mediaBox()
	w := int(math.Ceil(mb.width() * scale))
	h := int(math.Ceil(mb.height() * scale))
	if w <= 0 || h <= 0 || w > maxSurfaceSide || h > maxSurfaceSide {
		return Viewport{}, fmt.Errorf("surface %dx%d out of range", w, h)
	}
	return Viewport{Width: w, Height: h, Scale: scale}, nil
}

func (p *pdfPage) Render(ctx context.Context, dst draw.Image, vp Viewport) error {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	content := p.page.Content()
	mb := p.mediaBox()
	toPx := func(x, y float64) (float64, float64) {
		return (x - mb.x0) * vp.Scale, (mb.y1 - y) * vp.Scale
	}

	for _, r := range content.Rect {
		if err := ctx.Err(); err != nil {
			return err
		}
		ax, ay := toPx(r.Min.X, r.Min.Y)
		bx, by := toPx(r.Max.X, r.Max.Y)
		fillRect(dst, vp, ax, ay, bx, by)
	}

	faces := map[faceKey]font.Face{}
	defer func() {
		for _, f := range faces {
			_ = f.Close()
		}
	}()
	for _, run := range textRuns(content.Text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		face, err := p.face(faces, run, vp.Scale)
		if err != nil {
			return err
		}
		x, y := toPx(run.x, run.y)
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(inkColor),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
		}
		d.DrawString(run.text)
	}
	return nil
}

type faceKey struct {
	bold bool
	size float64
}

func (p *pdfPage) face(cache map[faceKey]font.Face, run textRun, scale float64) (font.Face, error) {
	key := faceKey{bold: run.bold, size: math.Round(run.size*scale*4) / 4}
	if f, ok := cache[key]; ok {
		return f, nil
	}
	src := p.engine.regular
	if run.bold {
		src = p.engine.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("glyph face: %w", err)
	}
	cache[key] = f
	return f, nil
}

func fillRect(dst draw.Image, vp Viewport, ax, ay, bx, by float64) {
	clamp := func(v, hi float64) float32 { return float32(math.Max(0, math.Min(v, hi))) }
	x0, x1 := clamp(math.Min(ax, bx), float64(vp.Width)), clamp(math.Max(ax, bx), float64(vp.Width))
	y0, y1 := clamp(math.Min(ay, by), float64(vp.Height)), clamp(math.Max(ay, by), float64(vp.Height))
	// Hairline rules still get one pixel.
	if x1-x0 < 1 {
		x1 = float32(math.Min(float64(x0+1), float64(vp.Width)))
	}
	if y1-y0 < 1 {
		y1 = float32(math.Min(float64(y0+1), float64(vp.Height)))
	}
	if x1 <= x0 || y1 <= y0 {
		return
	}
	z := vector.NewRasterizer(vp.Width, vp.Height)
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(ruleColor), image.Point{})
}

type textRun struct {
	text string
	x, y float64
	size float64
	bold bool
}

const defaultFontSize = 10

// textRuns joins per-glyph text into drawable runs. Glyph widths are often
// unknown, so glyphs on the same baseline with the same font join one run
// unless a visible gap separates them.
func textRuns(glyphs []pdf.Text) []textRun {
	var (
		runs []textRun
		cur  *textRun
		sb   strings.Builder
		end  float64
	)
	flush := func() {
		if cur != nil && strings.TrimSpace(sb.String()) != "" {
			cur.text = sb.String()
			runs = append(runs, *cur)
		}
		cur = nil
		sb.Reset()
	}
	for _, g := range glyphs {
		s := strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, g.S)
		if s == "" {
			continue
		}
		size := math.Abs(g.FontSize)
		if size < 1 {
			size = defaultFontSize
		}
		bold := strings.Contains(strings.ToLower(g.Font), "bold")

		if cur != nil {
			sameLine := math.Abs(g.Y-cur.y) < 0.5
			sameFont := cur.bold == bold && math.Abs(cur.size-size) < 0.5
			contiguous := g.X >= end-size && g.X <= end+size*2
			if !sameLine || !sameFont || !contiguous {
				flush()
			}
		}
		if cur == nil {
			cur = &textRun{x: g.X, y: g.Y, size: size, bold: bold}
		}
		sb.WriteString(s)
		end = g.X + g.W
	}
	flush()
	return runs
}
