package rasterize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-review/internal/documents"
)

func newTestRasterizer(t *testing.T, loader *Loader) *Rasterizer {
	t.Helper()
	return &Rasterizer{Loader: loader, Scale: 2, TempDir: t.TempDir()}
}

func TestRasterizeRendersFirstPage(t *testing.T) {
	r := newTestRasterizer(t, NewLoader(NewPDFEngine))
	file := documents.NewFile("Resume.PDF", "application/pdf", buildPDF(200, 100, sampleContent))

	res := r.Rasterize(context.Background(), file)
	require.NoError(t, res.Err)
	require.True(t, res.OK())
	require.NotNil(t, res.Image)
	defer res.Image.Release()

	assert.Equal(t, "Resume.png", res.File.Name())
	assert.Equal(t, "image/png", res.File.ContentType())
	assert.Regexp(t, "^file://", res.Image.URL())

	rc, err := res.File.Open()
	require.NoError(t, err)
	defer rc.Close()
	img, err := png.Decode(rc)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 200, b.Dy())
	assert.True(t, isWhite(img.At(2, 2)), "background")
	// The filled rule spans y 10..18 in page space.
	assert.False(t, isWhite(img.At(200, 172)), "rule pixels")
	assert.True(t, hasInk(img, image.Rect(20, 40, 220, 84)), "text pixels near the baseline")
}

func TestRasterizeConcurrentCallersShareOneEngine(t *testing.T) {
	var inits atomic.Int32
	loader := NewLoader(func(ctx context.Context) (Engine, error) {
		inits.Add(1)
		return NewPDFEngine(ctx)
	})
	r := newTestRasterizer(t, loader)
	data := buildPDF(200, 100, sampleContent)

	const n = 12
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = r.Rasterize(context.Background(), documents.NewFile("resume.pdf", "application/pdf", data))
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, inits.Load(), "engine initializations")
	assert.EqualValues(t, 1, loader.Attempts())
	assert.Equal(t, Ready, loader.State())

	paths := map[string]bool{}
	for i, res := range results {
		require.NoError(t, res.Err, "caller %d", i)
		require.NotNil(t, res.Image)
		assert.False(t, paths[res.Image.Path], "caller %d reused %s", i, res.Image.Path)
		paths[res.Image.Path] = true
		res.Image.Release()
	}
}

func TestRasterizeReportsFailingStep(t *testing.T) {
	panicky := NewLoader(func(context.Context) (Engine, error) {
		return &stubEngine{open: func([]byte) (Document, error) { panic("corrupt xref") }}, nil
	})

	cases := []struct {
		name   string
		loader *Loader
		file   documents.File
		step   Step
	}{
		{"empty file", NewLoader(NewPDFEngine), documents.NewFile("a.pdf", "application/pdf", nil), StepRead},
		{"not a pdf", NewLoader(NewPDFEngine), documents.NewFile("a.pdf", "application/pdf", []byte("hello, this is not a PDF document at all")), StepParse},
		{"engine panic", panicky, documents.NewFile("a.pdf", "application/pdf", []byte("%PDF-1.4\n")), StepParse},
		{"load failure", NewLoader(func(context.Context) (Engine, error) { return nil, errors.New("no fonts") }), documents.NewFile("a.pdf", "", []byte("x")), StepLoad},
		{"load panic", NewLoader(func(context.Context) (Engine, error) { panic("no fonts") }), documents.NewFile("a.pdf", "", []byte("x")), StepLoad},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newTestRasterizer(t, tc.loader).Rasterize(context.Background(), tc.file)
			assert.False(t, res.OK())
			assert.Nil(t, res.Image)
			assert.Nil(t, res.File)

			var se *StepError
			require.ErrorAs(t, res.Err, &se)
			assert.Equal(t, tc.step, se.Step)
			assert.True(t, strings.HasPrefix(se.Error(), stepMessages[tc.step]), "message %q", se.Error())
		})
	}
}

func TestRasterizeWithoutEnvironment(t *testing.T) {
	res := newTestRasterizer(t, NewLoader(nil)).Rasterize(context.Background(), documents.NewFile("a.pdf", "", []byte("x")))
	require.ErrorIs(t, res.Err, ErrEnvironmentUnavailable)

	var se *StepError
	assert.False(t, errors.As(res.Err, &se), "environment errors are not step errors")
}

func TestImageReleaseRemovesFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "page-*.png")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	img := &Image{Path: f.Name()}
	img.Release()
	img.Release()
	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err), "stat err=%v", err)
}

func TestPNGName(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":     "resume.png",
		"Resume.PDF":     "Resume.png",
		"cv.final.Pdf":   "cv.final.png",
		"notes.txt":      "notes.png",
		"resume":         "resume.png",
		"dir/resume.pdf": "resume.png",
		"":               "page.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, PNGName(in), "PNGName(%q)", in)
	}
}

func TestTextRunsJoinZeroWidthGlyphs(t *testing.T) {
	glyphs := []pdfText{
		{X: 10, Y: 60, FontSize: 20, S: "H"},
		{X: 10, Y: 60, FontSize: 20, S: "i"},
		{X: 10, Y: 40, FontSize: 20, S: "\n"},
		{X: 10, Y: 40, FontSize: 12, Font: "Helvetica-Bold", S: "B"},
	}
	runs := textRuns(glyphs)
	require.Len(t, runs, 2)
	assert.Equal(t, "Hi", runs[0].text)
	assert.False(t, runs[0].bold)
	assert.Equal(t, "B", runs[1].text)
	assert.True(t, runs[1].bold)
	assert.EqualValues(t, 12, runs[1].size)
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func hasInk(img image.Image, area image.Rectangle) bool {
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				return true
			}
		}
	}
	return false
}
