package rasterize

import (
	"errors"
	"fmt"
)

// ErrEnvironmentUnavailable is returned when the process has no raster-capable
// rendering engine.
var ErrEnvironmentUnavailable = errors.New("PDF conversion requires a raster rendering environment")

// Step names a failable stage of a conversion.
type Step string

const (
	StepLoad     Step = "load"
	StepRead     Step = "read"
	StepParse    Step = "parse"
	StepPage     Step = "page"
	StepViewport Step = "viewport"
	StepSurface  Step = "surface"
	StepRender   Step = "render"
	StepEncode   Step = "encode"
	StepWrap     Step = "wrap"
)

var stepMessages = map[Step]string{
	StepLoad:     "failed to load rendering engine",
	StepRead:     "failed to read PDF file",
	StepParse:    "failed to load PDF document",
	StepPage:     "failed to get PDF page",
	StepViewport: "failed to compute viewport",
	StepSurface:  "failed to get canvas context",
	StepRender:   "failed to render PDF page",
	StepEncode:   "failed to create image blob from canvas",
	StepWrap:     "failed to write image file",
}

// StepError reports which conversion step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	msg := stepMessages[e.Step]
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
