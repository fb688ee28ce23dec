package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a run is already in progress for the controller's gate.
var ErrBusy = errors.New("analysis already in progress")

// Failure kinds, matched with errors.Is against an *Error.
var (
	ErrEnvironmentUnavailable  = errors.New("environment unavailable")
	ErrRasterization           = errors.New("rasterization failed")
	ErrUpload                  = errors.New("upload failed")
	ErrPersistenceWrite        = errors.New("persistence write failed")
	ErrInference               = errors.New("inference failed")
	ErrFeedbackParse           = errors.New("feedback parse failed")
	ErrPersistenceVerification = errors.New("persistence verification failed")
	ErrInvalidIdentifier       = errors.New("invalid identifier")
)

// Error reports the stage at which a run aborted.
type Error struct {
	Kind  error
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
