package records

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resume record not found")
	ErrInvalidRecord = errors.New("invalid resume record")
	ErrFeedbackShape = errors.New("feedback does not match the expected shape")
)

// LoginRequiredError is returned by Loader when the caller must sign in first.
// Next is the review location to return to afterwards.
type LoginRequiredError struct {
	Next string
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("login required (next=%s)", e.Next)
}
