package documents

import "errors"

var (
	ErrNoFiles     = errors.New("no files to upload")
	ErrInvalidPath = errors.New("invalid document path")
	ErrNotFound    = errors.New("document not found")
	ErrEmpty       = errors.New("document is empty")
)
