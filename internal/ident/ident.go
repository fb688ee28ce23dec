// Package ident generates the opaque identifiers that key analysis records.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// Valid reports whether id is usable as a record key and URL path segment.
func Valid(id string) bool {
	if id == "" || strings.TrimSpace(id) != id {
		return false
	}
	return !strings.ContainsAny(id, "/ \t\r\n")
}
