package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameRunes = 128

// SanitizeFileName removes path separators and control characters and rejects
// traversal patterns. Long names keep their extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}

	runes := []rune(s)
	if len(runes) > maxFileNameRunes {
		ext := ""
		if i := strings.LastIndex(s, "."); i > 0 && len([]rune(s[i:])) <= 10 {
			ext = s[i:]
		}
		keep := maxFileNameRunes - len([]rune(ext))
		s = string(runes[:keep]) + ext
	}
	return s, nil
}
