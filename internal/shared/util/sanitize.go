package util

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe to embed in a storage key: path
// separators and control characters become "_" and ".." sequences are
// collapsed. An unusable name becomes "file".
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	if s == "" || s == "." {
		return "file"
	}
	return s
}
