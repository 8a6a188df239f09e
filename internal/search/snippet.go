package search

import (
	"strings"
	"unicode"
)

const (
	contextBefore  = 40
	contextAfter   = 80
	fallbackLength = 120
	ellipsis       = "..."
)

// Snippet cuts a readable window around the first case-insensitive occurrence
// of query in line. Lengths are in characters. When query does not occur
// literally, the first 120 characters of the line are returned.
func Snippet(line, query string) string {
	text := []rune(strings.TrimSpace(line))
	needle := []rune(query)

	idx := indexFold(text, needle)
	if idx < 0 {
		if len(text) > fallbackLength {
			return string(text[:fallbackLength])
		}
		return string(text)
	}

	start := max(idx-contextBefore, 0)
	end := min(idx+len(needle)+contextAfter, len(text))

	snippet := string(text[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(text) {
		snippet += ellipsis
	}
	return snippet
}

// indexFold returns the rune offset of the first case-insensitive occurrence of
// needle in text, or -1.
func indexFold(text, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(text) {
		return -1
	}
	for i := 0; i+len(needle) <= len(text); i++ {
		if equalFoldAt(text, needle, i) {
			return i
		}
	}
	return -1
}

func equalFoldAt(text, needle []rune, at int) bool {
	for j, r := range needle {
		if unicode.ToLower(text[at+j]) != unicode.ToLower(r) {
			return false
		}
	}
	return true
}
