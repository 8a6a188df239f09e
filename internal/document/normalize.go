package document

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// nonAlnumRegex matches runs of anything that is not a-z or 0-9
var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a string into a collection name or slug base:
// 1. Lowercase
// 2. Collapse runs of non-alphanumerics into a single hyphen
// 3. Trim leading/trailing hyphens
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// EstimateTokens approximates the token count as one token per four characters.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4.0))
}

// TrimExtension removes an optional ".md" suffix from an identifier.
func TrimExtension(identifier string) string {
	return strings.TrimSuffix(identifier, Extension)
}
