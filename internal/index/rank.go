package index

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// density is occurrences of needle per rune of line, case-insensitive.
func density(line, needle string) float64 {
	n := utf8.RuneCountInString(line)
	if n == 0 || needle == "" {
		return 0
	}
	count := strings.Count(fold(line), fold(needle))
	return float64(count) / float64(n)
}

// fold lowercases rune by rune, matching the trigram tokenizer's case folding
// for every script, not just ASCII.
func fold(s string) string {
	return strings.Map(unicode.ToLower, s)
}

func containsFold(line, needle string) bool {
	return strings.Contains(fold(line), fold(needle))
}

// rankByDensity orders rows by match density, then by position.
func rankByDensity(rows []Row, needle string) {
	scores := make([]float64, len(rows))
	order := make([]int, len(rows))
	for i := range rows {
		scores[i] = density(rows[i].Content, needle)
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return compareRows(rows[a], rows[b])
	})
	sorted := make([]Row, len(rows))
	for i, idx := range order {
		sorted[i] = rows[idx]
	}
	copy(rows, sorted)
}

func compareRows(a, b Row) int {
	if c := cmp.Compare(a.Collection, b.Collection); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Filename, b.Filename); c != 0 {
		return c
	}
	return cmp.Compare(a.LineNumber, b.LineNumber)
}
