package document

import (
	"fmt"
	"regexp"
	"strings"
)

// Heading is one ATX heading of a markdown body.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	// Line is 1-based within the body, not the content file.
	Line int `json:"line"`
	// Anchor is the element id the web reader assigns to the heading.
	Anchor string `json:"anchor"`
}

// headingPattern matches ATX headings (h1-h6) at the start of a line.
// Groups: full match, hash symbols, heading text
var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+([^\n]+?)[ \t]*$`)

// fencePattern matches fenced code block delimiters (``` or ~~~) at the start of a line,
// allowing 0-3 spaces of indentation. Captures the fence characters separately.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// closingHashes matches an optional closing sequence: "## Title ##".
var closingHashes = regexp.MustCompile(`[ \t]+#+$`)

// inlineLink matches [text](target) so only the text is kept.
var inlineLink = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)

// fencedRanges returns byte offset ranges [start, end) for fenced code blocks in text.
// A closing fence must use the same character and be at least as long as the opening one.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false

	for _, match := range matches {
		// match indices: [fullStart, fullEnd, fenceCharsStart, fenceCharsEnd]
		fence := text[match[2]:match[3]]
		switch {
		case !inFence:
			openChar, openLen, openStart = fence[0], len(fence), match[0]
			inFence = true
		case fence[0] == openChar && len(fence) >= openLen:
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// Outline lists the headings of a markdown body in document order.
// Headings inside fenced code blocks are ignored; an unclosed fence hides nothing.
func Outline(body string) []Heading {
	matches := headingPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil
	}

	fences := fencedRanges(body)
	seen := map[string]bool{}
	headings := make([]Heading, 0, len(matches))
	line, scanned := 1, 0

	for _, m := range matches {
		// match indices: [fullStart, fullEnd, hashStart, hashEnd, textStart, textEnd]
		if insideFence(m[0], fences) {
			continue
		}
		line += strings.Count(body[scanned:m[0]], "\n")
		scanned = m[0]

		text := headingText(body[m[4]:m[5]])
		if text == "" {
			continue
		}
		headings = append(headings, Heading{
			Level:  m[3] - m[2],
			Text:   text,
			Line:   line,
			Anchor: uniqueAnchor(anchorID(text), seen),
		})
	}
	return headings
}

// headingText strips closing hashes and common inline markup.
func headingText(raw string) string {
	s := closingHashes.ReplaceAllString(raw, "")
	if strings.Trim(s, "#") == "" {
		return ""
	}
	s = inlineLink.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	return strings.TrimSpace(s)
}

// anchorID derives an element id the way goldmark's auto heading IDs do:
// ASCII letters and digits lowercased, spaces, '-' and '_' become '-',
// everything else dropped.
func anchorID(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "heading"
	}
	return b.String()
}

func uniqueAnchor(id string, seen map[string]bool) string {
	if !seen[id] {
		seen[id] = true
		return id
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", id, i)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}
