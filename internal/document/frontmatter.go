package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a frontmatter block.
const Delimiter = "---"

// Line is a 1-based line of a content file.
type Line struct {
	Number int
	Text   string
}

// frontMatter is the metadata block written at the top of every content file.
type frontMatter struct {
	URL            string           `yaml:"url"`
	Title          string           `yaml:"title"`
	Description    string           `yaml:"description"`
	Slug           string           `yaml:"slug"`
	SavedAt        time.Time        `yaml:"saved_at"`
	Conversion     ConversionSource `yaml:"conversion"`
	TokenCount     int              `yaml:"token_count"`
	TokenEstimated bool             `yaml:"token_estimated"`
}

// Render produces the content file: a YAML frontmatter block followed by the body.
func (d Document) Render() ([]byte, error) {
	meta, err := yaml.Marshal(frontMatter{
		URL:            d.URL,
		Title:          d.Title,
		Description:    d.Description,
		Slug:           d.Slug,
		SavedAt:        d.SavedAt,
		Conversion:     d.ConversionSource,
		TokenCount:     d.TokenCount,
		TokenEstimated: d.TokenEstimated,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	buf.Write(meta)
	buf.WriteString(Delimiter + "\n\n")
	buf.WriteString(d.Body)
	if d.Body != "" && !strings.HasSuffix(d.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// SplitLines splits file content into lines, dropping line terminators.
// A trailing newline does not produce an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// frontmatterEnd returns the index of the first line after a leading
// frontmatter block, or 0 if the lines do not start with a closed block.
func frontmatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != Delimiter {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == Delimiter {
			return i + 1
		}
	}
	return 0
}

// SkipFrontmatter returns the lines after a leading frontmatter block, numbered
// by their position in the raw file (frontmatter lines still count).
func SkipFrontmatter(lines []string) []Line {
	start := frontmatterEnd(lines)
	out := make([]Line, 0, len(lines)-start)
	for i, text := range lines[start:] {
		out = append(out, Line{Number: start + i + 1, Text: text})
	}
	return out
}

// StripFrontmatter removes a leading frontmatter block and the blank space that
// follows it. Text without a closed block is returned unchanged.
func StripFrontmatter(text string) string {
	lines := strings.Split(text, "\n")
	start := frontmatterEnd(lines)
	if start == 0 {
		return text
	}
	return strings.TrimLeft(strings.Join(lines[start:], "\n"), " \t\r\n")
}

// ParseFrontmatter decodes a leading frontmatter block into a map and returns
// the remaining body. Text without a block yields an empty map.
func ParseFrontmatter(text string) (map[string]any, string, error) {
	lines := strings.Split(text, "\n")
	start := frontmatterEnd(lines)
	if start == 0 {
		return map[string]any{}, text, nil
	}

	meta := map[string]any{}
	raw := strings.Join(lines[1:start-1], "\n")
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, text, fmt.Errorf("parse frontmatter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	body := strings.TrimLeft(strings.Join(lines[start:], "\n"), " \t\r\n")
	return meta, body, nil
}
