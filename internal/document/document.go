package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Extension is appended to a slug to form the content filename.
const Extension = ".md"

// hashLength is the number of hex characters of SHA-256(url) kept in a slug.
const hashLength = 6

// ConversionSource records how a page was converted to markdown.
// It is a closed set: the zero value is invalid and never persisted.
type ConversionSource uint8

const (
	// ConversionLocal means HTML was converted by the fetch pipeline itself.
	ConversionLocal ConversionSource = iota + 1
	// ConversionRemote means the server returned markdown directly.
	ConversionRemote
)

// String returns the persisted tag ("local" or "remote").
func (c ConversionSource) String() string {
	switch c {
	case ConversionLocal:
		return "local"
	case ConversionRemote:
		return "remote"
	default:
		return fmt.Sprintf("ConversionSource(%d)", uint8(c))
	}
}

// ParseConversionSource parses a persisted tag. "cloudflare" is accepted as a
// legacy spelling of remote.
func ParseConversionSource(s string) (ConversionSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return ConversionLocal, nil
	case "remote", "cloudflare":
		return ConversionRemote, nil
	default:
		return 0, fmt.Errorf("unknown conversion source %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler (used by both YAML and JSON).
func (c ConversionSource) MarshalText() ([]byte, error) {
	if c != ConversionLocal && c != ConversionRemote {
		return nil, fmt.Errorf("invalid conversion source %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ConversionSource) UnmarshalText(text []byte) error {
	parsed, err := ParseConversionSource(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Document is one archived page. Field order matches the collection log record.
// Body is never written to the log; it lives in the content file.
type Document struct {
	URL              string           `yaml:"url" json:"url"`
	Title            string           `yaml:"title" json:"title"`
	Description      string           `yaml:"description" json:"description"`
	Filename         string           `yaml:"filename" json:"filename"`
	Slug             string           `yaml:"slug" json:"slug"`
	SavedAt          time.Time        `yaml:"saved_at" json:"saved_at"`
	ConversionSource ConversionSource `yaml:"conversion" json:"conversion"`
	TokenCount       int              `yaml:"token_count" json:"token_count"`
	TokenEstimated   bool             `yaml:"token_estimated" json:"token_estimated"`

	Body string `yaml:"-" json:"-"`
}

// NewInput contains the fields the fetch pipeline supplies.
type NewInput struct {
	URL         string
	Title       string
	Description string
	Markdown    string // may still carry a frontmatter block; it is stripped
	Conversion  ConversionSource

	// TokenCount < 0 means unknown: the count is estimated from the body.
	TokenCount int
}

// New builds a Document, deriving slug, filename, savedAt and (if needed)
// the token estimate.
func New(in NewInput, now time.Time) Document {
	title := strings.ToValidUTF8(strings.TrimSpace(in.Title), "\uFFFD")
	description := strings.ToValidUTF8(in.Description, "\uFFFD")
	body := StripFrontmatter(strings.ToValidUTF8(in.Markdown, "\uFFFD"))

	slug := MakeSlug(title, in.URL)

	doc := Document{
		URL:              in.URL,
		Title:            title,
		Description:      description,
		Filename:         slug + Extension,
		Slug:             slug,
		SavedAt:          now.UTC().Truncate(time.Second),
		ConversionSource: in.Conversion,
		TokenCount:       in.TokenCount,
		Body:             body,
	}
	if in.TokenCount < 0 {
		doc.TokenCount = EstimateTokens(body)
		doc.TokenEstimated = true
	}
	return doc
}

// MakeSlug derives the stable identifier: slugified title (or "untitled")
// plus the first six hex characters of SHA-256(url).
func MakeSlug(title, url string) string {
	base := Slugify(title)
	if base == "" {
		base = "untitled"
	}
	sum := sha256.Sum256([]byte(url))
	return base + "-" + hex.EncodeToString(sum[:])[:hashLength]
}

// Summary drops the body, for listings.
func (d Document) Summary() Document {
	d.Body = ""
	return d
}
