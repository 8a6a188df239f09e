// Package fetch turns a URL into a document. Servers that answer with
// text/markdown are trusted as-is; HTML is reduced to readable markdown
// locally.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/logger"
)

const (
	// AcceptHeader asks for markdown first.
	AcceptHeader = "text/markdown, text/html"

	// TokensHeader carries the server-side token count of a markdown response.
	TokensHeader = "x-markdown-tokens"

	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes = 10 << 20
)

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	now       func() time.Time
	log       *slog.Logger
}

// New builds a Fetcher from config. A nil config uses defaults.
func New(cfg *config.Config) *Fetcher {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.FetchIntervalMillis > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.FetchIntervalMillis)*time.Millisecond), 1)
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: ua,
		limiter:   limiter,
		now:       time.Now,
		log:       logger.WithComponent("fetch"),
	}
}

// Fetch downloads url and builds a document from the response.
// Every failure is a FETCH_FAILED error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (document.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return document.Document{}, errors.NewFetchFailed(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return document.Document{}, errors.NewFetchFailed(url, err)
	}
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return document.Document{}, errors.NewFetchFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return document.Document{}, errors.NewFetchFailed(url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := readUTF8(resp.Body, contentType)
	if err != nil {
		return document.Document{}, errors.NewFetchFailed(url, fmt.Errorf("read body: %w", err))
	}

	f.log.Debug("fetched", "url", url, "status", resp.StatusCode, "content_type", contentType, "bytes", len(body))

	if isMarkdown(contentType) {
		return f.fromMarkdown(url, body, resp.Header.Get(TokensHeader)), nil
	}
	return f.fromHTML(url, body)
}

func (f *Fetcher) fromMarkdown(url, body, tokens string) document.Document {
	in := document.NewInput{
		URL:        url,
		Markdown:   body,
		Conversion: document.ConversionRemote,
		TokenCount: -1,
	}

	meta, _, err := document.ParseFrontmatter(body)
	if err != nil {
		f.log.Warn("ignoring malformed frontmatter", "url", url, "error", err)
	}
	in.Title = metaString(meta, "title")
	in.Description = metaString(meta, "description")

	if n, err := strconv.Atoi(strings.TrimSpace(tokens)); err == nil && n >= 0 {
		in.TokenCount = n
	}
	return document.New(in, f.now())
}

func (f *Fetcher) fromHTML(url, body string) (document.Document, error) {
	page, err := extract(body)
	if err != nil {
		return document.Document{}, errors.NewFetchFailed(url, fmt.Errorf("parse html: %w", err))
	}
	if page.fellBack {
		f.log.Warn("no article content found, using full body", "url", url)
	}
	return document.New(document.NewInput{
		URL:         url,
		Title:       page.title,
		Description: page.description,
		Markdown:    page.markdown,
		Conversion:  document.ConversionLocal,
		TokenCount:  -1,
	}, f.now()), nil
}

// readUTF8 reads at most MaxBodyBytes and converts from the declared (or
// sniffed) charset to UTF-8.
func readUTF8(r io.Reader, contentType string) (string, error) {
	cr, err := charset.NewReader(io.LimitReader(r, MaxBodyBytes), contentType)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(cr)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func isMarkdown(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/markdown")
	}
	return mediaType == "text/markdown"
}

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
