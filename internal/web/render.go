package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
	"github.com/hpungsan/shelf/internal/search"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title      string
	Version    string
	Nav        string // active nav item: "collections", "inventory", "search"
	Collection string // current collection, if any
}

// CollectionsPageData is the template data for the collections overview.
type CollectionsPageData struct {
	PageData
	Collections  []ops.CollectionSummary
	TotalEntries int
	LastUpdated  time.Time
}

// CollectionPageData is the template data for one collection's documents.
type CollectionPageData struct {
	PageData
	Items      []ops.DocumentItem
	Pagination ops.Pagination
}

// DocumentPageData is the template data for the reader view.
type DocumentPageData struct {
	PageData
	Document     document.Document
	Outline      []document.Heading
	RenderedHTML template.HTML
	Missing      bool
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Query       string
	Results     []search.Result
	Total       int
	HasQuery    bool
	Collections []string
}

// InventoryPageData is the template data for the inventory page.
type InventoryPageData struct {
	PageData
	Items      []ops.InventoryItem
	Pagination ops.Pagination
	TitleQuery string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	markdown  goldmark.Markdown
	log       *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
		"formatDate":   formatDate,
		"relTime":      relTime,
		"comma":        func(n int) string { return humanize.Comma(int64(n)) },
		"formatTokens": formatTokens,
		"domain":       domain,
		"highlight":    highlight,
		"pathEscape":   url.PathEscape,
		"deref":        deref,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"collections": "collections.html",
		"collection":  "collection.html",
		"document":    "document.html",
		"search":      "search.html",
		"inventory":   "inventory.html",
		"error":       "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, emoji.Emoji),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		log: log,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.log.Error("template not found", "template", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error("template execution failed", "template", page, "block", block, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}
	if sErr.Status >= 500 {
		r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	}

	status := sErr.Status
	message := sErr.Message

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(sErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderMarkdown converts a stored markdown body to HTML. Raw HTML in the
// source is not passed through.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatDate formats a timestamp as "Jan 02, 2006".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 02, 2006")
}

// relTime renders a timestamp relative to now ("3 days ago").
func relTime(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return "never"
		}
		return humanize.Time(v)
	case *time.Time:
		if v == nil || v.IsZero() {
			return "never"
		}
		return humanize.Time(*v)
	}
	return ""
}

// formatTokens renders a token count as "~850 tokens" or "~1.2k tokens".
func formatTokens(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("~%.1fk tokens", float64(n)/1000)
	}
	return fmt.Sprintf("~%d tokens", n)
}

// domain returns the host of a URL, or the URL itself if it does not parse.
func domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// highlight escapes text and wraps case-insensitive occurrences of query in <mark>.
func highlight(text, query string) template.HTML {
	if strings.TrimSpace(query) == "" {
		return template.HTML(template.HTMLEscapeString(text))
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(template.HTMLEscapeString(text[last:loc[0]]))
		b.WriteString("<mark>")
		b.WriteString(template.HTMLEscapeString(text[loc[0]:loc[1]]))
		b.WriteString("</mark>")
		last = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))
	return template.HTML(b.String())
}

// deref dereferences a *time.Time for templates, returning the zero time if nil.
func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
