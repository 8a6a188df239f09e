package main

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/ops"
)

// printer writes command results either as indented JSON or as styled text.
// Styles degrade to plain text when w is not a terminal.
type printer struct {
	w      io.Writer
	asJSON bool

	title lipgloss.Style
	muted lipgloss.Style
	mark  lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:      w,
		asJSON: asJSON,
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		mark:   r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")).Bold(true),
		good:   r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

// outputJSON marshals v to the printer's writer as JSON.
func (p *printer) outputJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) created(out *ops.CreateCollectionOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if out.Created {
		p.printf("created collection %s\n", p.title.Render(out.Name))
	} else {
		p.printf("collection %s already exists\n", p.title.Render(out.Name))
	}
	return nil
}

func (p *printer) added(out *ops.AddOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	for _, doc := range out.Added {
		p.printf("%s %s %s\n", p.good.Render("+"), p.title.Render(displayTitle(doc)), p.muted.Render(doc.Slug))
	}
	for _, url := range out.Skipped {
		p.printf("%s %s %s\n", p.muted.Render("="), url, p.muted.Render("(already saved)"))
	}
	for _, e := range out.Errors {
		p.printf("%s %s %s\n", p.bad.Render("!"), e.URL, p.bad.Render(e.Message))
	}
	return nil
}

func (p *printer) collections(out *ops.ListCollectionsOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if len(out.Collections) == 0 {
		p.printf("no collections\n")
		return nil
	}
	width := 0
	for _, c := range out.Collections {
		width = max(width, len(c.Name))
	}
	for _, c := range out.Collections {
		last := "never"
		if c.LastAdded != nil {
			last = humanize.Time(*c.LastAdded)
		}
		p.printf("%s  %6s  %s\n",
			p.title.Render(fmt.Sprintf("%-*s", width, c.Name)),
			humanize.Comma(int64(c.EntryCount)),
			p.muted.Render(last))
	}
	p.printf("%s\n", p.muted.Render(fmt.Sprintf("%s documents", humanize.Comma(int64(out.TotalEntries)))))
	return nil
}

func (p *printer) documents(out *ops.ListDocumentsOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if len(out.Items) == 0 {
		p.printf("%s is empty\n", out.Collection)
		return nil
	}
	for _, item := range out.Items {
		p.documentLine(item.Position, item.Document)
	}
	if out.Pagination.HasMore {
		p.printf("%s\n", p.muted.Render(fmt.Sprintf("… %d more (use --offset %d)",
			out.Pagination.Total-out.Pagination.Offset-len(out.Items),
			out.Pagination.Offset+len(out.Items))))
	}
	return nil
}

func (p *printer) documentLine(position int, doc document.Document) {
	p.printf("%4d  %s\n      %s\n",
		position,
		p.title.Render(displayTitle(doc)),
		p.muted.Render(fmt.Sprintf("%s · %s · %s · %s", doc.Slug, host(doc.URL), formatDate(doc.SavedAt), tokens(doc.TokenCount))))
}

func (p *printer) latest(out *ops.LatestOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if out.Item == nil {
		p.printf("%s is empty\n", out.Collection)
		return nil
	}
	p.documentLine(out.Item.Position, out.Item.Document)
	return nil
}

func (p *printer) show(out *ops.ShowOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	doc := out.Document
	if out.Body == "" || out.Missing {
		p.printf("%s\n%s\n", p.title.Render(displayTitle(doc)), p.muted.Render(doc.URL))
		p.printf("%s\n", p.muted.Render(fmt.Sprintf("saved %s · %s · %s", formatDate(doc.SavedAt), tokens(doc.TokenCount), doc.ConversionSource)))
		if out.Missing {
			p.printf("%s\n", p.bad.Render("content file is missing"))
		}
		return nil
	}
	p.printf("%s", out.Body)
	if !strings.HasSuffix(out.Body, "\n") {
		p.printf("\n")
	}
	return nil
}

func (p *printer) outline(out *ops.ShowOutput) error {
	if p.asJSON {
		return p.outputJSON(out.Outline)
	}
	if len(out.Outline) == 0 {
		p.printf("%s\n", p.muted.Render("no headings"))
		return nil
	}
	for _, h := range out.Outline {
		p.printf("%s%s %s\n", strings.Repeat("  ", h.Level-1), h.Text, p.muted.Render(fmt.Sprintf(":%d", h.Line)))
	}
	return nil
}

func (p *printer) removed(out *ops.RemoveOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	p.printf("removed %s from %s\n", p.title.Render(displayTitle(out.Document)), out.Collection)
	return nil
}

func (p *printer) destroyed(out *ops.DestroyOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	p.printf("deleted collection %s\n", p.title.Render(out.Collection))
	return nil
}

func (p *printer) search(out *ops.SearchOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if len(out.Results) == 0 {
		p.printf("no matches for %q\n", out.Query)
		return nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(out.Query))
	for _, r := range out.Results {
		p.printf("%s %s\n", p.title.Render(displayTitle(r.Document)), p.muted.Render(r.CollectionName+"/"+r.Document.Slug))
		for _, m := range r.Matches {
			snippet := re.ReplaceAllStringFunc(m.Snippet, func(s string) string { return p.mark.Render(s) })
			p.printf("  %s %s\n", p.muted.Render(fmt.Sprintf("%5d:", m.LineNumber)), snippet)
		}
	}
	p.printf("%s\n", p.muted.Render(fmt.Sprintf("%d %s", out.Total, plural(out.Total, "document", "documents"))))
	return nil
}

func (p *printer) inventory(out *ops.InventoryOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	if len(out.Items) == 0 {
		p.printf("no documents\n")
		return nil
	}
	for _, item := range out.Items {
		p.printf("%s %s\n", p.title.Render(displayTitle(item.Document)),
			p.muted.Render(fmt.Sprintf("%s/%s · %s", item.Collection, item.Slug, humanize.Time(item.SavedAt))))
	}
	if out.Pagination.HasMore {
		p.printf("%s\n", p.muted.Render(fmt.Sprintf("showing %d of %d", len(out.Items), out.Pagination.Total)))
	}
	return nil
}

func (p *printer) reindexed(out *ops.ReindexOutput) error {
	if p.asJSON {
		return p.outputJSON(out)
	}
	p.printf("reindexed %d %s, %s documents\n",
		len(out.Aggregate.Collections),
		plural(len(out.Aggregate.Collections), "collection", "collections"),
		humanize.Comma(int64(out.Aggregate.TotalEntries)))
	for _, c := range out.Search {
		p.printf("  %s %s\n", c.Name, p.muted.Render(fmt.Sprintf("%s lines indexed", humanize.Comma(int64(c.Lines)))))
	}
	return nil
}

func displayTitle(doc document.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.Slug
}

func host(raw string) string {
	rest, ok := strings.CutPrefix(raw, "https://")
	if !ok {
		rest = strings.TrimPrefix(raw, "http://")
	}
	h, _, _ := strings.Cut(rest, "/")
	return h
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Jan 02, 2006")
}

func tokens(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("~%.1fk tokens", float64(n)/1000)
	}
	return fmt.Sprintf("~%d tokens", n)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
