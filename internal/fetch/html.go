package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// page is what extract pulls out of an HTML document.
type page struct {
	title       string
	description string
	markdown    string
	fellBack    bool // no <article> or <main>; the whole <body> was used
}

// titleSuffix matches a trailing site name such as " | Example" or " - Blog".
var titleSuffix = regexp.MustCompile(`\s+[|–—-]\s+[^|–—]+$`)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Form:     true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Button:   true,
}

// blocks start and end a paragraph.
var blocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Main:       true,
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Table:      true,
	atom.Tr:         true,
	atom.Figure:     true,
	atom.Figcaption: true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Dd:         true,
	atom.Details:    true,
	atom.Summary:    true,
	atom.Hr:         true,
}

var headings = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func extract(body string) (page, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return page{}, err
	}

	var p page
	if n := findFirst(root, atom.Title); n != nil {
		p.title = cleanTitle(textContent(n))
	}
	p.description = metaDescription(root)

	content := findFirst(root, atom.Article)
	if content == nil {
		content = findFirst(root, atom.Main)
	}
	if content == nil {
		p.fellBack = true
		content = findFirst(root, atom.Body)
	}
	if content == nil {
		content = root
	}

	if p.title == "" {
		if h1 := findFirst(content, atom.H1); h1 != nil {
			p.title = collapseSpace(textContent(h1))
		}
	}

	c := &converter{}
	c.walk(content)
	c.flush("")
	p.markdown = strings.Join(c.blocks, "\n\n")
	return p, nil
}

// cleanTitle drops a trailing site name.
func cleanTitle(title string) string {
	title = collapseSpace(title)
	if trimmed := strings.TrimSpace(titleSuffix.ReplaceAllString(title, "")); trimmed != "" {
		return trimmed
	}
	return title
}

func metaDescription(root *html.Node) string {
	var desc string
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "name"), "description") {
			desc = strings.TrimSpace(attr(n, "content"))
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(root)
	return desc
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// converter renders an HTML subtree as markdown paragraphs.
type converter struct {
	blocks []string
	inline strings.Builder
}

// flush closes the pending paragraph, prefixing it (e.g. "## " or "- ").
func (c *converter) flush(prefix string) {
	text := collapseSpace(c.inline.String())
	c.inline.Reset()
	if text != "" {
		c.blocks = append(c.blocks, prefix+text)
	}
}

func (c *converter) walkChildren(n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch)
	}
}

func (c *converter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.inline.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		c.walkChildren(n)
		return
	}

	if skipped[n.DataAtom] {
		return
	}

	if level, ok := headings[n.DataAtom]; ok {
		c.flush("")
		c.walkChildren(n)
		c.flush(strings.Repeat("#", level) + " ")
		return
	}

	switch n.DataAtom {
	case atom.Pre:
		c.flush("")
		code := strings.Trim(textContent(n), "\n")
		if code != "" {
			c.blocks = append(c.blocks, "```"+codeLanguage(n)+"\n"+code+"\n```")
		}
	case atom.Li:
		c.flush("")
		c.walkChildren(n)
		c.flush("- ")
	case atom.Br:
		c.inline.WriteString(" ")
	case atom.Td, atom.Th:
		c.walkChildren(n)
		c.inline.WriteString(" ")
	case atom.Code:
		if text := collapseSpace(textContent(n)); text != "" {
			c.inline.WriteString("`" + text + "`")
		}
	case atom.Strong, atom.B:
		c.wrap(n, "**")
	case atom.Em, atom.I:
		c.wrap(n, "_")
	case atom.A:
		text := collapseSpace(textContent(n))
		href := attr(n, "href")
		switch {
		case text == "":
		case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
			c.inline.WriteString(" [" + text + "](" + href + ") ")
		default:
			c.inline.WriteString(" " + text + " ")
		}
	case atom.Img:
		if src := attr(n, "src"); src != "" {
			c.inline.WriteString(" ![" + collapseSpace(attr(n, "alt")) + "](" + src + ") ")
		}
	default:
		if blocks[n.DataAtom] {
			c.flush("")
			c.walkChildren(n)
			c.flush("")
			return
		}
		c.walkChildren(n)
	}
}

func (c *converter) wrap(n *html.Node, marker string) {
	if text := collapseSpace(textContent(n)); text != "" {
		c.inline.WriteString(" " + marker + text + marker + " ")
	}
}

// codeLanguage reads a fence language from lang, data-lang, or a
// language-* class on the pre or its code child.
func codeLanguage(pre *html.Node) string {
	if l := attr(pre, "lang"); l != "" {
		return l
	}
	if l := attr(pre, "data-lang"); l != "" {
		return l
	}
	for _, n := range []*html.Node{pre, findFirst(pre, atom.Code)} {
		if n == nil {
			continue
		}
		for _, class := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}
