package browser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Content formats produced by extract_content.
const (
	FormatMarkdown   = "markdown"
	FormatText       = "text"
	FormatStructured = "structured"
)

var (
	skippedTags = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "head")
	blockTags   = set("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "form", "fieldset",
		"blockquote", "pre", "figure", "figcaption", "dl", "dt", "dd", "hr", "details", "summary")
	voidTags    = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr")
	globalAttrs = set("id", "class", "role", "name", "aria-label", "aria-describedby")
	tagAttrs    = map[string]map[string]bool{
		"a":        set("href", "target"),
		"img":      set("src", "alt"),
		"input":    set("type", "placeholder", "value"),
		"textarea": set("placeholder"),
		"select":   set("multiple"),
		"button":   set("type"),
		"form":     set("action", "method"),
		"label":    set("for"),
	}

	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// CleanedHTML is markup with scripts, styles and noise attributes removed.
type CleanedHTML struct {
	HTML        string `json:"html"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Truncated   bool   `json:"truncated"`
}

// cleanHTML strips rawHTML down to its semantic structure and the attributes
// useful for targeting elements, cut at maxLength characters.
func cleanHTML(rawHTML string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	c := &cleaner{max: maxLength}
	c.node(doc, 0)
	return &CleanedHTML{
		HTML:        c.b.String(),
		Title:       findTitle(doc),
		Description: findMeta(doc, "description"),
		Truncated:   c.truncated,
	}, nil
}

type cleaner struct {
	b         strings.Builder
	n         int
	max       int
	truncated bool
}

func (c *cleaner) node(n *html.Node, depth int) {
	if c.truncated {
		return
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(strings.TrimSpace(n.Data))
		return
	case html.ElementNode:
		if skippedTags[n.Data] {
			return
		}
		c.element(n, depth)
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.node(ch, depth)
	}
}

func (c *cleaner) text(s string) {
	if s == "" {
		return
	}
	if c.max > 0 && c.n+len(s) > c.max {
		s = s[:max(c.max-c.n, 0)] + "..."
		c.truncated = true
	}
	c.b.WriteString(s)
	c.n += len(s)
}

func (c *cleaner) element(n *html.Node, depth int) {
	tag := n.Data
	block := blockTags[tag]
	if depth > 0 && block {
		c.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	c.b.WriteString("<" + tag)
	for _, a := range n.Attr {
		if keepAttr(tag, a.Key) {
			fmt.Fprintf(&c.b, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
	}
	c.b.WriteString(">")
	c.n += len(tag) + 2
	if voidTags[tag] {
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.node(ch, depth+1)
	}
	if block {
		c.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	c.b.WriteString("</" + tag + ">")
	c.n += len(tag) + 3
}

func keepAttr(tag, attr string) bool {
	attr = strings.ToLower(attr)
	return globalAttrs[attr] || strings.HasPrefix(attr, "data-") || tagAttrs[tag][attr]
}

// Heading is one h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one anchor with an href.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// PageContent is the structured form of a page.
type PageContent struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Headings    []Heading `json:"headings"`
	Links       []Link    `json:"links"`
	Text        string    `json:"text"`
}

// renderer turns a DOM into markdown or plain text. In plain mode, markup
// such as link targets and emphasis is dropped.
type renderer struct {
	b     strings.Builder
	plain bool
	lists []listState
	pre   int
}

type listState struct {
	ordered bool
	n       int
}

// Render converts rawHTML to the given format. Structured output is built by
// Outline.
func Render(rawHTML, format string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	r := &renderer{plain: format == FormatText}
	r.walk(doc)
	out := r.b.String()
	if !r.plain {
		if title := findTitle(doc); title != "" && !strings.HasPrefix(strings.TrimSpace(out), "# ") {
			out = "# " + title + "\n\n" + out
		}
	}
	return tidy(out), nil
}

// Outline extracts title, headings, links and plain text from rawHTML.
func Outline(rawHTML string) (*PageContent, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	pc := &PageContent{
		Title:       findTitle(doc),
		Description: findMeta(doc, "description"),
		Headings:    []Heading{},
		Links:       []Link{},
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedTags[n.Data] {
				return
			}
			if lvl := headingLevel(n.Data); lvl > 0 {
				if t := inlineText(n); t != "" {
					pc.Headings = append(pc.Headings, Heading{Level: lvl, Text: t})
				}
			}
			if n.Data == "a" {
				if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "javascript:") {
					pc.Links = append(pc.Links, Link{Text: inlineText(n), Href: href})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	r := &renderer{plain: true}
	r.walk(doc)
	pc.Text = tidy(r.b.String())
	return pc, nil
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		r.text(n.Data)
		return
	case html.ElementNode:
		if skippedTags[n.Data] {
			return
		}
		r.element(n)
		return
	}
	r.children(n)
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func (r *renderer) text(s string) {
	if r.pre > 0 {
		r.b.WriteString(s)
		return
	}
	s = spaceRun.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " ")
	if strings.TrimSpace(s) == "" {
		if s != "" && !r.atLineStart() {
			r.b.WriteString(" ")
		}
		return
	}
	if r.atLineStart() {
		s = strings.TrimLeft(s, " ")
	}
	r.b.WriteString(s)
}

func (r *renderer) atLineStart() bool {
	str := r.b.String()
	return str == "" || strings.HasSuffix(str, "\n") || strings.HasSuffix(str, " ")
}

func (r *renderer) block() {
	str := r.b.String()
	switch {
	case str == "", strings.HasSuffix(str, "\n\n"):
	case strings.HasSuffix(str, "\n"):
		r.b.WriteString("\n")
	default:
		r.b.WriteString("\n\n")
	}
}

func (r *renderer) line() {
	if str := r.b.String(); str != "" && !strings.HasSuffix(str, "\n") {
		r.b.WriteString("\n")
	}
}

func (r *renderer) element(n *html.Node) {
	tag := n.Data
	switch {
	case headingLevel(tag) > 0:
		r.block()
		if !r.plain {
			r.b.WriteString(strings.Repeat("#", headingLevel(tag)) + " ")
		}
		r.b.WriteString(inlineText(n))
		r.block()
		return

	case tag == "br":
		r.b.WriteString("\n")
		return

	case tag == "hr":
		r.block()
		if !r.plain {
			r.b.WriteString("---")
			r.block()
		}
		return

	case tag == "ul" || tag == "ol":
		r.block()
		r.lists = append(r.lists, listState{ordered: tag == "ol"})
		r.children(n)
		r.lists = r.lists[:len(r.lists)-1]
		r.block()
		return

	case tag == "li":
		r.line()
		depth := len(r.lists)
		if depth > 0 {
			r.b.WriteString(strings.Repeat("  ", depth-1))
			ls := &r.lists[depth-1]
			ls.n++
			if ls.ordered {
				fmt.Fprintf(&r.b, "%d. ", ls.n)
			} else {
				r.b.WriteString("- ")
			}
		} else {
			r.b.WriteString("- ")
		}
		r.children(n)
		r.line()
		return

	case tag == "a":
		href := attr(n, "href")
		text := inlineText(n)
		if r.plain || href == "" || strings.HasPrefix(href, "javascript:") {
			r.text(text)
			return
		}
		r.b.WriteString("[" + text + "](" + href + ")")
		return

	case tag == "img":
		alt := attr(n, "alt")
		if alt == "" {
			return
		}
		if r.plain {
			r.text(alt)
			return
		}
		r.b.WriteString("![" + alt + "](" + attr(n, "src") + ")")
		return

	case tag == "strong" || tag == "b":
		r.wrap(n, "**")
		return

	case tag == "em" || tag == "i":
		r.wrap(n, "_")
		return

	case tag == "code" && r.pre == 0:
		r.wrap(n, "`")
		return

	case tag == "pre":
		r.block()
		if !r.plain {
			r.b.WriteString("```\n")
		}
		r.pre++
		r.children(n)
		r.pre--
		if !r.plain {
			r.line()
			r.b.WriteString("```")
		}
		r.block()
		return

	case tag == "blockquote":
		r.block()
		inner := &renderer{plain: r.plain}
		inner.children(n)
		for _, l := range strings.Split(tidy(inner.b.String()), "\n") {
			if !r.plain {
				r.b.WriteString("> ")
			}
			r.b.WriteString(l + "\n")
		}
		r.block()
		return

	case tag == "tr":
		r.line()
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, inlineText(c))
			}
		}
		if r.plain {
			r.b.WriteString(strings.Join(cells, "\t"))
		} else {
			r.b.WriteString("| " + strings.Join(cells, " | ") + " |")
		}
		r.line()
		return
	}

	if blockTags[tag] {
		r.block()
		r.children(n)
		r.block()
		return
	}
	r.children(n)
}

func (r *renderer) wrap(n *html.Node, mark string) {
	text := inlineText(n)
	if text == "" {
		return
	}
	if r.plain {
		r.text(text)
		return
	}
	if !r.atLineStart() {
		r.b.WriteString(" ")
	}
	r.b.WriteString(mark + text + mark)
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// inlineText is the collapsed text content of n.
func inlineText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteString(" ")
		case n.Type == html.ElementNode && skippedTags[n.Data]:
			return
		case n.Type == html.ElementNode && n.Data == "img":
			b.WriteString(attr(n, "alt"))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func findTitle(doc *html.Node) string {
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" }); n != nil {
		return inlineText(n)
	}
	return ""
}

func findMeta(doc *html.Node, name string) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && strings.EqualFold(attr(n, "name"), name)
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}
