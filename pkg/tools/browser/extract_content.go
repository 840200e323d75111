package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tokenizer"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const (
	// DefaultMaxLength is the default extract_content size in characters.
	DefaultMaxLength  = 10000
	defaultQueryLimit = 100
)

const inspectScript = `el => {
	const style = getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	return {
		tagName: el.tagName,
		id: el.id,
		className: typeof el.className === 'string' ? el.className : '',
		name: el.name,
		type: el.type,
		value: el.value,
		href: el.href,
		src: el.src,
		innerText: el.innerText ? el.innerText.substring(0, 200) : '',
		innerHTML: el.innerHTML ? el.innerHTML.substring(0, 500) : '',
		isVisible: el.offsetParent !== null || style.position === 'fixed',
		rect: {x: rect.x, y: rect.y, width: rect.width, height: rect.height},
		attributes: Array.from(el.attributes || []).map(a => ({name: a.name, value: a.value})),
		computedStyle: {display: style.display, visibility: style.visibility, opacity: style.opacity},
	};
}`

type optionalSelectorParams struct {
	TabTarget
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

type getHTMLParams struct {
	TabTarget
	Selector  string `json:"selector"`
	Outer     *bool  `json:"outer"`
	Clean     bool   `json:"clean"`
	MaxLength int    `json:"max_length"`
	Timeout   int    `json:"timeout"`
}

type attributeParams struct {
	TabTarget
	Selector  string `json:"selector"`
	Attribute string `json:"attribute"`
	Timeout   int    `json:"timeout"`
}

type queryAllParams struct {
	TabTarget
	Selector string `json:"selector"`
	Extract  string `json:"extract"`
	Limit    int    `json:"limit"`
	Timeout  int    `json:"timeout"`
}

type extractContentParams struct {
	TabTarget
	Format    string `json:"format"`
	Selector  string `json:"selector"`
	MaxLength int    `json:"max_length"`
	MaxTokens int    `json:"max_tokens"`
	Timeout   int    `json:"timeout"`
}

// ExtractedContent is the result of extract_content.
type ExtractedContent struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	Source    string `json:"source"`
	Length    int    `json:"length"`
	Tokens    int    `json:"tokens"`
	Truncated bool   `json:"truncated"`
	Content   any    `json:"content"`
}

func (s *toolset) extractionTools() []tools.Tool {
	return []tools.Tool{
		tools.New("get_text",
			"Get the rendered text of an element, or of the whole page when no selector is given.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector (defaults to body)"),
				"timeout":  tools.Timeout(),
			}), nil),
			s.getText),

		tools.New("get_html",
			"Get the HTML of an element or the whole page. With clean=true, scripts, styles and noise attributes are stripped.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":   tools.String("CSS or XPath selector (defaults to the full document)"),
				"outer":      tools.Boolean("Include the element itself (default true)"),
				"clean":      tools.Boolean("Strip scripts, styles and non-semantic attributes"),
				"max_length": tools.IntegerRange("Character limit for cleaned HTML", 100, 1000000),
				"timeout":    tools.Timeout(),
			}), nil),
			s.getHTML),

		tools.New("get_attribute",
			"Get an attribute of an element. Returns null when the attribute is absent.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":  tools.String("CSS or XPath selector"),
				"attribute": tools.String("Attribute name, e.g. href"),
				"timeout":   tools.Timeout(),
			}), []string{"selector", "attribute"}),
			s.getAttribute),

		tools.New("query_selector_all",
			"Extract text, HTML or an attribute from every element matching a selector.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector"),
				"extract":  tools.String(`"text" (default), "html", or an attribute name`),
				"limit":    tools.IntegerRange("Maximum number of elements (default 100)", 1, 10000),
				"timeout":  tools.Timeout(),
			}), []string{"selector"}),
			s.querySelectorAll),

		tools.New("inspect_element",
			"Describe an element: tag, attributes, bounding box, visibility and key computed styles.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector"),
				"timeout":  tools.Timeout(),
			}), []string{"selector"}),
			s.inspectElement),

		tools.New("extract_content",
			"Extract readable page content as markdown, plain text or structured JSON (title, headings, links, text).",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"format":     tools.Enum("Output format (default markdown)", FormatMarkdown, FormatText, FormatStructured),
				"selector":   tools.String("Limit extraction to this element, e.g. article or main"),
				"max_length": tools.IntegerRange("Maximum characters (default 10000)", 100, 100000),
				"max_tokens": tools.IntegerRange("Maximum tokens (cl100k_base)", 10, 100000),
				"timeout":    tools.Timeout(),
			}), nil),
			s.extractContent),
	}
}

func (s *toolset) getText(ctx context.Context, p optionalSelectorParams) (any, error) {
	selector := p.Selector
	if selector == "" {
		selector = "body"
	}
	tab, loc, err := s.element(p.TabTarget, selector)
	if err != nil {
		return nil, err
	}
	text, err := call(ctx, tab, func() (string, error) {
		return loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": text, "length": len(text)}, nil
}

// rawHTML returns the outer (or inner) HTML of selector, or the document
// when selector is empty.
func (s *toolset) rawHTML(ctx context.Context, target TabTarget, selector string, outer bool, timeout int) (*Tab, string, error) {
	if selector == "" {
		tab, err := s.page(target)
		if err != nil {
			return nil, "", err
		}
		content, err := call(ctx, tab, tab.Page.Content)
		return tab, content, err
	}
	tab, loc, err := s.element(target, selector)
	if err != nil {
		return nil, "", err
	}
	var content string
	if outer {
		content, err = call(ctx, tab, func() (string, error) {
			v, err := loc.Evaluate("el => el.outerHTML", nil, playwright.LocatorEvaluateOptions{Timeout: playwright.Float(s.t.action(timeout))})
			if err != nil {
				return "", err
			}
			str, _ := v.(string)
			return str, nil
		})
	} else {
		content, err = call(ctx, tab, func() (string, error) {
			return loc.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: playwright.Float(s.t.action(timeout))})
		})
	}
	return tab, content, err
}

func (s *toolset) getHTML(ctx context.Context, p getHTMLParams) (any, error) {
	outer := p.Outer == nil || *p.Outer
	_, raw, err := s.rawHTML(ctx, p.TabTarget, p.Selector, outer, p.Timeout)
	if err != nil {
		return nil, err
	}
	if !p.Clean {
		return map[string]any{"html": raw, "length": len(raw)}, nil
	}
	cleaned, err := cleanHTML(raw, p.MaxLength)
	if err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "clean html")
	}
	return cleaned, nil
}

func (s *toolset) getAttribute(ctx context.Context, p attributeParams) (any, error) {
	if p.Attribute == "" {
		return nil, invalid("attribute cannot be empty")
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	value, err := call(ctx, tab, func() (interface{}, error) {
		return loc.Evaluate("(el, name) => el.getAttribute(name)", p.Attribute,
			playwright.LocatorEvaluateOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"attribute": p.Attribute, "value": value}, nil
}

func (s *toolset) querySelectorAll(ctx context.Context, p queryAllParams) (any, error) {
	if err := ValidateSelector(p.Selector); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	extract := p.Extract
	if extract == "" {
		extract = "text"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	loc := locate(tab.Page, p.Selector)
	values, err := call(ctx, tab, func() (interface{}, error) {
		return loc.EvaluateAll(`(els, [mode, limit]) => els.slice(0, limit).map(el => {
			if (mode === 'text') return el.innerText;
			if (mode === 'html') return el.innerHTML;
			return el.getAttribute(mode);
		})`, []interface{}{extract, limit})
	})
	if err != nil {
		return nil, err
	}
	total, err := call(ctx, tab, func() (int, error) { return loc.Count() })
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []interface{}{}
	}
	return map[string]any{"selector": p.Selector, "extract": extract, "count": total, "values": values}, nil
}

func (s *toolset) inspectElement(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	if err := present(ctx, tab, loc, p.Selector, s.t.action(p.Timeout)); err != nil {
		return nil, err
	}
	return call(ctx, tab, func() (interface{}, error) {
		return loc.Evaluate(inspectScript, nil, playwright.LocatorEvaluateOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
}

func (s *toolset) extractContent(ctx context.Context, p extractContentParams) (any, error) {
	format := p.Format
	if format == "" {
		format = FormatMarkdown
	}
	switch format {
	case FormatMarkdown, FormatText, FormatStructured:
	default:
		return nil, invalid("invalid format %q (must be markdown, text or structured)", p.Format)
	}
	maxLength := p.MaxLength
	if maxLength == 0 {
		maxLength = DefaultMaxLength
	}
	if maxLength < 100 || maxLength > 100000 {
		return nil, invalid("max_length must be between 100 and 100000")
	}

	tab, raw, err := s.rawHTML(ctx, p.TabTarget, p.Selector, true, p.Timeout)
	if err != nil {
		return nil, err
	}

	source := "entire page"
	if p.Selector != "" {
		source = "selector: " + p.Selector
	}
	res := ExtractedContent{URL: tab.Page.URL(), Format: format, Source: source}

	var text string
	var structured *PageContent
	if format == FormatStructured {
		structured, err = Outline(raw)
		if err == nil {
			text = structured.Text
		}
	} else {
		text, err = Render(raw, format)
	}
	if err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "extract content")
	}

	if len(text) > maxLength {
		text = clip(text, maxLength)
		res.Truncated = true
	}
	tok := tokenizer.Default()
	if p.MaxTokens > 0 {
		var cut bool
		text, cut = tok.Truncate(text, p.MaxTokens)
		res.Truncated = res.Truncated || cut
	}
	res.Length = len(text)
	res.Tokens = tok.CountTokens(text)

	if structured != nil {
		structured.Text = text
		res.Content = structured
	} else {
		res.Content = text
	}
	return res, nil
}
