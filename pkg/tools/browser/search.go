package browser

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const (
	searchContext     = 50
	defaultMaxResults = 10
)

type searchParams struct {
	TabTarget
	Pattern       string `json:"pattern"`
	Regex         bool   `json:"regex"`
	CaseSensitive bool   `json:"case_sensitive"`
	MaxResults    int    `json:"max_results"`
	Selector      string `json:"selector"`
	Timeout       int    `json:"timeout"`
}

// SearchMatch is one occurrence of the pattern with surrounding text.
type SearchMatch struct {
	Text    string `json:"text"`
	Offset  int    `json:"offset"`
	Context string `json:"context"`
}

func (s *toolset) searchTools() []tools.Tool {
	return []tools.Tool{
		tools.New("search_text",
			"Search the page's rendered text and return each match with 50 characters of context on either side.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"pattern":        tools.String("Text (or regular expression with regex=true) to find"),
				"regex":          tools.Boolean("Treat pattern as a regular expression"),
				"case_sensitive": tools.Boolean("Match case (default false)"),
				"max_results":    tools.IntegerRange("Maximum matches (default 10)", 1, 100),
				"selector":       tools.String("Search only inside this element"),
				"timeout":        tools.Timeout(),
			}), []string{"pattern"}),
			s.searchText),
	}
}

func (s *toolset) searchText(ctx context.Context, p searchParams) (any, error) {
	if p.Pattern == "" {
		return nil, invalid("search pattern is required")
	}
	expr := p.Pattern
	if !p.Regex {
		expr = regexp.QuoteMeta(expr)
	}
	if !p.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, invalid("invalid pattern: %v", err)
	}
	limit := p.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	selector := p.Selector
	if selector == "" {
		selector = "body"
	}
	tab, loc, err := s.element(p.TabTarget, selector)
	if err != nil {
		return nil, err
	}
	body, err := call(ctx, tab, func() (string, error) {
		return loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}

	matches := findMatches(body, re, limit+1)
	limited := len(matches) > limit
	if limited {
		matches = matches[:limit]
	}
	return map[string]any{
		"pattern": p.Pattern,
		"url":     tab.Page.URL(),
		"count":   len(matches),
		"limited": limited,
		"matches": matches,
	}, nil
}

// findMatches returns up to n non-empty matches of re in text.
func findMatches(text string, re *regexp.Regexp, n int) []SearchMatch {
	out := []SearchMatch{}
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		out = append(out, SearchMatch{
			Text:    text[loc[0]:loc[1]],
			Offset:  utf8.RuneCountInString(text[:loc[0]]),
			Context: collapse(around(text, loc[0], loc[1], searchContext)),
		})
		if len(out) >= n {
			break
		}
	}
	return out
}

// around returns text[start:end] widened by up to width runes on each side.
func around(text string, start, end, width int) string {
	lo := start
	for i := 0; i < width && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < width && hi < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[hi:])
		hi += size
	}
	return text[lo:hi]
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
