package browser

import (
	"context"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"
)

const elementAttrsScript = `el => {
	const implicit = () => {
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (tag === 'button') return 'button';
		if (tag === 'a' && el.hasAttribute('href')) return 'link';
		if (tag === 'select') return 'combobox';
		if (tag === 'textarea') return 'textbox';
		if (tag === 'input') {
			if (['button', 'submit', 'reset'].includes(type)) return 'button';
			if (type === 'checkbox') return 'checkbox';
			if (type === 'radio') return 'radio';
			if (['', 'text', 'email', 'search', 'tel', 'url', 'password'].includes(type)) return 'textbox';
		}
		if (/^h[1-6]$/.test(tag)) return 'heading';
		return '';
	};
	const testAttr = ['data-testid', 'data-test', 'data-cy'].find(a => el.hasAttribute(a)) || '';
	return {
		tag: el.tagName.toLowerCase(),
		id: el.id || '',
		test_id_attr: testAttr,
		test_id: testAttr ? el.getAttribute(testAttr) : '',
		role: el.getAttribute('role') || implicit(),
		aria_label: el.getAttribute('aria-label') || '',
		placeholder: el.getAttribute('placeholder') || '',
		name: el.getAttribute('name') || '',
		text: (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ').substring(0, 100),
	};
}`

// ElementAttrs are the attributes generate_locator builds candidates from.
type ElementAttrs struct {
	Tag         string
	ID          string
	TestIDAttr  string
	TestID      string
	Role        string
	AriaLabel   string
	Placeholder string
	Name        string
	Text        string
}

// LocatorCandidate is one selector suggestion for an element.
type LocatorCandidate struct {
	Strategy    string `json:"strategy"`
	Selector    string `json:"selector"`
	Reliability string `json:"reliability"`
	Matches     int    `json:"matches"`
	Unique      bool   `json:"unique"`
}

var generatedID = regexp.MustCompile(`\d`)

// maxLocatorText is the longest visible text used for a text locator.
const maxLocatorText = 50

// cssString quotes v for use inside a CSS attribute selector or a
// Playwright engine argument.
func cssString(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

// locatorCandidates returns selectors for an element, most durable first.
// Every selector is one the selector-taking tools accept.
func locatorCandidates(a ElementAttrs) []LocatorCandidate {
	out := []LocatorCandidate{}
	add := func(strategy, selector, reliability string) {
		out = append(out, LocatorCandidate{Strategy: strategy, Selector: selector, Reliability: reliability})
	}
	if a.TestID != "" {
		attr := a.TestIDAttr
		if attr == "" {
			attr = "data-testid"
		}
		add(StrategyTestID, "["+attr+"="+cssString(a.TestID)+"]", "high")
	}
	if a.Role != "" {
		name := a.AriaLabel
		if name == "" && len(a.Text) <= maxLocatorText {
			name = a.Text
		}
		if name != "" {
			add(StrategyRole, "role="+a.Role+"[name="+cssString(name)+"]", "high")
		}
	}
	if a.Placeholder != "" {
		add(StrategyPlaceholder, "[placeholder="+cssString(a.Placeholder)+"]", "medium")
	}
	if a.AriaLabel != "" {
		add("aria_label", "[aria-label="+cssString(a.AriaLabel)+"]", "medium")
	}
	if a.Text != "" && len(a.Text) <= maxLocatorText {
		add(StrategyText, "text="+cssString(a.Text), "medium")
	}
	if a.ID != "" {
		rel := "high"
		if generatedID.MatchString(a.ID) || hashLike.MatchString(a.ID) {
			rel = "low"
		}
		add(StrategyCSS, idSelector(a.ID), rel)
	}
	if a.Name != "" && a.Tag != "" {
		add(StrategyCSS, a.Tag+"[name="+cssString(a.Name)+"]", "medium")
	}
	return out
}

// idSelector returns #id, or an attribute selector when id is not a
// plain CSS identifier.
func idSelector(id string) string {
	for i, r := range id {
		plain := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !plain {
			return "[id=" + cssString(id) + "]"
		}
	}
	return "#" + id
}

func (s *toolset) generateLocator(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	timeout := s.t.selector(p.Timeout)
	if err := present(ctx, tab, loc, p.Selector, timeout); err != nil {
		return nil, err
	}
	v, err := call(ctx, tab, func() (interface{}, error) {
		return loc.Evaluate(elementAttrsScript, nil, playwright.LocatorEvaluateOptions{Timeout: playwright.Float(timeout)})
	})
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	attrs := ElementAttrs{
		Tag:         str(m, "tag"),
		ID:          str(m, "id"),
		TestIDAttr:  str(m, "test_id_attr"),
		TestID:      str(m, "test_id"),
		Role:        str(m, "role"),
		AriaLabel:   str(m, "aria_label"),
		Placeholder: str(m, "placeholder"),
		Name:        str(m, "name"),
		Text:        str(m, "text"),
	}
	candidates := locatorCandidates(attrs)
	for i := range candidates {
		n, err := call(ctx, tab, locate(tab.Page, candidates[i].Selector).Count)
		if err != nil {
			// A candidate the engine rejects is dropped from the ranking below.
			continue
		}
		candidates[i].Matches = n
		candidates[i].Unique = n == 1
	}
	best := ""
	for _, c := range candidates {
		if c.Unique {
			best = c.Selector
			break
		}
	}
	return map[string]any{
		"selector":    p.Selector,
		"tag":         attrs.Tag,
		"candidates":  candidates,
		"recommended": best,
	}, nil
}
