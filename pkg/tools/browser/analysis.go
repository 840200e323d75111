package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const sampleScript = `(els, n) => els.slice(0, n).map(el => ({
	tag: el.tagName.toLowerCase(),
	id: el.id,
	class: typeof el.className === 'string' ? el.className : '',
	text: (el.innerText || '').substring(0, 100),
	visible: !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
	attributes: Array.from(el.attributes).slice(0, 10).map(a => ({name: a.name, value: a.value.substring(0, 50)})),
}))`

var (
	hashLike   = regexp.MustCompile(`[a-f0-9]{8,}`)
	longNumber = regexp.MustCompile(`\d{4,}`)
	testIDs    = set("data-testid", "data-test", "data-cy")
)

// SelectorReport describes how a selector resolves on the current page.
type SelectorReport struct {
	Selector    string           `json:"selector"`
	Strategy    string           `json:"strategy"`
	Count       int              `json:"count"`
	Unique      bool             `json:"is_unique"`
	Samples     []map[string]any `json:"samples"`
	Warnings    []string         `json:"warnings"`
	Suggestions []string         `json:"suggestions"`
}

type testSelectorParams struct {
	TabTarget
	Selector   string `json:"selector"`
	MaxSamples int    `json:"max_samples"`
}

type initScriptParams struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}

func (s *toolset) analysisTools() []tools.Tool {
	return []tools.Tool{
		tools.New("test_selector",
			"Count matches for a selector, sample the first elements and flag fragile patterns.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":    tools.String("CSS or XPath selector to test"),
				"max_samples": tools.IntegerRange("Elements to sample (default 5)", 1, 50),
			}), []string{"selector"}),
			s.testSelector),

		tools.New("generate_locator",
			"Suggest durable selectors for the element a selector matches, ranked by reliability with match counts.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector of the element"),
				"timeout":  tools.Timeout(),
			}), []string{"selector"}),
			s.generateLocator),

		tools.New("inject_init_script",
			"Add a script that runs in every new document of the session before page scripts.",
			tools.BaseToolSchema(map[string]interface{}{
				"name":   tools.String("Label for the script"),
				"script": tools.String("JavaScript source"),
			}, []string{"script"}),
			s.injectInitScript),

		tools.New("list_init_scripts",
			"List scripts injected with inject_init_script.",
			tools.BaseToolSchema(nil, nil),
			s.listInitScripts),
	}
}

func selectorStrategy(selector string) string {
	if strings.HasPrefix(normalizeSelector(selector), "xpath=") {
		return StrategyXPath
	}
	if strings.HasPrefix(selector, "text=") {
		return StrategyText
	}
	return StrategyCSS
}

// selectorWarnings flags patterns that tend to break between deployments.
func selectorWarnings(selector string) []string {
	warnings := []string{}
	if hashLike.MatchString(selector) {
		warnings = append(warnings, "contains a hash-like string, possibly auto-generated")
	}
	if longNumber.MatchString(selector) {
		warnings = append(warnings, "contains a long number sequence, possibly auto-generated")
	}
	if strings.Contains(selector, "css-") || strings.Contains(selector, "sc-") {
		warnings = append(warnings, "uses CSS-in-JS class names that change between builds")
	}
	if strings.Count(selector, " > ") > 3 {
		warnings = append(warnings, "nested more than 3 levels deep")
	}
	return warnings
}

func selectorSuggestions(count int, samples []map[string]any) []string {
	out := []string{}
	switch {
	case count == 0:
		out = append(out, "no matches: check spelling, or start broader and narrow down")
	case count > 1:
		out = append(out, fmt.Sprintf("%d matches: add specificity for a unique match", count))
	}
	if len(samples) == 0 {
		return out
	}
	first := samples[0]
	if id, _ := first["id"].(string); id != "" {
		out = append(out, "stable alternative: #"+id)
	}
	attrs, _ := first["attributes"].([]interface{})
	for _, a := range attrs {
		m, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		value, _ := m["value"].(string)
		if testIDs[name] {
			out = append(out, fmt.Sprintf("test id available: [%s=%q]", name, value))
		}
	}
	return out
}

func (s *toolset) testSelector(ctx context.Context, p testSelectorParams) (any, error) {
	samples := p.MaxSamples
	if samples <= 0 {
		samples = 5
	}
	if err := ValidateSelector(p.Selector); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	all := locate(tab.Page, p.Selector)
	count, err := call(ctx, tab, all.Count)
	if err != nil {
		return nil, err
	}

	rep := SelectorReport{
		Selector: p.Selector,
		Strategy: selectorStrategy(p.Selector),
		Count:    count,
		Unique:   count == 1,
		Samples:  []map[string]any{},
		Warnings: selectorWarnings(p.Selector),
	}
	if count > 0 {
		raw, err := call(ctx, tab, func() (interface{}, error) { return all.EvaluateAll(sampleScript, samples) })
		if err != nil {
			return nil, err
		}
		items, _ := raw.([]interface{})
		for _, it := range items {
			if m, ok := it.(map[string]interface{}); ok {
				rep.Samples = append(rep.Samples, m)
			}
		}
	}
	rep.Suggestions = selectorSuggestions(count, rep.Samples)
	return rep, nil
}

func (s *toolset) injectInitScript(ctx context.Context, p initScriptParams) (any, error) {
	if err := ValidateScript(p.Script); err != nil {
		return nil, err
	}
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("script-%d", len(p.Script))
	}
	rec, err := s.m.AddInitScript(ctx, name, p.Script)
	if err != nil {
		return nil, err
	}
	s.logger.Info("init script injected", "name", name, "length", rec.Length)
	return map[string]any{"injected": true, "script": rec, "applies_to": "documents created after injection"}, nil
}

func (s *toolset) listInitScripts(ctx context.Context, _ tools.Empty) (any, error) {
	scripts, err := s.m.InitScripts()
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(scripts), "scripts": scripts}, nil
}
