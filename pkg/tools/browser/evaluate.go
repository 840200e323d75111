package browser

import (
	"context"
	"time"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type evaluateParams struct {
	TabTarget
	Expression string `json:"expression"`
	Arg        any    `json:"arg"`
	Timeout    int    `json:"timeout"`
}

type evaluateElementParams struct {
	TabTarget
	Selector   string `json:"selector"`
	Expression string `json:"expression"`
	Arg        any    `json:"arg"`
	Timeout    int    `json:"timeout"`
}

// EvaluateResult carries a script's return value. Undefined and null both
// come back from the driver as nil and are reported as "undefined".
type EvaluateResult struct {
	Result any    `json:"result"`
	Type   string `json:"type"`
}

func (s *toolset) evaluateTools() []tools.Tool {
	return []tools.Tool{
		tools.New("evaluate",
			"Evaluate a JavaScript expression or function in the page and return its JSON-serialisable result.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"expression": tools.String("Expression, or a function such as () => document.title"),
				"arg":        map[string]interface{}{"description": "Argument passed to the function"},
				"timeout":    tools.Timeout(),
			}), []string{"expression"}),
			s.evaluate),

		tools.New("evaluate_on_element",
			"Run a JavaScript function with the matched element as its first argument, e.g. el => el.value.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":   tools.String("CSS or XPath selector"),
				"expression": tools.String("Function receiving the element, e.g. el => el.textContent"),
				"arg":        map[string]interface{}{"description": "Second argument passed to the function"},
				"timeout":    tools.Timeout(),
			}), []string{"selector", "expression"}),
			s.evaluateOnElement),
	}
}

func evaluateResult(v any) EvaluateResult {
	switch v.(type) {
	case nil:
		return EvaluateResult{Result: "undefined", Type: "undefined"}
	case bool:
		return EvaluateResult{Result: v, Type: "boolean"}
	case string:
		return EvaluateResult{Result: v, Type: "string"}
	case int, int64, float64:
		return EvaluateResult{Result: v, Type: "number"}
	case []interface{}:
		return EvaluateResult{Result: v, Type: "array"}
	}
	return EvaluateResult{Result: v, Type: "object"}
}

func (s *toolset) evaluate(ctx context.Context, p evaluateParams) (any, error) {
	if err := ValidateScript(p.Expression); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.t.script(p.Timeout))*time.Millisecond)
	defer cancel()

	v, err := call(ctx, tab, func() (interface{}, error) {
		if p.Arg != nil {
			return tab.Page.Evaluate(p.Expression, p.Arg)
		}
		return tab.Page.Evaluate(p.Expression)
	})
	if err != nil {
		return nil, err
	}
	return evaluateResult(v), nil
}

func (s *toolset) evaluateOnElement(ctx context.Context, p evaluateElementParams) (any, error) {
	if err := ValidateScript(p.Expression); err != nil {
		return nil, err
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	timeout := s.t.script(p.Timeout)
	if err := present(ctx, tab, loc, p.Selector, s.t.action(p.Timeout)); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
	defer cancel()

	v, err := call(ctx, tab, func() (interface{}, error) {
		return loc.Evaluate(p.Expression, p.Arg)
	})
	if err != nil {
		return nil, err
	}
	return evaluateResult(v), nil
}
