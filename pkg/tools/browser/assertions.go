package browser

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// Verification is the outcome of an assertion tool. A failed check is a
// normal result; only invalid input or a broken session is an error.
type Verification struct {
	Passed   bool   `json:"passed"`
	Target   string `json:"target"`
	Count    int    `json:"count,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Message  string `json:"message"`
}

type verifyTextParams struct {
	TabTarget
	Text    string `json:"text"`
	Exact   bool   `json:"exact"`
	Timeout int    `json:"timeout"`
}

type verifyValueParams struct {
	TabTarget
	Selector      string `json:"selector"`
	ExpectedValue string `json:"expected_value"`
	Timeout       int    `json:"timeout"`
}

type expectParams struct {
	TabTarget
	Selector  string `json:"selector"`
	Assertion string `json:"assertion"`
	Expected  string `json:"expected"`
	Attribute string `json:"attribute"`
	Exact     bool   `json:"exact"`
	Timeout   int    `json:"timeout"`
}

type verifyListParams struct {
	TabTarget
	Items   []string `json:"items"`
	Ordered bool     `json:"ordered"`
	Timeout int      `json:"timeout"`
}

// Assertions accepted by expect_element. The value says which parameter
// the assertion needs besides the selector.
var assertions = map[string]string{
	"visible":       "",
	"hidden":        "",
	"attached":      "",
	"detached":      "",
	"enabled":       "",
	"disabled":      "",
	"checked":       "",
	"unchecked":     "",
	"focused":       "",
	"editable":      "",
	"empty":         "",
	"has_text":      "expected",
	"has_value":     "expected",
	"has_class":     "expected",
	"has_attribute": "attribute",
}

func assertionNames() []string {
	names := make([]string, 0, len(assertions))
	for n := range assertions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// checkExpectation validates the parameters of an expect_element call.
func checkExpectation(p expectParams) error {
	need, ok := assertions[p.Assertion]
	if !ok {
		return invalid("unknown assertion %q; valid: %s", p.Assertion, strings.Join(assertionNames(), ", "))
	}
	switch need {
	case "expected":
		if p.Expected == "" {
			return invalid("assertion %s requires expected", p.Assertion)
		}
	case "attribute":
		if p.Attribute == "" {
			return invalid("assertion %s requires attribute", p.Assertion)
		}
	}
	return nil
}

func (s *toolset) assertionTools() []tools.Tool {
	selectorOnly := func() map[string]interface{} {
		return tools.BaseToolSchema(withTab(map[string]interface{}{
			"selector": tools.String("CSS or XPath selector"),
			"timeout":  tools.Timeout(),
		}), []string{"selector"})
	}
	return []tools.Tool{
		tools.New("verify_element_visible",
			"Check that an element becomes visible within the timeout. Returns passed=false instead of failing.",
			selectorOnly(),
			s.verifyElementVisible),

		tools.New("verify_element_hidden",
			"Check that an element is hidden or absent within the timeout.",
			selectorOnly(),
			s.verifyElementHidden),

		tools.New("verify_text_visible",
			"Check that the given text is visible on the page.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"text":    tools.String("Text to look for"),
				"exact":   tools.Boolean("Match the whole text exactly"),
				"timeout": tools.Timeout(),
			}), []string{"text"}),
			s.verifyTextVisible),

		tools.New("verify_value",
			"Check the current value of an input, textarea or select.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":       tools.String("CSS or XPath selector of the input"),
				"expected_value": tools.String("Expected value"),
				"timeout":        tools.Timeout(),
			}), []string{"selector", "expected_value"}),
			s.verifyValue),

		tools.New("expect_element",
			"Wait until an element satisfies an assertion such as visible, enabled, checked, has_text or has_attribute. Returns passed=false on timeout.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":  tools.String("CSS or XPath selector"),
				"assertion": tools.Enum("State or property to assert", assertionNames()...),
				"expected":  tools.String("Expected text, value or class for has_text, has_value and has_class"),
				"attribute": tools.String("Attribute name for has_attribute; expected, if set, must equal its value"),
				"exact":     tools.Boolean("has_text: match the whole text instead of a substring"),
				"timeout":   tools.Timeout(),
			}), []string{"selector", "assertion"}),
			s.expectElement),

		tools.New("verify_list_visible",
			"Check that every text in items is visible, optionally in top-to-bottom order.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"items":   tools.Array("Texts that must be visible", tools.String("Item text")),
				"ordered": tools.Boolean("Also require the items to appear in the given order"),
				"timeout": tools.Timeout(),
			}), []string{"items"}),
			s.verifyListVisible),
	}
}

// waitState waits for loc to reach state. A timeout is reported as
// reached=false rather than an error.
func waitState(ctx context.Context, tab *Tab, loc playwright.Locator, state *playwright.WaitForSelectorState, timeout float64) (bool, error) {
	err := run(ctx, tab, func() error {
		return loc.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: playwright.Float(timeout)})
	})
	switch tools.KindOf(err) {
	case "":
		return true, nil
	case tools.KindTimeout, tools.KindElementNotFound:
		return false, nil
	}
	return false, err
}

func (s *toolset) verifyVisible(ctx context.Context, tab *Tab, loc playwright.Locator, target string, timeout int) (any, error) {
	ok, err := waitState(ctx, tab, loc.First(), playwright.WaitForSelectorStateVisible, s.t.action(timeout))
	if err != nil {
		return nil, err
	}
	if !ok {
		return Verification{Target: target, Message: target + " is not visible"}, nil
	}
	count, err := call(ctx, tab, loc.Count)
	if err != nil {
		return nil, err
	}
	return Verification{Passed: true, Target: target, Count: count, Message: target + " is visible"}, nil
}

func (s *toolset) verifyElementVisible(ctx context.Context, p selectorParams) (any, error) {
	if err := ValidateSelector(p.Selector); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	return s.verifyVisible(ctx, tab, locate(tab.Page, p.Selector), p.Selector, p.Timeout)
}

func (s *toolset) verifyElementHidden(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	ok, err := waitState(ctx, tab, loc, playwright.WaitForSelectorStateHidden, s.t.action(p.Timeout))
	if err != nil {
		return nil, err
	}
	if !ok {
		return Verification{Target: p.Selector, Message: p.Selector + " is still visible"}, nil
	}
	return Verification{Passed: true, Target: p.Selector, Message: p.Selector + " is hidden or not present"}, nil
}

func (s *toolset) verifyTextVisible(ctx context.Context, p verifyTextParams) (any, error) {
	if p.Text == "" {
		return nil, invalid("text cannot be empty")
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	loc := tab.Page.GetByText(p.Text, playwright.PageGetByTextOptions{Exact: playwright.Bool(p.Exact)})
	return s.verifyVisible(ctx, tab, loc, "text "+p.Text, p.Timeout)
}

func (s *toolset) verifyValue(ctx context.Context, p verifyValueParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	if err := present(ctx, tab, loc, p.Selector, s.t.action(p.Timeout)); err != nil {
		if tools.KindOf(err) == tools.KindElementNotFound {
			return Verification{Target: p.Selector, Expected: p.ExpectedValue, Message: "no element matches " + p.Selector}, nil
		}
		return nil, err
	}
	actual, err := call(ctx, tab, func() (string, error) {
		return loc.InputValue(playwright.LocatorInputValueOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	v := Verification{
		Passed:   actual == p.ExpectedValue,
		Target:   p.Selector,
		Expected: p.ExpectedValue,
		Actual:   actual,
		Message:  "value matches",
	}
	if !v.Passed {
		v.Message = "value mismatch"
	}
	return v, nil
}

// expectPoll is the interval between checks of a property assertion.
const expectPoll = 100 * time.Millisecond

func (s *toolset) expectElement(ctx context.Context, p expectParams) (any, error) {
	if err := checkExpectation(p); err != nil {
		return nil, err
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	timeout := s.t.action(p.Timeout)
	target := p.Selector
	v := Verification{Target: target, Expected: p.Assertion}
	if p.Expected != "" {
		v.Expected = p.Assertion + " " + p.Expected
	}

	states := map[string]*playwright.WaitForSelectorState{
		"visible":  playwright.WaitForSelectorStateVisible,
		"hidden":   playwright.WaitForSelectorStateHidden,
		"attached": playwright.WaitForSelectorStateAttached,
		"detached": playwright.WaitForSelectorStateDetached,
	}
	if state, ok := states[p.Assertion]; ok {
		ok, err := waitState(ctx, tab, loc, state, timeout)
		if err != nil {
			return nil, err
		}
		v.Passed = ok
		v.Message = fmt.Sprintf("%s is %s", target, p.Assertion)
		if !ok {
			v.Message = fmt.Sprintf("%s did not become %s within %.0fms", target, p.Assertion, timeout)
		}
		return v, nil
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)
	if err := present(ctx, tab, loc, target, timeout); err != nil {
		if tools.KindOf(err) == tools.KindElementNotFound {
			v.Message = "no element matches " + target
			return v, nil
		}
		return nil, err
	}
	for {
		remaining := math.Max(float64(time.Until(deadline).Milliseconds()), 1)
		ok, actual, err := s.checkAssertion(ctx, tab, loc, p, remaining)
		if err != nil {
			return nil, err
		}
		v.Actual = actual
		if ok {
			v.Passed = true
			v.Message = fmt.Sprintf("%s satisfies %s", target, p.Assertion)
			return v, nil
		}
		if time.Now().After(deadline) {
			v.Message = fmt.Sprintf("%s did not satisfy %s within %.0fms", target, p.Assertion, timeout)
			return v, nil
		}
		select {
		case <-ctx.Done():
			return nil, tools.AsError(ctx.Err())
		case <-time.After(expectPoll):
		}
	}
}

// checkAssertion evaluates a property assertion once.
func (s *toolset) checkAssertion(ctx context.Context, tab *Tab, loc playwright.Locator, p expectParams, timeout float64) (bool, string, error) {
	flag := func(fn func() (bool, error), want bool) (bool, string, error) {
		got, err := call(ctx, tab, fn)
		if err != nil {
			return false, "", err
		}
		return got == want, fmt.Sprint(got), nil
	}
	evalOpts := playwright.LocatorEvaluateOptions{Timeout: playwright.Float(timeout)}
	switch p.Assertion {
	case "enabled", "disabled":
		return flag(func() (bool, error) {
			return loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: playwright.Float(timeout)})
		}, p.Assertion == "enabled")
	case "checked", "unchecked":
		return flag(func() (bool, error) {
			return loc.IsChecked(playwright.LocatorIsCheckedOptions{Timeout: playwright.Float(timeout)})
		}, p.Assertion == "checked")
	case "editable":
		return flag(func() (bool, error) {
			return loc.IsEditable(playwright.LocatorIsEditableOptions{Timeout: playwright.Float(timeout)})
		}, true)
	case "focused":
		return flag(func() (bool, error) {
			v, err := loc.Evaluate("el => el === document.activeElement", nil, evalOpts)
			b, _ := v.(bool)
			return b, err
		}, true)
	case "empty":
		return flag(func() (bool, error) {
			v, err := loc.Evaluate("el => (('value' in el && el.tagName !== 'BUTTON') ? el.value : (el.textContent || '')).trim() === ''", nil, evalOpts)
			b, _ := v.(bool)
			return b, err
		}, true)
	case "has_text":
		text, err := call(ctx, tab, func() (string, error) {
			return loc.TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(timeout)})
		})
		if err != nil {
			return false, "", err
		}
		return textMatches(text, p.Expected, p.Exact), clip(text, 200), nil
	case "has_value":
		val, err := call(ctx, tab, func() (string, error) {
			return loc.InputValue(playwright.LocatorInputValueOptions{Timeout: playwright.Float(timeout)})
		})
		if err != nil {
			return false, "", err
		}
		return val == p.Expected, val, nil
	case "has_class":
		v, err := call(ctx, tab, func() (interface{}, error) {
			return loc.Evaluate("el => typeof el.className === 'string' ? el.className : ''", nil, evalOpts)
		})
		if err != nil {
			return false, "", err
		}
		classes, _ := v.(string)
		return hasClass(classes, p.Expected), classes, nil
	case "has_attribute":
		v, err := call(ctx, tab, func() (interface{}, error) {
			return loc.Evaluate("(el, name) => el.getAttribute(name)", p.Attribute, evalOpts)
		})
		if err != nil {
			return false, "", err
		}
		val, found := v.(string)
		if !found {
			return false, "attribute " + p.Attribute + " absent", nil
		}
		return p.Expected == "" || val == p.Expected, val, nil
	}
	return false, "", invalid("unknown assertion %q", p.Assertion)
}

func textMatches(text, want string, exact bool) bool {
	if exact {
		return strings.TrimSpace(text) == want
	}
	return strings.Contains(text, want)
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(classes) {
		if c == want {
			return true
		}
	}
	return false
}

// ListItem is one entry of a verify_list_visible result.
type ListItem struct {
	Text    string  `json:"text"`
	Visible bool    `json:"visible"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// ListVerification is the result of verify_list_visible.
type ListVerification struct {
	Passed     bool       `json:"passed"`
	Items      []ListItem `json:"items"`
	Missing    []string   `json:"missing,omitempty"`
	OutOfOrder string     `json:"out_of_order,omitempty"`
	Message    string     `json:"message"`
}

// rowTolerance is how far apart in pixels two tops may be and still
// count as the same row.
const rowTolerance = 2

// checkOrder returns the index of the first item that renders above, or
// left of on the same row, its predecessor; -1 if the list is in reading
// order.
func checkOrder(items []ListItem) int {
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if cur.Y < prev.Y-rowTolerance {
			return i
		}
		if math.Abs(cur.Y-prev.Y) <= rowTolerance && cur.X < prev.X {
			return i
		}
	}
	return -1
}

func (s *toolset) verifyListVisible(ctx context.Context, p verifyListParams) (any, error) {
	if len(p.Items) == 0 {
		return nil, invalid("items cannot be empty")
	}
	for i, it := range p.Items {
		if strings.TrimSpace(it) == "" {
			return nil, invalid("items[%d] is empty", i)
		}
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	timeout := s.t.action(p.Timeout)
	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)

	res := ListVerification{Items: make([]ListItem, 0, len(p.Items))}
	for _, text := range p.Items {
		item := ListItem{Text: text}
		loc := tab.Page.GetByText(text).First()
		remaining := math.Max(float64(time.Until(deadline).Milliseconds()), 1)
		ok, err := waitState(ctx, tab, loc, playwright.WaitForSelectorStateVisible, remaining)
		if err != nil {
			return nil, err
		}
		if ok {
			box, err := call(ctx, tab, func() (*playwright.Rect, error) {
				return loc.BoundingBox(playwright.LocatorBoundingBoxOptions{Timeout: playwright.Float(remaining)})
			})
			if err != nil {
				return nil, err
			}
			item.Visible = true
			if box != nil {
				item.X, item.Y = box.X, box.Y
			}
		} else {
			res.Missing = append(res.Missing, text)
		}
		res.Items = append(res.Items, item)
	}

	switch {
	case len(res.Missing) > 0:
		res.Message = fmt.Sprintf("%d of %d items not visible", len(res.Missing), len(p.Items))
	case p.Ordered:
		if i := checkOrder(res.Items); i >= 0 {
			res.OutOfOrder = res.Items[i].Text
			res.Message = fmt.Sprintf("%q appears before %q", res.Items[i].Text, res.Items[i-1].Text)
			break
		}
		res.Passed = true
		res.Message = "all items visible in order"
	default:
		res.Passed = true
		res.Message = "all items visible"
	}
	return res, nil
}
