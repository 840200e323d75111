package browser

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// call runs a blocking driver operation. It returns as soon as the operation
// finishes, the tab (or session) closes, or ctx ends, so a call never hangs on
// a tab that went away. A nil tab only watches ctx.
func call[T any](ctx context.Context, tab *Tab, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	var done <-chan struct{}
	if tab != nil {
		done = tab.Done()
	}

	var zero T
	select {
	case r := <-ch:
		if r.err != nil {
			return zero, Classify(r.err)
		}
		return r.v, nil
	case <-done:
		return zero, tools.Errorf(tools.KindSessionClosed, "tab %s closed while the operation was pending", tab.ID)
	case <-ctx.Done():
		return zero, tools.AsError(ctx.Err())
	}
}

// run is call for operations without a result.
func run(ctx context.Context, tab *Tab, fn func() error) error {
	_, err := call(ctx, tab, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// await blocks until ch delivers, timeout elapses, the tab closes or ctx
// ends. A nil ch simply sleeps for timeout and returns the zero value.
func await[T any](ctx context.Context, tab *Tab, ch <-chan T, timeout time.Duration, what string) (T, error) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var done <-chan struct{}
	if tab != nil {
		done = tab.Done()
	}
	select {
	case v := <-ch:
		return v, nil
	case <-timer.C:
		if ch == nil {
			return zero, nil
		}
		return zero, tools.Errorf(tools.KindTimeout, "timed out after %dms waiting for %s", timeout.Milliseconds(), what)
	case <-done:
		return zero, tools.Errorf(tools.KindSessionClosed, "tab %s closed while waiting for %s", tab.ID, what)
	case <-ctx.Done():
		return zero, tools.AsError(ctx.Err())
	}
}

// TabTarget is embedded in the parameters of every page tool. An empty
// TabID addresses the current tab.
type TabTarget struct {
	TabID string `json:"tab_id"`
}

// withTab adds the tab_id property to a tool's properties.
func withTab(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		props = map[string]interface{}{}
	}
	props["tab_id"] = tools.String("Tab id or label to operate on (defaults to the current tab)")
	return props
}

// timeoutMS returns the caller's timeout or the configured default, as the
// float the driver expects.
func timeoutMS(requested, fallback int) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return float64(fallback)
}

// timeouts resolves per-concern defaults from configuration.
type timeouts struct{ cfg config.TimeoutConfig }

func (t timeouts) navigation(ms int) float64 { return timeoutMS(ms, t.cfg.Navigation) }
func (t timeouts) selector(ms int) float64   { return timeoutMS(ms, t.cfg.Selector) }
func (t timeouts) action(ms int) float64     { return timeoutMS(ms, t.cfg.Action) }
func (t timeouts) network(ms int) float64    { return timeoutMS(ms, t.cfg.Network) }
func (t timeouts) screenshot(ms int) float64 { return timeoutMS(ms, t.cfg.Screenshot) }
func (t timeouts) script(ms int) float64     { return timeoutMS(ms, t.cfg.JavaScript) }

// locate builds a locator for selector on page. CSS is the default; a
// leading "//" or "(//" selects XPath and "text=" style engine prefixes pass
// through untouched.
func locate(page playwright.Page, selector string) playwright.Locator {
	return page.Locator(normalizeSelector(selector))
}

func normalizeSelector(selector string) string {
	s := strings.TrimSpace(selector)
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "(//") {
		return "xpath=" + s
	}
	return s
}

// Selector strategies accepted by tools that take a strategy parameter.
const (
	StrategyCSS         = "css"
	StrategyXPath       = "xpath"
	StrategyText        = "text"
	StrategyRole        = "role"
	StrategyLabel       = "label"
	StrategyPlaceholder = "placeholder"
	StrategyTestID      = "test_id"
)

// Query names an element by one of several strategies. Exactly one field
// should be set; Selector wins if several are.
type Query struct {
	Selector    string `json:"selector,omitempty"`
	Text        string `json:"text,omitempty"`
	Role        string `json:"role,omitempty"`
	Name        string `json:"name,omitempty"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Exact       bool   `json:"exact,omitempty"`
}

// resolve picks the locator strategy from whichever field the caller set.
func (q Query) resolve(page playwright.Page) (playwright.Locator, string, error) {
	switch {
	case q.Selector != "":
		if err := ValidateSelector(q.Selector); err != nil {
			return nil, "", err
		}
		return locate(page, q.Selector), q.Selector, nil
	case q.Role != "":
		opts := playwright.PageGetByRoleOptions{Exact: playwright.Bool(q.Exact)}
		if q.Name != "" {
			opts.Name = q.Name
		}
		return page.GetByRole(playwright.AriaRole(q.Role), opts), "role=" + q.Role, nil
	case q.Label != "":
		return page.GetByLabel(q.Label, playwright.PageGetByLabelOptions{Exact: playwright.Bool(q.Exact)}), "label=" + q.Label, nil
	case q.Placeholder != "":
		return page.GetByPlaceholder(q.Placeholder, playwright.PageGetByPlaceholderOptions{Exact: playwright.Bool(q.Exact)}), "placeholder=" + q.Placeholder, nil
	case q.Text != "":
		return page.GetByText(q.Text, playwright.PageGetByTextOptions{Exact: playwright.Bool(q.Exact)}), "text=" + q.Text, nil
	}
	return nil, "", tools.Errorf(tools.KindInvalidArgument, "one of selector, text, role, label or placeholder is required")
}

// present waits for loc to attach, turning a timeout into ElementNotFound.
func present(ctx context.Context, tab *Tab, loc playwright.Locator, desc string, timeout float64) error {
	err := run(ctx, tab, func() error {
		return loc.First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(timeout),
		})
	})
	if err != nil && tools.KindOf(err) == tools.KindTimeout {
		return tools.Errorf(tools.KindElementNotFound, "no element matches %s within %.0fms", desc, timeout)
	}
	return err
}
