package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// maxSleep bounds the explicit wait tool.
const maxSleep = 60000

var selectorStates = map[string]*playwright.WaitForSelectorState{
	"attached": playwright.WaitForSelectorStateAttached,
	"detached": playwright.WaitForSelectorStateDetached,
	"visible":  playwright.WaitForSelectorStateVisible,
	"hidden":   playwright.WaitForSelectorStateHidden,
}

var loadStates = map[string]*playwright.LoadState{
	"load":             playwright.LoadStateLoad,
	"domcontentloaded": playwright.LoadStateDomcontentloaded,
	"networkidle":      playwright.LoadStateNetworkidle,
}

type waitSelectorParams struct {
	TabTarget
	Selector string `json:"selector"`
	State    string `json:"state"`
	Timeout  int    `json:"timeout"`
}

type loadStateParams struct {
	TabTarget
	State   string `json:"state"`
	Timeout int    `json:"timeout"`
}

type sleepParams struct {
	TabTarget
	Milliseconds int `json:"milliseconds"`
}

type waitURLParams struct {
	TabTarget
	URLPattern string `json:"url_pattern"`
	MatchType  string `json:"match_type"`
	Timeout    int    `json:"timeout"`
}

type waitFunctionParams struct {
	TabTarget
	Expression string `json:"expression"`
	Polling    int    `json:"polling"`
	Timeout    int    `json:"timeout"`
}

func (s *toolset) waitTools() []tools.Tool {
	return []tools.Tool{
		tools.New("wait_for_selector",
			"Wait for an element to reach a state: attached, detached, visible (default) or hidden.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector"),
				"state":    tools.Enum("State to wait for", "attached", "detached", "visible", "hidden"),
				"timeout":  tools.Timeout(),
			}), []string{"selector"}),
			s.waitForSelector),

		tools.New("wait_for_load_state",
			"Wait for the page to reach a load state.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"state":   tools.Enum("Load state (default load)", "load", "domcontentloaded", "networkidle"),
				"timeout": tools.Timeout(),
			}), nil),
			s.waitForLoadState),

		tools.New("wait",
			"Pause for a fixed time. Returns early with SessionClosed if the tab closes.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"milliseconds": tools.IntegerRange("Time to wait", 0, maxSleep),
			}), []string{"milliseconds"}),
			s.sleep),

		tools.New("wait_for_url",
			"Wait until the tab's URL matches a pattern.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"url_pattern": tools.String("URL pattern to match"),
				"match_type":  tools.Enum("How url_pattern is matched (default substring)", MatchSubstring, MatchRegex, MatchGlob),
				"timeout":     tools.Timeout(),
			}), []string{"url_pattern"}),
			s.waitForURL),

		tools.New("wait_for_function",
			"Wait until a JavaScript expression returns a truthy value.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"expression": tools.String("Expression or function returning truthy when ready"),
				"polling":    tools.IntegerRange("Polling interval in ms (default: every animation frame)", 10, 60000),
				"timeout":    tools.Timeout(),
			}), []string{"expression"}),
			s.waitForFunction),
	}
}

func (s *toolset) waitForSelector(ctx context.Context, p waitSelectorParams) (any, error) {
	state := p.State
	if state == "" {
		state = "visible"
	}
	st, ok := selectorStates[state]
	if !ok {
		return nil, invalid("invalid state: %s (must be attached, detached, visible or hidden)", p.State)
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	err = run(ctx, tab, func() error {
		return loc.WaitFor(playwright.LocatorWaitForOptions{State: st, Timeout: playwright.Float(s.t.selector(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"selector":   p.Selector,
		"state":      state,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}, nil
}

func (s *toolset) waitForLoadState(ctx context.Context, p loadStateParams) (any, error) {
	state := p.State
	if state == "" {
		state = "load"
	}
	ls, ok := loadStates[state]
	if !ok {
		return nil, invalid("invalid load state: %s", p.State)
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return tab.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: ls, Timeout: playwright.Float(s.t.navigation(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"state": state, "url": tab.Page.URL()}, nil
}

func (s *toolset) sleep(ctx context.Context, p sleepParams) (any, error) {
	if p.Milliseconds < 0 || p.Milliseconds > maxSleep {
		return nil, invalid("milliseconds must be between 0 and %d", maxSleep)
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if _, err := await[struct{}](ctx, tab, nil, time.Duration(p.Milliseconds)*time.Millisecond, "sleep"); err != nil {
		return nil, err
	}
	return map[string]int{"waited_ms": p.Milliseconds}, nil
}

func (s *toolset) waitForURL(ctx context.Context, p waitURLParams) (any, error) {
	if p.URLPattern == "" {
		return nil, invalid("url_pattern cannot be empty")
	}
	match, err := URLMatcher(p.URLPattern, p.MatchType)
	if err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	predicate := func(u string) bool { return match(NetworkEntry{URL: u}) }
	err = run(ctx, tab, func() error {
		return tab.Page.WaitForURL(predicate, playwright.PageWaitForURLOptions{
			Timeout:   playwright.Float(s.t.navigation(p.Timeout)),
			WaitUntil: playwright.WaitUntilStateCommit,
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"url": tab.Page.URL()}, nil
}

func (s *toolset) waitForFunction(ctx context.Context, p waitFunctionParams) (any, error) {
	if err := ValidateScript(p.Expression); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	opts := playwright.PageWaitForFunctionOptions{Timeout: playwright.Float(s.t.script(p.Timeout))}
	if p.Polling > 0 {
		opts.Polling = float64(p.Polling)
	}
	handle, err := call(ctx, tab, func() (playwright.JSHandle, error) {
		return tab.Page.WaitForFunction(p.Expression, nil, opts)
	})
	if err != nil {
		return nil, err
	}
	result := map[string]any{"satisfied": true}
	if handle != nil {
		if v, err := handle.JSONValue(); err == nil {
			result["value"] = v
		}
		_ = handle.Dispose()
	}
	return result, nil
}
