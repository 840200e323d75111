package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

var waitUntilStates = map[string]*playwright.WaitUntilState{
	"load":             playwright.WaitUntilStateLoad,
	"domcontentloaded": playwright.WaitUntilStateDomcontentloaded,
	"networkidle":      playwright.WaitUntilStateNetworkidle,
	"commit":           playwright.WaitUntilStateCommit,
}

func waitUntil(state string) *playwright.WaitUntilState {
	if s, ok := waitUntilStates[state]; ok {
		return s
	}
	return playwright.WaitUntilStateLoad
}

type gotoParams struct {
	TabTarget
	URL       string `json:"url"`
	WaitUntil string `json:"wait_until"`
	Timeout   int    `json:"timeout"`
}

type historyParams struct {
	TabTarget
	WaitUntil string `json:"wait_until"`
	Timeout   int    `json:"timeout"`
}

type tabParams struct {
	TabTarget
}

// NavigationResult describes where a navigation ended up.
type NavigationResult struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Status int    `json:"status,omitempty"`
	// Navigated is false when there was no history entry to move to.
	Navigated bool `json:"navigated"`
}

func (s *toolset) navigationTools() []tools.Tool {
	waitEnum := tools.Enum("When to consider navigation complete", "load", "domcontentloaded", "networkidle", "commit")
	return []tools.Tool{
		tools.New("goto",
			"Navigate the tab to a URL and wait for it to load.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"url":        tools.String("URL to navigate to (http, https or file; must include the scheme)"),
				"wait_until": waitEnum,
				"timeout":    tools.Timeout(),
			}), []string{"url"}),
			s.gotoURL),

		tools.New("reload",
			"Reload the current page.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"wait_until": waitEnum,
				"timeout":    tools.Timeout(),
			}), nil),
			s.reload),

		tools.New("go_back",
			"Navigate back in history.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"wait_until": waitEnum,
				"timeout":    tools.Timeout(),
			}), nil),
			s.goBack),

		tools.New("go_forward",
			"Navigate forward in history.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"wait_until": waitEnum,
				"timeout":    tools.Timeout(),
			}), nil),
			s.goForward),

		tools.New("get_url",
			"Return the tab's current URL.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getURL),

		tools.New("get_page_title",
			"Return the tab's document title.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getTitle),
	}
}

func (s *toolset) gotoURL(ctx context.Context, p gotoParams) (any, error) {
	if err := ValidateURL(p.URL); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, tab, func() (playwright.Response, error) {
		return tab.Page.Goto(p.URL, playwright.PageGotoOptions{
			WaitUntil: waitUntil(p.WaitUntil),
			Timeout:   playwright.Float(s.t.navigation(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.navigationResult(ctx, tab, resp), nil
}

func (s *toolset) reload(ctx context.Context, p historyParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, tab, func() (playwright.Response, error) {
		return tab.Page.Reload(playwright.PageReloadOptions{
			WaitUntil: waitUntil(p.WaitUntil),
			Timeout:   playwright.Float(s.t.navigation(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.navigationResult(ctx, tab, resp), nil
}

func (s *toolset) goBack(ctx context.Context, p historyParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, tab, func() (playwright.Response, error) {
		return tab.Page.GoBack(playwright.PageGoBackOptions{
			WaitUntil: waitUntil(p.WaitUntil),
			Timeout:   playwright.Float(s.t.navigation(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.navigationResult(ctx, tab, resp), nil
}

func (s *toolset) goForward(ctx context.Context, p historyParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, tab, func() (playwright.Response, error) {
		return tab.Page.GoForward(playwright.PageGoForwardOptions{
			WaitUntil: waitUntil(p.WaitUntil),
			Timeout:   playwright.Float(s.t.navigation(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.navigationResult(ctx, tab, resp), nil
}

func (s *toolset) navigationResult(ctx context.Context, tab *Tab, resp playwright.Response) NavigationResult {
	res := NavigationResult{URL: tab.Page.URL(), Navigated: resp != nil}
	if resp != nil {
		res.Status = resp.Status()
	}
	if title, err := call(ctx, tab, tab.Page.Title); err == nil {
		res.Title = title
	}
	return res
}

func (s *toolset) getURL(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	return map[string]string{"url": tab.Page.URL()}, nil
}

func (s *toolset) getTitle(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	title, err := call(ctx, tab, tab.Page.Title)
	if err != nil {
		return nil, err
	}
	return map[string]string{"title": title}, nil
}
