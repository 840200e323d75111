package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// Fakes embed the playwright interfaces and override only what the tests
// exercise; anything else panics on the nil embedded value.

type fakeRequest struct {
	playwright.Request
	url    string
	method string
}

func (r *fakeRequest) URL() string { return r.url }
func (r *fakeRequest) Method() string { return r.method }
func (r *fakeRequest) ResourceType() string { return "fetch" }
func (r *fakeRequest) Headers() map[string]string { return map[string]string{"accept": "*/*"} }
func (r *fakeRequest) PostData() (string, error) { return "", nil }

// pwLocator lets fakeLocator embed the interface without the field name
// shadowing Locator.Locator.
type pwLocator = playwright.Locator

type fakeLocator struct {
	pwLocator
	page     *fakePage
	selector string
}

func (l *fakeLocator) First() playwright.Locator { return l }

func (l *fakeLocator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	if l.page.has(l.selector) {
		return nil
	}
	return fmt.Errorf("Timeout 100ms exceeded.\nCall log:\n  - waiting for locator('%s') to be visible", l.selector)
}

type fakePage struct {
	playwright.Page

	mu        sync.Mutex
	url       string
	present   map[string]bool
	storage   map[string]map[string]string
	onRequest []func(playwright.Request)
	closed    bool
	viewport  [2]int
}

func newFakePage() *fakePage {
	return &fakePage{
		url:     "about:blank",
		present: map[string]bool{},
		storage: map[string]map[string]string{areaLocal: {}, areaSession: {}},
	}
}

func (p *fakePage) has(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present[selector]
}

func (p *fakePage) addElement(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[selector] = true
}

// fire delivers a request event as the driver would.
func (p *fakePage) fire(req playwright.Request) {
	p.mu.Lock()
	handlers := append([]func(playwright.Request){}, p.onRequest...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(req)
	}
}

func (p *fakePage) OnRequest(fn func(playwright.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = append(p.onRequest, fn)
}

func (p *fakePage) OnResponse(fn func(playwright.Response)) {}
func (p *fakePage) OnRequestFailed(fn func(playwright.Request)) {}
func (p *fakePage) OnDialog(fn func(playwright.Dialog)) {}
func (p *fakePage) OnConsole(fn func(playwright.ConsoleMessage)) {}
func (p *fakePage) OnPageError(fn func(error)) {}
func (p *fakePage) OnClose(fn func(playwright.Page)) {}
func (p *fakePage) URL() string { return p.url }
func (p *fakePage) Title() (string, error) { return "Fake", nil }
func (p *fakePage) BringToFront() error { return nil }

func (p *fakePage) EmulateMedia(options ...playwright.PageEmulateMediaOptions) error { return nil }

func (p *fakePage) SetViewportSize(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = [2]int{width, height}
	return nil
}

func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return &fakeLocator{page: p, selector: selector}
}

// Evaluate understands the storage scripts, the health check and the DOM
// summary.
func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch expression {
	case `area => Object.fromEntries(Object.entries(window[area]))`:
		out := map[string]interface{}{}
		for k, v := range p.storage[arg[0].(string)] {
			out[k] = v
		}
		return out, nil
	case `([area, key, value]) => window[area].setItem(key, value)`:
		args := arg[0].([]interface{})
		p.storage[args[0].(string)][args[1].(string)] = args[2].(string)
		return nil, nil
	case "() => 1 + 1":
		return 2, nil
	case `() => localStorage.clear()`:
		p.storage[areaLocal] = map[string]string{}
		return nil, nil
	case domSummaryScript:
		return map[string]interface{}{
			"url":           p.url,
			"title":         "Fake",
			"element_count": 10 + len(p.present),
			"text_length":   0,
		}, nil
	}
	return nil, errors.New("unsupported expression in fake: " + expression)
}

type fakeContext struct {
	playwright.BrowserContext

	mu      sync.Mutex
	pages   []*fakePage
	cookies []playwright.Cookie
	headers map[string]string
	closes  int
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := newFakePage()
	c.pages = append(c.pages, p)
	return p, nil
}

func (c *fakeContext) page(i int) *fakePage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages[i]
}

func (c *fakeContext) OnPage(fn func(playwright.Page)) {}

func (c *fakeContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeContext) Cookies(urls ...string) ([]playwright.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]playwright.Cookie{}, c.cookies...), nil
}

func (c *fakeContext) AddCookies(cookies []playwright.OptionalCookie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, oc := range cookies {
		ck := playwright.Cookie{Name: oc.Name, Value: oc.Value, Path: "/"}
		if oc.Domain != nil {
			ck.Domain = *oc.Domain
		}
		c.cookies = append(c.cookies, ck)
	}
	return nil
}

func (c *fakeContext) ClearCookies(options ...playwright.BrowserContextClearCookiesOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = nil
	return nil
}

func (c *fakeContext) SetExtraHTTPHeaders(headers map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = headers
	return nil
}

func (c *fakeContext) ClearPermissions() error { return nil }

func (c *fakeContext) extraHeaders() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers
}

type fakeLauncher struct {
	mu       sync.Mutex
	ctx      *fakeContext
	err      error
	launches int
	spec     LaunchSpec
}

func (l *fakeLauncher) Launch(ctx context.Context, spec LaunchSpec) (*Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.spec = spec
	if l.err != nil {
		return nil, l.err
	}
	l.ctx = &fakeContext{}
	return NewInstance(nil, l.ctx, nil), nil
}

func (l *fakeLauncher) lastSpec() LaunchSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spec
}

func (l *fakeLauncher) context() *fakeContext {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

type harness struct {
	t        *testing.T
	registry *tools.Registry
	manager  *Manager
	launcher *fakeLauncher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Screenshot.Dir = t.TempDir()
	cfg.Timeouts.Selector = 100
	cfg.Timeouts.Action = 100

	l := &fakeLauncher{}
	m := NewManager(cfg, l, metrics.New())
	reg, err := tools.NewRegistry(
		NewToolRegistry(m, NewArtifactWriter(cfg.Screenshot.Dir), "test").RegisterTools(),
		tools.WithClassifier(Classify),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = m.Close(context.Background()) })
	return &harness{t: t, registry: reg, manager: m, launcher: l}
}

// call invokes a tool with args encoded as JSON.
func (h *harness) call(name string, args any) (any, error) {
	h.t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(h.t, err)
	return h.registry.Call(context.Background(), name, raw)
}

func (h *harness) mustCall(name string, args any) any {
	h.t.Helper()
	res, err := h.call(name, args)
	require.NoError(h.t, err, name)
	return res
}

func (h *harness) launch() *fakeContext {
	h.t.Helper()
	h.mustCall("launch_browser", map[string]any{})
	return h.launcher.context()
}

func kindOf(t *testing.T, err error) tools.Kind {
	t.Helper()
	require.Error(t, err)
	return tools.KindOf(err)
}
