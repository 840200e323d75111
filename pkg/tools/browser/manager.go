package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sony/gobreaker/v2"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const (
	eventQueueSize    = 1024
	healthTimeout     = 5 * time.Second
	breakerFailures   = 3
	breakerCooldown   = 30 * time.Second
	errNotLaunchedMsg = "browser not launched; call launch_browser first"
)

// Manager owns the single browser session: the running instance, its tabs,
// the current-tab pointer and everything captured from driver events. All
// tools share one Manager, injected at registration.
//
// Tab state is guarded by mu. Driver calls are never made while holding it.
type Manager struct {
	cfg      *config.Config
	launcher Launcher
	breaker  *gobreaker.CircuitBreaker[*Instance]
	metrics  *metrics.Collector
	logger   *logging.Logger

	network    *NetworkLog
	console    *ring[ConsoleEntry]
	pageErrors *ring[PageError]
	dialogs    *DialogHandler

	mu            sync.Mutex
	inst          *Instance
	launching     bool
	spec          LaunchSpec
	launchedAt    time.Time
	tabs          map[string]*Tab
	byPage        map[playwright.Page]*Tab
	current       string
	nextID        int
	capture       bool
	captureBodies bool
	sink          *eventSink
	scripts       []InitScript
	trace         TraceState
	emulation     emulationState
	snapshots     map[string]StateSnapshot
}

// NewManager creates a manager with no browser running.
func NewManager(cfg *config.Config, launcher Launcher, collector *metrics.Collector) *Manager {
	if collector == nil {
		collector = metrics.New()
	}
	m := &Manager{
		cfg:        cfg,
		launcher:   launcher,
		metrics:    collector,
		logger:     logging.NewLogger("browser"),
		network:    NewNetworkLog(cfg.Network.MaxLogSize, cfg.Network.MaxBodySize),
		console:    newRing[ConsoleEntry](maxConsoleEntries),
		pageErrors: newRing[PageError](maxPageErrors),
		dialogs:    NewDialogHandler(),
		tabs:       make(map[string]*Tab),
		byPage:     make(map[playwright.Page]*Tab),
	}
	m.breaker = gobreaker.NewCircuitBreaker[*Instance](gobreaker.Settings{
		Name:        "browser-launch",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("launch breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return m
}

// Config returns the server configuration.
func (m *Manager) Config() *config.Config { return m.cfg }

// Metrics returns the collector the manager reports to.
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }

// Network returns the network log.
func (m *Manager) Network() *NetworkLog { return m.network }

// Dialogs returns the dialog handler.
func (m *Manager) Dialogs() *DialogHandler { return m.dialogs }

// Running reports whether a browser is up.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst != nil
}

// resolve applies configuration defaults and validates launch options.
func (m *Manager) resolve(opts LaunchOptions) (LaunchSpec, error) {
	spec := LaunchSpec{
		Headless:       m.cfg.EffectiveHeadless(opts.Headless),
		Humanize:       m.cfg.Browser.Humanize,
		GeoIP:          opts.GeoIP,
		BlockImages:    opts.BlockImages,
		Locale:         opts.Locale,
		Viewport:       Viewport{Width: m.cfg.Browser.ViewportWidth, Height: m.cfg.Browser.ViewportHeight},
		ExecutablePath: m.cfg.Browser.ExecutablePath,
		Timeout:        config.Duration(m.cfg.Timeouts.Launch),
	}
	if opts.Humanize != nil {
		spec.Humanize = *opts.Humanize
	}
	if m.cfg.Viewer.Enabled {
		spec.Display = m.cfg.Viewer.Display
	}

	osType := strings.ToLower(opts.OSType)
	if osType != "" && !slices.Contains(osProfiles, osType) {
		return spec, tools.Errorf(tools.KindInvalidArgument, "invalid os_type %q, expected one of %v", opts.OSType, osProfiles)
	}
	if osType != "random" {
		spec.OS = osType
	}

	if opts.ProxyServer != "" {
		if err := ValidateProxy(opts.ProxyServer); err != nil {
			return spec, err
		}
		spec.Proxy = &ProxySettings{
			Server:   opts.ProxyServer,
			Username: opts.ProxyUsername,
			Password: opts.ProxyPassword,
		}
	} else if opts.ProxyUsername != "" || opts.ProxyPassword != "" {
		return spec, tools.Errorf(tools.KindInvalidArgument, "proxy credentials given without proxy_server")
	}
	return spec, nil
}

// Launch starts the browser and opens tab "0" as the current tab.
func (m *Manager) Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	spec, err := m.resolve(opts)
	if err != nil {
		return nil, err
	}
	return m.start(ctx, spec)
}

func (m *Manager) start(ctx context.Context, spec LaunchSpec) (*LaunchResult, error) {
	m.mu.Lock()
	if m.inst != nil || m.launching {
		m.mu.Unlock()
		return nil, tools.Errorf(tools.KindAlreadyLaunched, "browser already running; call close_browser first")
	}
	m.launching = true
	m.mu.Unlock()

	installed := false
	defer func() {
		if !installed {
			m.mu.Lock()
			m.launching = false
			m.mu.Unlock()
		}
	}()

	inst, err := m.breaker.Execute(func() (*Instance, error) {
		return m.launcher.Launch(ctx, spec)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, tools.Wrap(tools.KindOperationFailed, err, "browser launches are failing repeatedly; retry in %s", breakerCooldown)
		}
		m.logger.Error("browser launch failed", "error", err)
		return nil, tools.Wrap(tools.KindOperationFailed, Classify(err), "launch browser")
	}

	page, err := inst.Context.NewPage()
	if err != nil {
		_ = inst.Close()
		return nil, tools.Wrap(tools.KindOperationFailed, Classify(err), "open first tab")
	}

	sink := newEventSink(eventQueueSize, m.metrics.RecordDroppedEvent)

	m.mu.Lock()
	m.inst = inst
	m.launching = false
	installed = true
	m.spec = spec
	m.launchedAt = time.Now()
	m.tabs = make(map[string]*Tab)
	m.byPage = make(map[playwright.Page]*Tab)
	m.current = ""
	m.nextID = 0
	m.capture = m.cfg.Network.CaptureByDefault
	m.captureBodies = m.cfg.Network.CaptureBodies
	m.sink = sink
	m.scripts = nil
	m.trace = TraceState{}
	m.emulation = emulationState{}
	m.snapshots = nil
	m.mu.Unlock()

	go m.pump(sink)

	inst.Context.OnPage(func(p playwright.Page) {
		sink.pushReliable(event{kind: evPopup, page: p, at: time.Now()})
	})

	tab, _, err := m.adopt(inst, page, "", true)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordLaunch()

	m.logger.Info("browser launched",
		"headless", spec.Headless,
		"humanize", spec.Humanize,
		"os", spec.OS,
		"proxy_enabled", spec.Proxy != nil,
		"viewer", spec.Display != "")

	osName := spec.OS
	if osName == "" {
		osName = "random"
	}
	return &LaunchResult{
		Launched:   true,
		Headless:   spec.Headless,
		Humanize:   spec.Humanize,
		OS:         osName,
		Proxy:      spec.Proxy != nil,
		Viewer:     spec.Display != "",
		Viewport:   spec.viewport(),
		CurrentTab: tab.ID,
	}, nil
}

// adopt registers page as a tab. A page already known is returned as-is, so
// a page seen both through NewPage and the context's page event is only
// added once.
func (m *Manager) adopt(inst *Instance, page playwright.Page, label string, makeCurrent bool) (*Tab, bool, error) {
	m.mu.Lock()
	if m.inst != inst || inst == nil {
		m.mu.Unlock()
		return nil, false, tools.Errorf(tools.KindSessionClosed, "browser closed while opening tab")
	}
	if t, ok := m.byPage[page]; ok {
		if label != "" {
			t.Label = label
		}
		if makeCurrent {
			m.current = t.ID
		}
		m.mu.Unlock()
		return t, false, nil
	}

	id := strconv.Itoa(m.nextID)
	m.nextID++
	t := newTab(id, label, page)
	m.tabs[id] = t
	m.byPage[page] = t
	if makeCurrent || m.current == "" {
		m.current = id
	}
	sink := m.sink
	m.mu.Unlock()

	m.attach(t, sink)
	return t, true, nil
}

// Close tears the session down. Closing when nothing runs is a no-op and
// reports false.
func (m *Manager) Close(ctx context.Context) (bool, error) {
	inst, tabs, sink := m.detach()
	if inst == nil {
		return false, nil
	}
	err := m.shutdown(ctx, inst, tabs, sink)
	m.logger.Info("browser closed", "tabs", len(tabs))
	return true, err
}

// detach clears session state and returns what needs releasing.
func (m *Manager) detach() (*Instance, []*Tab, *eventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst := m.inst
	if inst == nil {
		return nil, nil, nil
	}
	tabs := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabs = append(tabs, t)
	}
	sink := m.sink

	m.inst = nil
	m.tabs = make(map[string]*Tab)
	m.byPage = make(map[playwright.Page]*Tab)
	m.current = ""
	m.sink = nil
	m.scripts = nil
	m.trace = TraceState{}
	m.emulation = emulationState{}
	m.snapshots = nil
	return inst, tabs, sink
}

func (m *Manager) shutdown(ctx context.Context, inst *Instance, tabs []*Tab, sink *eventSink) error {
	if sink != nil {
		sink.close()
	}
	for _, t := range tabs {
		t.markClosed()
	}
	m.network.Clear()
	m.console.snapshot(true)
	m.pageErrors.snapshot(true)
	m.dialogs.Reset()

	done := make(chan error, 1)
	go func() { done <- inst.Close() }()

	timeout := config.Duration(m.cfg.Timeouts.PageClose)
	select {
	case err := <-done:
		if err != nil {
			m.logger.Warn("browser cleanup error", "error", err)
		}
		return nil
	case <-time.After(timeout):
		m.logger.Warn("browser cleanup timed out", "timeout_ms", m.cfg.Timeouts.PageClose)
		return nil
	case <-ctx.Done():
		return tools.AsError(ctx.Err())
	}
}

// instance returns the running instance or a precondition error.
func (m *Manager) instance() (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	return m.inst, nil
}

// Tab resolves ref, an id or label, to a tab. An empty ref means the current
// tab.
func (m *Manager) Tab(ref string) (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	if ref == "" {
		t, ok := m.tabs[m.current]
		if !ok {
			return nil, tools.Errorf(tools.KindPreconditionViolation, "no active tab; call new_page")
		}
		return t, nil
	}
	t := m.lookupLocked(ref)
	if t == nil {
		return nil, m.unknownTabLocked(ref)
	}
	return t, nil
}

func (m *Manager) lookupLocked(ref string) *Tab {
	if t, ok := m.tabs[ref]; ok {
		return t
	}
	for _, t := range m.tabs {
		if t.Label != "" && t.Label == ref {
			return t
		}
	}
	return nil
}

func (m *Manager) unknownTabLocked(ref string) error {
	return &tools.Error{
		Kind:    tools.KindUnknownTab,
		Message: fmt.Sprintf("tab %q not found", ref),
		Details: map[string]any{"available": m.idsLocked()},
	}
}

func (m *Manager) idsLocked() []string {
	ids := make([]string, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
}

// Context returns the browser context of the running session.
func (m *Manager) Context() (playwright.BrowserContext, error) {
	inst, err := m.instance()
	if err != nil {
		return nil, err
	}
	return inst.Context, nil
}

// NewPage opens a tab and makes it current.
func (m *Manager) NewPage(ctx context.Context, label string) (TabInfo, error) {
	inst, err := m.instance()
	if err != nil {
		return TabInfo{}, err
	}

	if _, err := strconv.Atoi(label); label != "" && err == nil {
		return TabInfo{}, tools.Errorf(tools.KindInvalidArgument, "tab label %q must not be numeric", label)
	}

	m.mu.Lock()
	if len(m.tabs) >= m.cfg.Browser.MaxPages {
		m.mu.Unlock()
		return TabInfo{}, tools.Errorf(tools.KindOperationFailed, "maximum page limit (%d) reached", m.cfg.Browser.MaxPages)
	}
	if label != "" && m.lookupLocked(label) != nil {
		m.mu.Unlock()
		return TabInfo{}, tools.Errorf(tools.KindInvalidArgument, "tab %q already exists", label)
	}
	m.mu.Unlock()

	page, err := call(ctx, nil, func() (playwright.Page, error) { return inst.Context.NewPage() })
	if err != nil {
		return TabInfo{}, err
	}
	tab, created, err := m.adopt(inst, page, label, true)
	if err != nil {
		_ = page.Close()
		return TabInfo{}, err
	}
	if created {
		m.metrics.RecordPageCreated()
	}
	m.logger.Info("page created", "tab", tab.ID, "label", label)
	return TabInfo{ID: tab.ID, Label: label, URL: page.URL(), Current: true}, nil
}

// SwitchPage makes ref the current tab. An unknown ref leaves the current
// tab unchanged.
func (m *Manager) SwitchPage(ref string) (TabInfo, error) {
	m.mu.Lock()
	if m.inst == nil {
		m.mu.Unlock()
		return TabInfo{}, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	t := m.lookupLocked(ref)
	if t == nil {
		err := m.unknownTabLocked(ref)
		m.mu.Unlock()
		return TabInfo{}, err
	}
	m.current = t.ID
	label := t.Label
	m.mu.Unlock()

	if err := t.Page.BringToFront(); err != nil {
		m.logger.Debug("bring to front failed", "tab", t.ID, "error", err)
	}
	m.logger.Debug("page switched", "tab", t.ID)
	return TabInfo{ID: t.ID, Label: label, URL: t.Page.URL(), Current: true}, nil
}

// ClosePageResult reports which tab closed and which is now current.
type ClosePageResult struct {
	Closed  string `json:"closed"`
	Current string `json:"current"`
}

// ClosePage closes a tab. The last remaining tab cannot be closed; use
// close_browser instead.
func (m *Manager) ClosePage(ctx context.Context, ref string) (ClosePageResult, error) {
	m.mu.Lock()
	if m.inst == nil {
		m.mu.Unlock()
		return ClosePageResult{}, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	t := m.lookupLocked(ref)
	if t == nil {
		err := m.unknownTabLocked(ref)
		m.mu.Unlock()
		return ClosePageResult{}, err
	}
	if len(m.tabs) == 1 {
		m.mu.Unlock()
		return ClosePageResult{}, tools.Errorf(tools.KindInvalidArgument, "cannot close the last remaining tab; use close_browser")
	}
	m.removeLocked(t)
	current := m.current
	m.mu.Unlock()

	t.markClosed()
	if _, err := call(ctx, nil, func() (struct{}, error) { return struct{}{}, t.Page.Close() }); err != nil {
		m.logger.Warn("page close error", "tab", t.ID, "error", err)
	}
	m.metrics.RecordPageClosed()
	m.logger.Info("page closed", "tab", t.ID, "current", current)
	return ClosePageResult{Closed: t.ID, Current: current}, nil
}

// removeLocked drops t and moves the current pointer to the lowest
// remaining id if t was current.
func (m *Manager) removeLocked(t *Tab) {
	delete(m.tabs, t.ID)
	delete(m.byPage, t.Page)
	if m.current == t.ID {
		m.current = ""
		if ids := m.idsLocked(); len(ids) > 0 {
			m.current = ids[0]
		}
	}
}

// forget handles a tab closed from the page side.
func (m *Manager) forget(page playwright.Page) {
	m.mu.Lock()
	t, ok := m.byPage[page]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.removeLocked(t)
	m.mu.Unlock()

	t.markClosed()
	m.metrics.RecordPageClosed()
	m.logger.Info("page closed by browser", "tab", t.ID)
}

// ListPages returns every tab ordered by id.
func (m *Manager) ListPages(ctx context.Context) ([]TabInfo, error) {
	m.mu.Lock()
	if m.inst == nil {
		m.mu.Unlock()
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	ids := m.idsLocked()
	tabs := make([]*Tab, len(ids))
	labels := make([]string, len(ids))
	for i, id := range ids {
		tabs[i] = m.tabs[id]
		labels[i] = m.tabs[id].Label
	}
	current := m.current
	m.mu.Unlock()

	out := make([]TabInfo, len(tabs))
	for i, t := range tabs {
		info := TabInfo{ID: t.ID, Label: labels[i], URL: t.Page.URL(), Current: t.ID == current}
		if title, err := call(ctx, t, t.Page.Title); err == nil {
			info.Title = title
		}
		out[i] = info
	}
	return out, nil
}

// CaptureFlags returns whether network capture and body capture are on.
func (m *Manager) CaptureFlags() (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture, m.captureBodies
}

// SetCapture toggles network capture for every tab.
func (m *Manager) SetCapture(enabled, bodies bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	m.capture = enabled
	m.captureBodies = enabled && bodies
	return nil
}

// HealthCheck evaluates a trivial script in the current tab.
func (m *Manager) HealthCheck(ctx context.Context) HealthReport {
	m.mu.Lock()
	running := m.inst != nil
	tab := m.tabs[m.current]
	pages := len(m.tabs)
	uptime := time.Since(m.launchedAt).Seconds()
	m.mu.Unlock()

	report := HealthReport{PageCount: pages, NetworkLogSize: m.network.Len()}
	switch {
	case !running:
		report.Status = HealthStopped
		report.Message = "browser not running"
		return report
	case tab == nil:
		report.Status = HealthDegraded
		report.Message = "no active tab"
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	start := time.Now()
	_, err := call(ctx, tab, func() (interface{}, error) { return tab.Page.Evaluate("() => 1 + 1") })
	switch {
	case err == nil:
		report.Healthy = true
		report.Status = HealthRunning
		report.LatencyMS = round2(float64(time.Since(start).Microseconds()) / 1000)
		report.UptimeSeconds = round2(uptime)
	case tools.KindOf(err) == tools.KindTimeout:
		report.Status = HealthUnresponsive
		report.Message = "browser not responding (timeout)"
	default:
		report.Status = HealthError
		report.Message = tools.AsError(err).Message
	}
	return report
}

// RecoverResult reports a recovery attempt.
type RecoverResult struct {
	Recovered   bool   `json:"recovered"`
	RestoredURL string `json:"restored_url,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

// Recover force-closes the browser, relaunches it with the previous launch
// settings and navigates back to where the current tab was.
func (m *Manager) Recover(ctx context.Context) (*RecoverResult, error) {
	if !m.cfg.Browser.AutoRecover {
		return nil, tools.Errorf(tools.KindPreconditionViolation, "auto recovery is disabled in configuration")
	}

	m.mu.Lock()
	spec := m.spec
	hadSession := m.inst != nil || !m.launchedAt.IsZero()
	var lastURL string
	if t, ok := m.tabs[m.current]; ok {
		lastURL = t.Page.URL()
	}
	m.mu.Unlock()

	m.logger.Info("browser recovery attempt", "last_url", lastURL)
	m.metrics.RecordCrash()

	if inst, tabs, sink := m.detach(); inst != nil {
		_ = m.shutdown(ctx, inst, tabs, sink)
	}
	if !hadSession {
		var err error
		if spec, err = m.resolve(LaunchOptions{}); err != nil {
			return nil, err
		}
	}
	if _, err := m.start(ctx, spec); err != nil {
		return nil, err
	}

	result := &RecoverResult{Recovered: true}
	if lastURL == "" || lastURL == "about:blank" {
		return result, nil
	}
	tab, err := m.Tab("")
	if err != nil {
		return nil, err
	}
	_, err = call(ctx, tab, func() (playwright.Response, error) {
		return tab.Page.Goto(lastURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(m.cfg.Timeouts.Navigation)),
		})
	})
	if err != nil {
		m.logger.Warn("recovery navigation failed", "error", err)
		result.Warning = "browser recovered but could not restore " + lastURL + ": " + tools.AsError(err).Message
		return result, nil
	}
	result.RestoredURL = lastURL
	m.logger.Info("browser recovered", "restored_url", lastURL)
	return result, nil
}

// Info describes the running session.
func (m *Manager) Info(ctx context.Context) BrowserInfo {
	m.mu.Lock()
	info := BrowserInfo{
		Running:       m.inst != nil,
		TabCount:      len(m.tabs),
		CurrentTab:    m.current,
		Capture:       m.capture,
		CaptureBodies: m.captureBodies,
		InitScripts:   len(m.scripts),
		Tracing:       m.trace.Active,
	}
	inst := m.inst
	if inst != nil {
		info.Headless = m.spec.Headless
		info.Humanize = m.spec.Humanize
		info.OS = m.spec.OS
		info.Locale = m.spec.Locale
		if o := m.spec.Overrides; !o.IsZero() {
			info.Overrides = &o
		}
		info.Proxy = m.spec.Proxy != nil
		info.Viewer = m.spec.Display != ""
		info.LaunchedAt = m.launchedAt
		info.UptimeSeconds = round2(time.Since(m.launchedAt).Seconds())
	}
	m.mu.Unlock()

	info.NetworkLogSize = m.network.Len()
	if inst != nil && inst.Browser != nil {
		info.Version = inst.Browser.Version()
	}
	return info
}

// AddInitScript injects script into every document the context creates.
func (m *Manager) AddInitScript(ctx context.Context, name, script string) (InitScript, error) {
	inst, err := m.instance()
	if err != nil {
		return InitScript{}, err
	}
	if _, err := call(ctx, nil, func() (struct{}, error) {
		return struct{}{}, inst.Context.AddInitScript(playwright.Script{Content: playwright.String(script)})
	}); err != nil {
		return InitScript{}, err
	}
	rec := InitScript{Name: name, Length: len(script), AddedAt: time.Now()}
	m.mu.Lock()
	m.scripts = append(m.scripts, rec)
	m.mu.Unlock()
	return rec, nil
}

// InitScripts lists injected scripts.
func (m *Manager) InitScripts() ([]InitScript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	return append([]InitScript{}, m.scripts...), nil
}

// Trace returns the tracing state.
func (m *Manager) Trace() TraceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trace
}

func (m *Manager) setTrace(t TraceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = t
}

// Console returns captured console messages.
func (m *Manager) Console(clear bool) []ConsoleEntry {
	return m.console.snapshot(clear)
}

// PageErrors returns uncaught page exceptions.
func (m *Manager) PageErrors(clear bool) []PageError {
	return m.pageErrors.snapshot(clear)
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
