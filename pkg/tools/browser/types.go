package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Tab is one page in the session. Its ID is assigned from a per-session
// counter and never reused; Label is an optional caller-chosen alias.
type Tab struct {
	ID      string
	Label   string
	Page    playwright.Page
	Created time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func newTab(id, label string, page playwright.Page) *Tab {
	return &Tab{
		ID:      id,
		Label:   label,
		Page:    page,
		Created: time.Now(),
		done:    make(chan struct{}),
	}
}

// Done is closed when the tab, or the whole session, goes away.
func (t *Tab) Done() <-chan struct{} {
	return t.done
}

func (t *Tab) markClosed() {
	t.closeOnce.Do(func() { close(t.done) })
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LaunchOptions are the launch_browser parameters. Nil pointers fall back to
// the server configuration.
type LaunchOptions struct {
	Headless      *bool  `json:"headless"`
	ProxyServer   string `json:"proxy_server"`
	ProxyUsername string `json:"proxy_username"`
	ProxyPassword string `json:"proxy_password"`
	OSType        string `json:"os_type"`
	Humanize      *bool  `json:"humanize"`
	GeoIP         bool   `json:"geoip"`
	BlockImages   bool   `json:"block_images"`
	Locale        string `json:"locale"`
}

// TabInfo describes a tab for list_pages and friends.
type TabInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Current bool   `json:"current"`
}

// LaunchResult is returned by launch_browser.
type LaunchResult struct {
	Launched   bool     `json:"launched"`
	Headless   bool     `json:"headless"`
	Humanize   bool     `json:"humanize"`
	OS         string   `json:"os"`
	Proxy      bool     `json:"proxy_enabled"`
	Viewer     bool     `json:"viewer"`
	Viewport   Viewport `json:"viewport"`
	CurrentTab string   `json:"current_tab"`
}

// HealthReport is the result of browser_health_check.
type HealthReport struct {
	Healthy        bool    `json:"healthy"`
	Status         string  `json:"status"`
	Message        string  `json:"message,omitempty"`
	LatencyMS      float64 `json:"latency_ms,omitempty"`
	UptimeSeconds  float64 `json:"uptime_seconds,omitempty"`
	PageCount      int     `json:"page_count"`
	NetworkLogSize int     `json:"network_log_size"`
}

// Health states.
const (
	HealthStopped      = "stopped"
	HealthRunning      = "running"
	HealthDegraded     = "degraded"
	HealthUnresponsive = "unresponsive"
	HealthError        = "error"
)

// BrowserInfo is the result of get_browser_info.
type BrowserInfo struct {
	Running        bool      `json:"running"`
	Version        string    `json:"version,omitempty"`
	Headless       bool      `json:"headless"`
	Humanize       bool      `json:"humanize"`
	OS             string    `json:"os,omitempty"`
	Locale         string    `json:"locale,omitempty"`
	Proxy          bool      `json:"proxy_enabled"`
	Viewer         bool      `json:"viewer"`
	LaunchedAt     time.Time `json:"launched_at,omitempty"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	TabCount       int       `json:"tab_count"`
	CurrentTab     string    `json:"current_tab,omitempty"`
	Capture        bool      `json:"network_capture"`
	CaptureBodies  bool      `json:"capture_bodies"`
	NetworkLogSize int       `json:"network_log_size"`
	InitScripts    int       `json:"init_scripts"`
	Tracing        bool      `json:"tracing"`
	// Overrides are context settings recorded by the emulation tools.
	Overrides *ContextOverrides `json:"context_overrides,omitempty"`
}

// InitScript is a script injected into every new document.
type InitScript struct {
	Name    string    `json:"name"`
	Length  int       `json:"length"`
	AddedAt time.Time `json:"added_at"`
}

// TraceState tracks an active playwright trace.
type TraceState struct {
	Active      bool      `json:"active"`
	Name        string    `json:"name,omitempty"`
	Started     time.Time `json:"started,omitempty"`
	Screenshots bool      `json:"screenshots"`
	Snapshots   bool      `json:"snapshots"`
	Sources     bool      `json:"sources"`
}
