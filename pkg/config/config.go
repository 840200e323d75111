package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the configuration of the camoufox MCP server.
type Config struct {
	Timeouts   TimeoutConfig    `yaml:"timeouts" json:"timeouts"`
	Network    NetworkConfig    `yaml:"network" json:"network"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Screenshot ScreenshotConfig `yaml:"screenshot" json:"screenshot"`
	Viewer     ViewerConfig     `yaml:"viewer" json:"viewer"`
	Tracing    TracingConfig    `yaml:"tracing" json:"tracing"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// TimeoutConfig holds default timeouts in milliseconds, used when a tool call
// does not pass its own timeout.
type TimeoutConfig struct {
	Navigation int `yaml:"navigation" json:"navigation"`
	Selector   int `yaml:"selector" json:"selector"`
	Network    int `yaml:"network" json:"network"`
	Action     int `yaml:"action" json:"action"`
	Screenshot int `yaml:"screenshot" json:"screenshot"`
	JavaScript int `yaml:"javascript" json:"javascript"`
	Launch     int `yaml:"launch" json:"launch"`
	PageClose  int `yaml:"page_close" json:"page_close"`
}

// NetworkConfig controls network capture.
type NetworkConfig struct {
	CaptureByDefault bool `yaml:"capture_by_default" json:"capture_by_default"`
	CaptureBodies    bool `yaml:"capture_bodies" json:"capture_bodies"`
	MaxLogSize       int  `yaml:"max_log_size" json:"max_log_size"`
	MaxBodySize      int  `yaml:"max_body_size" json:"max_body_size"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json or console
	File       string `yaml:"file" json:"file"`
	Timestamps bool   `yaml:"timestamps" json:"timestamps"`
	Caller     bool   `yaml:"caller" json:"caller"`
}

// BrowserConfig holds launch defaults.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless" json:"headless"`
	Humanize       bool   `yaml:"humanize" json:"humanize"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	AutoRecover    bool   `yaml:"auto_recover" json:"auto_recover"`
	MaxPages       int    `yaml:"max_pages" json:"max_pages"`
	ExecutablePath string `yaml:"executable_path" json:"executable_path"`
	// InstallDriver downloads the playwright driver on first launch.
	InstallDriver bool `yaml:"install_driver" json:"install_driver"`
}

// ScreenshotConfig controls where captured images go.
type ScreenshotConfig struct {
	Dir      string `yaml:"dir" json:"dir"`
	AutoSave bool   `yaml:"auto_save" json:"auto_save"`
}

// ViewerConfig enables a headed browser rendered on a virtual display for
// watching a session live.
type ViewerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Display string `yaml:"display" json:"display"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	File        string `yaml:"file" json:"file"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// ServerConfig controls the MCP transport.
type ServerConfig struct {
	Name      string  `yaml:"name" json:"name"`
	Transport string  `yaml:"transport" json:"transport"` // stdio or http
	Addr      string  `yaml:"addr" json:"addr"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"` // calls per second, 0 disables
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// Timeout limits accepted from callers, in milliseconds.
const (
	MinTimeoutMS = 100
	MaxTimeoutMS = 300000
)

// Viewport limits.
const (
	MinViewportWidth  = 200
	MaxViewportWidth  = 7680
	MinViewportHeight = 200
	MaxViewportHeight = 4320
)

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Timeouts: TimeoutConfig{
			Navigation: 30000,
			Selector:   30000,
			Network:    30000,
			Action:     5000,
			Screenshot: 10000,
			JavaScript: 5000,
			Launch:     60000,
			PageClose:  5000,
		},
		Network: NetworkConfig{
			CaptureByDefault: true,
			CaptureBodies:    false,
			MaxLogSize:       1000,
			MaxBodySize:      10000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Timestamps: true,
		},
		Browser: BrowserConfig{
			Headless:       true,
			Humanize:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			AutoRecover:    true,
			MaxPages:       10,
			InstallDriver:  true,
		},
		Screenshot: ScreenshotConfig{
			Dir:      "/tmp/camoufox_screenshots",
			AutoSave: true,
		},
		Viewer: ViewerConfig{
			Display: ":99",
		},
		Tracing: TracingConfig{
			ServiceName: "camoufox-mcp",
		},
		Server: ServerConfig{
			Name:      "camoufox-mcp",
			Transport: "stdio",
			Addr:      ":8931",
			RateBurst: 10,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	timeouts := map[string]int{
		"navigation": c.Timeouts.Navigation,
		"selector":   c.Timeouts.Selector,
		"network":    c.Timeouts.Network,
		"action":     c.Timeouts.Action,
		"screenshot": c.Timeouts.Screenshot,
		"javascript": c.Timeouts.JavaScript,
		"launch":     c.Timeouts.Launch,
		"page_close": c.Timeouts.PageClose,
	}
	for _, name := range []string{"navigation", "selector", "network", "action", "screenshot", "javascript", "launch", "page_close"} {
		if v := timeouts[name]; v < MinTimeoutMS || v > MaxTimeoutMS {
			return fmt.Errorf("timeouts.%s must be between %d and %d ms, got %d", name, MinTimeoutMS, MaxTimeoutMS, v)
		}
	}

	if c.Network.MaxLogSize < 1 {
		return fmt.Errorf("network.max_log_size must be at least 1")
	}
	if c.Network.MaxBodySize < 0 {
		return fmt.Errorf("network.max_body_size cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true, "critical": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}
	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "console" && format != "text" {
		return fmt.Errorf("invalid logging format: %s (must be 'json' or 'console')", c.Logging.Format)
	}

	if c.Browser.ViewportWidth < MinViewportWidth || c.Browser.ViewportWidth > MaxViewportWidth {
		return fmt.Errorf("browser.viewport_width must be between %d and %d", MinViewportWidth, MaxViewportWidth)
	}
	if c.Browser.ViewportHeight < MinViewportHeight || c.Browser.ViewportHeight > MaxViewportHeight {
		return fmt.Errorf("browser.viewport_height must be between %d and %d", MinViewportHeight, MaxViewportHeight)
	}
	if c.Browser.MaxPages < 1 {
		return fmt.Errorf("browser.max_pages must be at least 1")
	}

	if c.Screenshot.Dir == "" {
		return fmt.Errorf("screenshot.dir is required")
	}

	if c.Viewer.Enabled && c.Viewer.Display == "" {
		return fmt.Errorf("viewer.display is required when the viewer is enabled")
	}

	if c.Tracing.Enabled && c.Tracing.File == "" {
		return fmt.Errorf("tracing.file is required when tracing is enabled")
	}

	switch c.Server.Transport {
	case "stdio":
	case "http":
		if c.Server.Addr == "" {
			return fmt.Errorf("server.addr is required for the http transport")
		}
	default:
		return fmt.Errorf("invalid transport: %s (must be 'stdio' or 'http')", c.Server.Transport)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1 when rate limiting is enabled")
	}

	return nil
}

// EffectiveHeadless reports whether the browser should run headless. The
// viewer needs a visible window, so it overrides the headless default.
func (c *Config) EffectiveHeadless(requested *bool) bool {
	if c.Viewer.Enabled {
		return false
	}
	if requested != nil {
		return *requested
	}
	return c.Browser.Headless
}

// Duration converts a millisecond setting to a time.Duration.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
