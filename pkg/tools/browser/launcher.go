package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/logging"
)

// OS profiles accepted by launch_browser.
var osProfiles = []string{"random", "windows", "macos", "linux"}

// LaunchSpec is a fully resolved launch request. Defaults from the server
// configuration have already been applied.
type LaunchSpec struct {
	Headless    bool
	Humanize    bool
	OS          string // empty means let the browser pick
	GeoIP       bool
	BlockImages bool
	Locale      string
	Proxy       *ProxySettings
	Viewport    Viewport
	Overrides   ContextOverrides

	ExecutablePath string
	// Display is set when the live viewer is enabled; the browser renders
	// on that X display.
	Display string
	Timeout time.Duration
}

// ContextOverrides are emulation settings Firefox only accepts when a browser
// context is created. Tools record them on the running session and they take
// effect when the context is next built, by browser_recover or a relaunch with
// the same spec.
type ContextOverrides struct {
	UserAgent   string    `json:"user_agent,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	TimezoneID  string    `json:"timezone_id,omitempty"`
	ScaleFactor float64   `json:"device_scale_factor,omitempty"`
	HasTouch    bool      `json:"has_touch,omitempty"`
	Viewport    *Viewport `json:"viewport,omitempty"`
}

// IsZero reports whether no override is set.
func (o ContextOverrides) IsZero() bool {
	return o == ContextOverrides{}
}

// locale is the effective context locale.
func (s LaunchSpec) locale() string {
	if s.Overrides.Locale != "" {
		return s.Overrides.Locale
	}
	return s.Locale
}

// viewport is the effective initial viewport.
func (s LaunchSpec) viewport() Viewport {
	if s.Overrides.Viewport != nil {
		return *s.Overrides.Viewport
	}
	return s.Viewport
}

// ProxySettings routes browser traffic through a proxy.
type ProxySettings struct {
	Server   string
	Username string
	Password string
}

// Instance is a running browser and the context all tabs live in.
type Instance struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
	stop    func() error
}

// NewInstance wraps an already running browser. stop is called after the
// browser closes and may be nil.
func NewInstance(b playwright.Browser, c playwright.BrowserContext, stop func() error) *Instance {
	return &Instance{Browser: b, Context: c, stop: stop}
}

// Close shuts the context, the browser and the driver down, in that order.
// Every step runs even if an earlier one fails.
func (i *Instance) Close() error {
	var errs []error
	if i.Context != nil {
		if err := i.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if i.Browser != nil {
		if err := i.Browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if i.stop != nil {
		if err := i.stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop driver: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Launcher starts browsers. The production implementation drives a Camoufox
// binary through playwright; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (*Instance, error)
}

// PlaywrightLauncher launches Camoufox through the playwright Firefox
// protocol.
type PlaywrightLauncher struct {
	installDriver bool
	logger        *logging.Logger
}

// NewPlaywrightLauncher creates a launcher. When installDriver is set the
// playwright driver is downloaded on first use.
func NewPlaywrightLauncher(installDriver bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{
		installDriver: installDriver,
		logger:        logging.NewLogger("launcher"),
	}
}

// Launch starts the driver, the browser and a fresh context.
func (l *PlaywrightLauncher) Launch(ctx context.Context, spec LaunchSpec) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Driver output would corrupt the stdio transport.
	runOpts := &playwright.RunOptions{
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
		SkipInstallBrowsers: spec.ExecutablePath != "",
		Browsers:            []string{"firefox"},
	}
	if l.installDriver {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	env, err := launchEnv(spec)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless:         playwright.Bool(spec.Headless),
		Env:              env,
		FirefoxUserPrefs: firefoxPrefs(spec),
		Timeout:          playwright.Float(float64(spec.Timeout.Milliseconds())),
	}
	if spec.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(spec.ExecutablePath)
	}
	if spec.Proxy != nil {
		launchOpts.Proxy = &playwright.Proxy{Server: spec.Proxy.Server}
		if spec.Proxy.Username != "" {
			launchOpts.Proxy.Username = playwright.String(spec.Proxy.Username)
		}
		if spec.Proxy.Password != "" {
			launchOpts.Proxy.Password = playwright.String(spec.Proxy.Password)
		}
	}

	l.logger.Debug("launching browser",
		"headless", spec.Headless,
		"os", spec.OS,
		"proxy_enabled", spec.Proxy != nil,
		"executable", spec.ExecutablePath)

	browser, err := pw.Firefox.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(contextOptions(spec))
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	return NewInstance(browser, bctx, pw.Stop), nil
}

// launchEnv builds the browser environment: the server's own environment
// plus the Camoufox fingerprint configuration and the viewer display.
func launchEnv(spec LaunchSpec) (map[string]string, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	camou := map[string]any{
		"humanize": spec.Humanize,
	}
	if spec.OS != "" {
		camou["os"] = spec.OS
	}
	if locale := spec.locale(); locale != "" {
		camou["locale:all"] = locale
	}
	if spec.GeoIP {
		camou["geoip"] = true
	}
	o := spec.Overrides
	if o.TimezoneID != "" {
		camou["timezone"] = o.TimezoneID
	}
	if o.UserAgent != "" {
		camou["navigator.userAgent"] = o.UserAgent
	}
	if o.ScaleFactor > 0 {
		camou["window.devicePixelRatio"] = o.ScaleFactor
	}
	if o.HasTouch {
		camou["navigator.maxTouchPoints"] = 5
	}
	data, err := json.Marshal(camou)
	if err != nil {
		return nil, fmt.Errorf("encode camoufox config: %w", err)
	}
	env["CAMOU_CONFIG"] = string(data)

	if spec.Display != "" {
		env["DISPLAY"] = spec.Display
	}
	return env, nil
}

// contextOptions builds the options for the session's browser context.
// isMobile is left unset: Firefox rejects it.
func contextOptions(spec LaunchSpec) playwright.BrowserNewContextOptions {
	vp := spec.viewport()
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: vp.Width, Height: vp.Height},
	}
	if locale := spec.locale(); locale != "" {
		opts.Locale = playwright.String(locale)
	}
	o := spec.Overrides
	if o.TimezoneID != "" {
		opts.TimezoneId = playwright.String(o.TimezoneID)
	}
	if o.UserAgent != "" {
		opts.UserAgent = playwright.String(o.UserAgent)
	}
	if o.ScaleFactor > 0 {
		opts.DeviceScaleFactor = playwright.Float(o.ScaleFactor)
	}
	if o.HasTouch {
		opts.HasTouch = playwright.Bool(true)
	}
	return opts
}

func firefoxPrefs(spec LaunchSpec) map[string]interface{} {
	prefs := map[string]interface{}{}
	if spec.BlockImages {
		prefs["permissions.default.image"] = 2
	}
	return prefs
}
