package browser

import (
	"context"
	"maps"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/text/language"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// DevicePreset is a named device profile for emulate_device.
type DevicePreset struct {
	Viewport    Viewport `json:"viewport"`
	UserAgent   string   `json:"user_agent,omitempty"`
	ScaleFactor float64  `json:"device_scale_factor"`
	Mobile      bool     `json:"is_mobile"`
	Touch       bool     `json:"has_touch"`
}

const (
	iosUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	ipadUA    = "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	pixelUA   = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36"
	galaxyUA  = "Mozilla/5.0 (Linux; Android 13; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36"
	defaultVW = 1280
	defaultVH = 720
)

// Desktop presets keep the browser's own user agent.
var devicePresets = map[string]DevicePreset{
	"iphone_14":          {Viewport: Viewport{390, 844}, UserAgent: iosUA, ScaleFactor: 3, Mobile: true, Touch: true},
	"iphone_14_pro_max":  {Viewport: Viewport{430, 932}, UserAgent: iosUA, ScaleFactor: 3, Mobile: true, Touch: true},
	"ipad_pro":           {Viewport: Viewport{1024, 1366}, UserAgent: ipadUA, ScaleFactor: 2, Mobile: true, Touch: true},
	"pixel_7":            {Viewport: Viewport{412, 915}, UserAgent: pixelUA, ScaleFactor: 2.625, Mobile: true, Touch: true},
	"samsung_galaxy_s23": {Viewport: Viewport{360, 780}, UserAgent: galaxyUA, ScaleFactor: 3, Mobile: true, Touch: true},
	"desktop_1080p":      {Viewport: Viewport{1920, 1080}, ScaleFactor: 1},
	"desktop_1440p":      {Viewport: Viewport{2560, 1440}, ScaleFactor: 1},
	"laptop":             {Viewport: Viewport{1366, 768}, ScaleFactor: 1},
}

// presetKey normalizes a user supplied preset name.
func presetKey(name string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
}

func devicePresetNames() []string {
	names := make([]string, 0, len(devicePresets))
	for n := range devicePresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type emulateDeviceParams struct {
	TabTarget
	Device            string   `json:"device"`
	ViewportWidth     *int     `json:"viewport_width"`
	ViewportHeight    *int     `json:"viewport_height"`
	UserAgent         *string  `json:"user_agent"`
	DeviceScaleFactor *float64 `json:"device_scale_factor"`
	IsMobile          *bool    `json:"is_mobile"`
	HasTouch          *bool    `json:"has_touch"`
}

type localeParams struct {
	Locale string `json:"locale"`
}

type timezoneParams struct {
	TimezoneID string `json:"timezone_id"`
}

// resolveDevice merges explicit values over the named preset. The returned
// name is "custom" when no preset was given.
func resolveDevice(p emulateDeviceParams) (string, DevicePreset, error) {
	name := "custom"
	d := DevicePreset{Viewport: Viewport{defaultVW, defaultVH}, ScaleFactor: 1}
	if p.Device != "" {
		key := presetKey(p.Device)
		preset, ok := devicePresets[key]
		if !ok {
			return "", d, invalid("unknown device %q, available: %s", p.Device, strings.Join(devicePresetNames(), ", "))
		}
		name, d = key, preset
	}
	if p.ViewportWidth != nil {
		d.Viewport.Width = *p.ViewportWidth
	}
	if p.ViewportHeight != nil {
		d.Viewport.Height = *p.ViewportHeight
	}
	if err := ValidateViewport(d.Viewport.Width, d.Viewport.Height); err != nil {
		return "", d, err
	}
	if p.UserAgent != nil {
		d.UserAgent = strings.TrimSpace(*p.UserAgent)
	}
	if p.DeviceScaleFactor != nil {
		if *p.DeviceScaleFactor <= 0 || *p.DeviceScaleFactor > 5 {
			return "", d, invalid("device_scale_factor must be in (0, 5]")
		}
		d.ScaleFactor = *p.DeviceScaleFactor
	}
	if p.IsMobile != nil {
		d.Mobile = *p.IsMobile
	}
	if p.HasTouch != nil {
		d.Touch = *p.HasTouch
	}
	return name, d, nil
}

// acceptLanguage builds an Accept-Language value preferring tag and falling
// back to its base language.
func acceptLanguage(tag language.Tag) string {
	value := tag.String()
	if base, conf := tag.Base(); conf != language.No && base.String() != value {
		value += "," + base.String() + ";q=0.9"
	}
	return value
}

// updateOverrides changes the context overrides of the running session.
func (m *Manager) updateOverrides(fn func(*ContextOverrides)) (ContextOverrides, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return ContextOverrides{}, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	fn(&m.spec.Overrides)
	return m.spec.Overrides, nil
}

// Overrides returns the context overrides of the current session.
func (m *Manager) Overrides() ContextOverrides {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spec.Overrides
}

// setHeader adds an extra HTTP header sent with every request of the context.
// An empty value removes it.
func (s *toolset) setHeader(ctx context.Context, bc playwright.BrowserContext, name, value string) error {
	var headers map[string]string
	s.m.updateEmulation(func(e *emulationState) {
		if e.Headers == nil {
			e.Headers = map[string]string{}
		}
		if value == "" {
			delete(e.Headers, name)
		} else {
			e.Headers[name] = value
		}
		headers = maps.Clone(e.Headers)
	})
	return run(ctx, nil, func() error { return bc.SetExtraHTTPHeaders(headers) })
}

func (s *toolset) deviceTools() []tools.Tool {
	return []tools.Tool{
		tools.New("emulate_device",
			"Emulate a device from a preset or explicit values. The viewport and User-Agent header apply immediately; navigator.userAgent, pixel ratio and touch are recorded on the session and apply when the context is rebuilt by browser_recover.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"device":              tools.Enum("Device preset", devicePresetNames()...),
				"viewport_width":      tools.IntegerRange("Viewport width (overrides the preset)", 100, 7680),
				"viewport_height":     tools.IntegerRange("Viewport height (overrides the preset)", 100, 4320),
				"user_agent":          tools.String("User agent (overrides the preset)"),
				"device_scale_factor": tools.Number("Device pixel ratio (overrides the preset)"),
				"is_mobile":           tools.Boolean("Mobile device (reported only; Firefox has no mobile mode)"),
				"has_touch":           tools.Boolean("Enable touch support"),
			}), nil),
			s.emulateDevice),

		tools.New("list_device_presets",
			"List the device presets accepted by emulate_device.",
			tools.BaseToolSchema(nil, nil),
			s.listDevicePresets),

		tools.New("set_locale",
			"Set the browser locale. The Accept-Language header applies immediately; navigator.language and Intl apply when the context is rebuilt by browser_recover.",
			tools.BaseToolSchema(map[string]interface{}{
				"locale": tools.String("BCP 47 locale such as en-US, fr-FR or ja-JP"),
			}, []string{"locale"}),
			s.setLocale),

		tools.New("set_timezone",
			"Set the browser timezone. Firefox fixes the timezone per context, so it applies when the context is rebuilt by browser_recover.",
			tools.BaseToolSchema(map[string]interface{}{
				"timezone_id": tools.String("IANA timezone such as America/New_York or Asia/Tokyo"),
			}, []string{"timezone_id"}),
			s.setTimezone),
	}
}

func (s *toolset) emulateDevice(ctx context.Context, p emulateDeviceParams) (any, error) {
	name, d, err := resolveDevice(p)
	if err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}

	if err := run(ctx, tab, func() error { return tab.Page.SetViewportSize(d.Viewport.Width, d.Viewport.Height) }); err != nil {
		return nil, err
	}
	applied := []string{"viewport"}
	if d.UserAgent != "" {
		if err := s.setHeader(ctx, bc, "User-Agent", d.UserAgent); err != nil {
			return nil, err
		}
		applied = append(applied, "user_agent_header")
	}

	vp := d.Viewport
	overrides, err := s.m.updateOverrides(func(o *ContextOverrides) {
		o.Viewport = &vp
		o.UserAgent = d.UserAgent
		o.ScaleFactor = d.ScaleFactor
		o.HasTouch = d.Touch
	})
	if err != nil {
		return nil, err
	}

	deferred := []string{"viewport", "device_scale_factor", "has_touch"}
	if d.UserAgent != "" {
		deferred = append(deferred, "navigator_user_agent")
	}
	unsupported := []string{}
	if d.Mobile {
		unsupported = append(unsupported, "is_mobile")
	}
	s.logger.Info("device emulation changed", "device", name, "tab", tab.ID, "width", vp.Width, "height", vp.Height)
	return map[string]any{
		"device":      name,
		"settings":    d,
		"tab_id":      tab.ID,
		"applied_now": applied,
		"on_recover":  deferred,
		"unsupported": unsupported,
		"overrides":   overrides,
	}, nil
}

func (s *toolset) listDevicePresets(ctx context.Context, _ tools.Empty) (any, error) {
	return map[string]any{"count": len(devicePresets), "presets": devicePresets}, nil
}

func (s *toolset) setLocale(ctx context.Context, p localeParams) (any, error) {
	if strings.TrimSpace(p.Locale) == "" {
		return nil, invalid("locale cannot be empty")
	}
	tag, err := language.Parse(p.Locale)
	if err != nil {
		return nil, invalid("invalid locale %q: %v", p.Locale, err)
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	header := acceptLanguage(tag)
	if err := s.setHeader(ctx, bc, "Accept-Language", header); err != nil {
		return nil, err
	}
	locale := tag.String()
	if _, err := s.m.updateOverrides(func(o *ContextOverrides) { o.Locale = locale }); err != nil {
		return nil, err
	}
	return map[string]any{
		"locale":          locale,
		"accept_language": header,
		"applied_now":     []string{"accept_language_header"},
		"on_recover":      []string{"navigator_language", "intl_locale"},
	}, nil
}

func (s *toolset) setTimezone(ctx context.Context, p timezoneParams) (any, error) {
	id := strings.TrimSpace(p.TimezoneID)
	if id == "" || id == "Local" {
		return nil, invalid("timezone_id must be an IANA name such as Europe/London")
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, invalid("unknown timezone %q: use an IANA name such as America/New_York", p.TimezoneID)
	}
	if _, err := s.m.updateOverrides(func(o *ContextOverrides) { o.TimezoneID = id }); err != nil {
		return nil, err
	}
	return map[string]any{
		"timezone_id": id,
		"utc_offset":  time.Now().In(loc).Format("-07:00"),
		"applied_now": []string{},
		"on_recover":  []string{"timezone"},
	}, nil
}
