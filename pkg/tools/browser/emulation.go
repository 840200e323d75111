package browser

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const allRoutes = "**/*"

// NetworkConditions is an emulated network profile. Throughput values are
// bytes per second, -1 meaning unlimited.
type NetworkConditions struct {
	Preset             string `json:"preset,omitempty"`
	Offline            bool   `json:"offline"`
	LatencyMS          int    `json:"latency_ms"`
	DownloadThroughput int    `json:"download_throughput"`
	UploadThroughput   int    `json:"upload_throughput"`
}

var networkPresets = map[string]NetworkConditions{
	"offline":       {Offline: true, DownloadThroughput: -1, UploadThroughput: -1},
	"slow_3g":       {LatencyMS: 400, DownloadThroughput: 500 * 1024 / 8, UploadThroughput: 500 * 1024 / 8},
	"fast_3g":       {LatencyMS: 150, DownloadThroughput: 1536 * 1024 / 8, UploadThroughput: 750 * 1024 / 8},
	"slow_4g":       {LatencyMS: 100, DownloadThroughput: 3 * 1024 * 1024 / 8, UploadThroughput: 1536 * 1024 / 8},
	"fast_4g":       {LatencyMS: 50, DownloadThroughput: 10 * 1024 * 1024 / 8, UploadThroughput: 5 * 1024 * 1024 / 8},
	"wifi":          {LatencyMS: 10, DownloadThroughput: 30 * 1024 * 1024 / 8, UploadThroughput: 15 * 1024 * 1024 / 8},
	"no_throttling": {DownloadThroughput: -1, UploadThroughput: -1},
}

func presetNames() []string {
	names := make([]string, 0, len(networkPresets))
	for n := range networkPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Geolocation is an emulated position.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// emulationState records what is currently overridden. The zero value means
// nothing is emulated.
type emulationState struct {
	Geolocation   *Geolocation       `json:"geolocation,omitempty"`
	ColorScheme   string             `json:"color_scheme,omitempty"`
	ReducedMotion string             `json:"reduced_motion,omitempty"`
	Network       *NetworkConditions `json:"network,omitempty"`
	Headers       map[string]string  `json:"headers,omitempty"`
	latencyRoute  func(playwright.Route)
}

// Emulation returns the active overrides.
func (m *Manager) Emulation() emulationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emulation
}

func (m *Manager) updateEmulation(fn func(*emulationState)) emulationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.emulation)
	return m.emulation
}

var colorSchemes = map[string]*playwright.ColorScheme{
	"light":         playwright.ColorSchemeLight,
	"dark":          playwright.ColorSchemeDark,
	"no-preference": playwright.ColorSchemeNoPreference,
}

type geolocationParams struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

type colorSchemeParams struct {
	TabTarget
	Scheme string `json:"scheme"`
}

type reducedMotionParams struct {
	TabTarget
	Reduced *bool `json:"reduced"`
}

type emulateNetworkParams struct {
	Preset             string `json:"preset"`
	Offline            *bool  `json:"offline"`
	Latency            *int   `json:"latency"`
	DownloadThroughput *int   `json:"download_throughput"`
	UploadThroughput   *int   `json:"upload_throughput"`
}

func (s *toolset) emulationTools() []tools.Tool {
	return []tools.Tool{
		tools.New("set_geolocation",
			"Override the position reported by the geolocation API and grant the permission.",
			tools.BaseToolSchema(map[string]interface{}{
				"latitude":  map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90, "description": "Latitude"},
				"longitude": map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180, "description": "Longitude"},
				"accuracy":  map[string]interface{}{"type": "number", "minimum": 0, "description": "Accuracy in meters (default 100)"},
			}, []string{"latitude", "longitude"}),
			s.setGeolocation),

		tools.New("set_color_scheme",
			"Emulate prefers-color-scheme on a tab.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"scheme": tools.Enum("Color scheme (default light)", "light", "dark", "no-preference"),
			}), nil),
			s.setColorScheme),

		tools.New("set_reduced_motion",
			"Emulate prefers-reduced-motion on a tab.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"reduced": tools.Boolean("Prefer reduced motion (default true)"),
			}), nil),
			s.setReducedMotion),

		tools.New("emulate_network",
			"Emulate network conditions from a preset or explicit values. Offline mode and latency are enforced; throughput is reported but not enforced by Firefox.",
			tools.BaseToolSchema(map[string]interface{}{
				"preset":              tools.Enum("Network preset", presetNames()...),
				"offline":             tools.Boolean("Force offline mode"),
				"latency":             tools.IntegerRange("Added latency per request in ms", 0, 60000),
				"download_throughput": tools.Integer("Download bytes per second (-1 unlimited)"),
				"upload_throughput":   tools.Integer("Upload bytes per second (-1 unlimited)"),
			}, nil),
			s.emulateNetwork),

		tools.New("list_network_presets",
			"List the network presets accepted by emulate_network.",
			tools.BaseToolSchema(nil, nil),
			s.listNetworkPresets),

		tools.New("clear_emulation",
			"Remove geolocation, media, network, header and device overrides.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.clearEmulation),
	}
}

func (s *toolset) setGeolocation(ctx context.Context, p geolocationParams) (any, error) {
	if p.Latitude < -90 || p.Latitude > 90 {
		return nil, invalid("latitude must be between -90 and 90")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return nil, invalid("longitude must be between -180 and 180")
	}
	accuracy := 100.0
	if p.Accuracy != nil {
		accuracy = *p.Accuracy
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	err = run(ctx, nil, func() error {
		if err := bc.GrantPermissions([]string{"geolocation"}); err != nil {
			return err
		}
		return bc.SetGeolocation(&playwright.Geolocation{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Accuracy:  playwright.Float(accuracy),
		})
	})
	if err != nil {
		return nil, err
	}
	geo := &Geolocation{Latitude: p.Latitude, Longitude: p.Longitude, Accuracy: accuracy}
	s.m.updateEmulation(func(e *emulationState) { e.Geolocation = geo })
	return geo, nil
}

func (s *toolset) setColorScheme(ctx context.Context, p colorSchemeParams) (any, error) {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "light"
	}
	cs, ok := colorSchemes[scheme]
	if !ok {
		return nil, invalid("invalid scheme %q (must be light, dark or no-preference)", p.Scheme)
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, tab, func() error {
		return tab.Page.EmulateMedia(playwright.PageEmulateMediaOptions{ColorScheme: cs})
	}); err != nil {
		return nil, err
	}
	s.m.updateEmulation(func(e *emulationState) { e.ColorScheme = scheme })
	return map[string]string{"color_scheme": scheme, "tab_id": tab.ID}, nil
}

func (s *toolset) setReducedMotion(ctx context.Context, p reducedMotionParams) (any, error) {
	reduced := p.Reduced == nil || *p.Reduced
	motion, value := playwright.ReducedMotionNoPreference, "no-preference"
	if reduced {
		motion, value = playwright.ReducedMotionReduce, "reduce"
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, tab, func() error {
		return tab.Page.EmulateMedia(playwright.PageEmulateMediaOptions{ReducedMotion: motion})
	}); err != nil {
		return nil, err
	}
	s.m.updateEmulation(func(e *emulationState) { e.ReducedMotion = value })
	return map[string]any{"reduced_motion": value, "tab_id": tab.ID}, nil
}

// resolveConditions merges explicit values over the named preset.
func resolveConditions(p emulateNetworkParams) (NetworkConditions, error) {
	nc := NetworkConditions{DownloadThroughput: -1, UploadThroughput: -1}
	if p.Preset != "" {
		name := presetKey(p.Preset)
		preset, ok := networkPresets[name]
		if !ok {
			return nc, invalid("unknown preset %q, available: %s", p.Preset, strings.Join(presetNames(), ", "))
		}
		nc = preset
		nc.Preset = name
	}
	if p.Offline != nil {
		nc.Offline = *p.Offline
	}
	if p.Latency != nil {
		if *p.Latency < 0 {
			return nc, invalid("latency must not be negative")
		}
		nc.LatencyMS = *p.Latency
	}
	if p.DownloadThroughput != nil {
		nc.DownloadThroughput = *p.DownloadThroughput
	}
	if p.UploadThroughput != nil {
		nc.UploadThroughput = *p.UploadThroughput
	}
	return nc, nil
}

// NetworkPresetSummary describes a preset in kilobits per second.
type NetworkPresetSummary struct {
	Offline      bool `json:"offline,omitempty"`
	Throttled    bool `json:"throttled"`
	DownloadKbps int  `json:"download_kbps,omitempty"`
	UploadKbps   int  `json:"upload_kbps,omitempty"`
	LatencyMS    int  `json:"latency_ms,omitempty"`
}

func summarizePreset(nc NetworkConditions) NetworkPresetSummary {
	if nc.Offline {
		return NetworkPresetSummary{Offline: true}
	}
	if nc.DownloadThroughput < 0 {
		return NetworkPresetSummary{LatencyMS: nc.LatencyMS}
	}
	return NetworkPresetSummary{
		Throttled:    true,
		DownloadKbps: nc.DownloadThroughput * 8 / 1024,
		UploadKbps:   nc.UploadThroughput * 8 / 1024,
		LatencyMS:    nc.LatencyMS,
	}
}

func (s *toolset) listNetworkPresets(ctx context.Context, _ tools.Empty) (any, error) {
	out := make(map[string]NetworkPresetSummary, len(networkPresets))
	for name, nc := range networkPresets {
		out[name] = summarizePreset(nc)
	}
	return map[string]any{"count": len(out), "presets": out}, nil
}

// latencyHandler delays every request by d before letting it continue.
func latencyHandler(d time.Duration) func(playwright.Route) {
	return func(r playwright.Route) {
		go func() {
			time.Sleep(d)
			_ = r.Continue()
		}()
	}
}

func (s *toolset) emulateNetwork(ctx context.Context, p emulateNetworkParams) (any, error) {
	nc, err := resolveConditions(p)
	if err != nil {
		return nil, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	prev := s.m.Emulation().latencyRoute

	var handler func(playwright.Route)
	if nc.LatencyMS > 0 && !nc.Offline {
		handler = latencyHandler(time.Duration(nc.LatencyMS) * time.Millisecond)
	}
	err = run(ctx, nil, func() error {
		if err := bc.SetOffline(nc.Offline); err != nil {
			return err
		}
		if prev != nil {
			if err := bc.Unroute(allRoutes, prev); err != nil {
				return err
			}
		}
		if handler != nil {
			return bc.Route(allRoutes, handler)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.m.updateEmulation(func(e *emulationState) {
		e.latencyRoute = handler
		e.Network = &nc
		if nc.Preset == "no_throttling" {
			e.Network = nil
		}
	})
	s.logger.Info("network emulation changed", "preset", nc.Preset, "offline", nc.Offline, "latency_ms", nc.LatencyMS)
	return map[string]any{
		"conditions":           nc,
		"throughput_enforced":  false,
		"latency_enforced":     handler != nil,
		"offline_mode_enabled": nc.Offline,
	}, nil
}

func (s *toolset) clearEmulation(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	state := s.m.Emulation()

	var cleared []string
	if err := run(ctx, tab, func() error {
		return tab.Page.EmulateMedia(playwright.PageEmulateMediaOptions{
			ColorScheme:   playwright.ColorSchemeNoOverride,
			ReducedMotion: playwright.ReducedMotionNoOverride,
		})
	}); err == nil {
		cleared = append(cleared, "media")
	} else {
		s.logger.Debug("clear media emulation failed", "error", err)
	}
	if err := run(ctx, nil, bc.ClearPermissions); err == nil {
		cleared = append(cleared, "permissions")
	}
	if state.Network != nil || state.latencyRoute != nil {
		err := run(ctx, nil, func() error {
			if err := bc.SetOffline(false); err != nil {
				return err
			}
			if state.latencyRoute != nil {
				return bc.Unroute(allRoutes, state.latencyRoute)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		cleared = append(cleared, "network")
	}
	if len(state.Headers) > 0 {
		if err := run(ctx, nil, func() error { return bc.SetExtraHTTPHeaders(map[string]string{}) }); err != nil {
			return nil, err
		}
		cleared = append(cleared, "headers")
	}
	overrides := s.m.Overrides()
	if overrides.Viewport != nil {
		vp := s.m.Config().Browser
		if err := run(ctx, tab, func() error { return tab.Page.SetViewportSize(vp.ViewportWidth, vp.ViewportHeight) }); err != nil {
			return nil, err
		}
		cleared = append(cleared, "viewport")
	}
	if !overrides.IsZero() {
		if _, err := s.m.updateOverrides(func(o *ContextOverrides) { *o = ContextOverrides{} }); err != nil {
			return nil, err
		}
		cleared = append(cleared, "context_overrides")
	}
	s.m.updateEmulation(func(e *emulationState) { *e = emulationState{} })
	if cleared == nil {
		cleared = []string{}
	}
	return map[string]any{"cleared": cleared}, nil
}
