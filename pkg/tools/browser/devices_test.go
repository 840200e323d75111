package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestResolveDevice(t *testing.T) {
	name, d, err := resolveDevice(emulateDeviceParams{})
	require.NoError(t, err)
	assert.Equal(t, "custom", name)
	assert.Equal(t, Viewport{1280, 720}, d.Viewport)
	assert.Equal(t, 1.0, d.ScaleFactor)

	name, d, err = resolveDevice(emulateDeviceParams{Device: "iPhone-14"})
	require.NoError(t, err)
	assert.Equal(t, "iphone_14", name)
	assert.Equal(t, Viewport{390, 844}, d.Viewport)
	assert.True(t, d.Touch)
	assert.Equal(t, iosUA, d.UserAgent)

	scale := 2.0
	touch := false
	_, d, err = resolveDevice(emulateDeviceParams{Device: "pixel_7", ViewportWidth: intPtr(500), DeviceScaleFactor: &scale, HasTouch: &touch})
	require.NoError(t, err)
	assert.Equal(t, Viewport{500, 915}, d.Viewport)
	assert.Equal(t, 2.0, d.ScaleFactor)
	assert.False(t, d.Touch)
}

func TestResolveDeviceRejects(t *testing.T) {
	_, _, err := resolveDevice(emulateDeviceParams{Device: "nokia_3310"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
	assert.Contains(t, err.Error(), "iphone_14")

	_, _, err = resolveDevice(emulateDeviceParams{ViewportWidth: intPtr(10)})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	scale := 9.0
	_, _, err = resolveDevice(emulateDeviceParams{DeviceScaleFactor: &scale})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "fr-FR,fr;q=0.9", acceptLanguage(language.MustParse("fr-FR")))
	assert.Equal(t, "de", acceptLanguage(language.MustParse("de")))
}

func TestSummarizePreset(t *testing.T) {
	assert.Equal(t, NetworkPresetSummary{Offline: true}, summarizePreset(networkPresets["offline"]))
	assert.Equal(t, NetworkPresetSummary{}, summarizePreset(networkPresets["no_throttling"]))

	slow := summarizePreset(networkPresets["slow_3g"])
	assert.True(t, slow.Throttled)
	assert.Equal(t, 500, slow.DownloadKbps)
	assert.Equal(t, 400, slow.LatencyMS)
}

func TestEmulateDeviceAppliesAndRecordsOverrides(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()

	res := h.mustCall("emulate_device", map[string]any{"device": "iphone_14"}).(map[string]any)
	assert.Equal(t, "iphone_14", res["device"])
	assert.Equal(t, []string{"is_mobile"}, res["unsupported"])
	assert.Equal(t, [2]int{390, 844}, fc.page(0).viewport)
	assert.Equal(t, iosUA, fc.extraHeaders()["User-Agent"])

	o := h.manager.Overrides()
	assert.Equal(t, 3.0, o.ScaleFactor)
	assert.True(t, o.HasTouch)
	require.NotNil(t, o.Viewport)
	assert.Equal(t, Viewport{390, 844}, *o.Viewport)

	info := h.mustCall("get_browser_info", map[string]any{}).(map[string]any)["browser"].(BrowserInfo)
	require.NotNil(t, info.Overrides)
	assert.Equal(t, iosUA, info.Overrides.UserAgent)

	// the rebuilt context carries the overrides
	h.mustCall("browser_recover", map[string]any{})
	spec := h.launcher.lastSpec()
	assert.Equal(t, iosUA, spec.Overrides.UserAgent)
	opts := contextOptions(spec)
	assert.Equal(t, 390, opts.Viewport.Width)
	require.NotNil(t, opts.DeviceScaleFactor)
	assert.Equal(t, 3.0, *opts.DeviceScaleFactor)
	assert.Nil(t, opts.IsMobile)
}

func TestSetLocaleAndTimezone(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()

	res := h.mustCall("set_locale", map[string]any{"locale": "ja-JP"}).(map[string]any)
	assert.Equal(t, "ja-JP", res["locale"])
	assert.Equal(t, "ja-JP,ja;q=0.9", fc.extraHeaders()["Accept-Language"])

	res = h.mustCall("set_timezone", map[string]any{"timezone_id": "Asia/Tokyo"}).(map[string]any)
	assert.Equal(t, "+09:00", res["utc_offset"])

	o := h.manager.Overrides()
	assert.Equal(t, "ja-JP", o.Locale)
	assert.Equal(t, "Asia/Tokyo", o.TimezoneID)

	env, err := launchEnv(LaunchSpec{Locale: "en-US", Overrides: o})
	require.NoError(t, err)
	var camou map[string]any
	require.NoError(t, json.Unmarshal([]byte(env["CAMOU_CONFIG"]), &camou))
	assert.Equal(t, "ja-JP", camou["locale:all"])
	assert.Equal(t, "Asia/Tokyo", camou["timezone"])
}

func TestSetLocaleAndTimezoneReject(t *testing.T) {
	h := newHarness(t)
	h.launch()

	for _, tz := range []string{"", "Local", "Mars/Olympus"} {
		_, err := h.call("set_timezone", map[string]any{"timezone_id": tz})
		assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err), tz)
	}
	_, err := h.call("set_locale", map[string]any{"locale": "not a locale!"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
	assert.True(t, h.manager.Overrides().IsZero())
}

func TestClearEmulationResetsDeviceState(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()

	h.mustCall("emulate_device", map[string]any{"device": "laptop"})
	h.mustCall("set_locale", map[string]any{"locale": "de-DE"})

	res := h.mustCall("clear_emulation", map[string]any{}).(map[string]any)
	assert.Subset(t, res["cleared"], []string{"headers", "viewport", "context_overrides"})
	assert.Empty(t, fc.extraHeaders())
	cfg := h.manager.Config().Browser
	assert.Equal(t, [2]int{cfg.ViewportWidth, cfg.ViewportHeight}, fc.page(0).viewport)
	assert.True(t, h.manager.Overrides().IsZero())
}

func TestListPresets(t *testing.T) {
	h := newHarness(t)

	res := h.mustCall("list_device_presets", map[string]any{}).(map[string]any)
	assert.Equal(t, len(devicePresets), res["count"])

	res = h.mustCall("list_network_presets", map[string]any{}).(map[string]any)
	presets := res["presets"].(map[string]NetworkPresetSummary)
	assert.True(t, presets["offline"].Offline)
	assert.True(t, presets["fast_4g"].Throttled)
}
