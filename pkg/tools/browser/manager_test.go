package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestPageToolsRequireLaunch(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		tool string
		args map[string]any
	}{
		{"goto", map[string]any{"url": "https://example.com"}},
		{"reload", map[string]any{}},
		{"get_url", map[string]any{}},
		{"get_page_title", map[string]any{}},
		{"click", map[string]any{"selector": "#go"}},
		{"fill", map[string]any{"selector": "#q", "value": "x"}},
		{"hover", map[string]any{"selector": "#go"}},
		{"get_text", map[string]any{}},
		{"inspect_element", map[string]any{"selector": "#go"}},
		{"screenshot", map[string]any{}},
		{"evaluate", map[string]any{"expression": "1 + 1"}},
		{"wait_for_selector", map[string]any{"selector": "#go"}},
		{"wait", map[string]any{"milliseconds": 10}},
		{"get_local_storage", map[string]any{}},
		{"set_local_storage", map[string]any{"key": "k", "value": "v"}},
		{"get_cookies", map[string]any{}},
		{"clear_cookies", map[string]any{}},
		{"list_frames", map[string]any{}},
		{"batch_actions", map[string]any{"actions": []any{map[string]any{"action": "wait", "ms": 1}}}},
		{"fill_form", map[string]any{"fields": map[string]any{"#a": "1"}}},
		{"mouse_move_xy", map[string]any{"x": 1, "y": 1}},
		{"get_aria_snapshot", map[string]any{}},
		{"verify_element_visible", map[string]any{"selector": "#go"}},
		{"set_color_scheme", map[string]any{"scheme": "dark"}},
		{"start_tracing", map[string]any{}},
		{"get_navigation_timing", map[string]any{}},
		{"test_selector", map[string]any{"selector": "#go"}},
		{"list_init_scripts", map[string]any{}},
		{"new_page", map[string]any{}},
		{"list_pages", map[string]any{}},
		{"switch_page", map[string]any{"page_id": "0"}},
		{"set_network_capture", map[string]any{"enabled": true}},
		{"handle_dialog", map[string]any{"action": "accept"}},
		{"get_network_log", map[string]any{}},
		{"emulate_device", map[string]any{"device": "iphone_14"}},
		{"set_locale", map[string]any{"locale": "fr-FR"}},
		{"set_timezone", map[string]any{"timezone_id": "Europe/Paris"}},
		{"get_performance_metrics", map[string]any{}},
		{"get_memory_info", map[string]any{}},
		{"get_long_tasks", map[string]any{}},
		{"analyze_performance", map[string]any{}},
		{"expect_element", map[string]any{"selector": "#go", "assertion": "visible"}},
		{"verify_list_visible", map[string]any{"items": []string{"a"}}},
		{"generate_locator", map[string]any{"selector": "#go"}},
		{"snapshot_state", map[string]any{}},
		{"diff_state", map[string]any{}},
		{"analyze_page_structure", map[string]any{}},
		{"analyze_network_patterns", map[string]any{}},
		{"analyze_resource_loading", map[string]any{}},
		{"find_data_sources", map[string]any{}},
		{"detect_antibot_protection", map[string]any{}},
		{"monitor_fingerprinting", map[string]any{"duration_ms": 100}},
		{"clear_network_log", map[string]any{}},
		{"get_network_stats", map[string]any{}},
		{"export_har", map[string]any{}},
		{"tracing_status", map[string]any{}},
		{"get_console_logs", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			_, err := h.call(tt.tool, tt.args)
			assert.Equal(t, tools.KindPreconditionViolation, kindOf(t, err))
		})
	}
}

func TestLaunchCloseClose(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()

	res := h.mustCall("get_url", map[string]any{})
	assert.NotNil(t, res)

	_, err := h.call("launch_browser", map[string]any{})
	assert.Equal(t, tools.KindAlreadyLaunched, kindOf(t, err))

	res = h.mustCall("close_browser", map[string]any{})
	assert.Equal(t, map[string]any{"closed": true}, res)
	assert.Equal(t, 1, fc.closes)

	res = h.mustCall("close_browser", map[string]any{})
	assert.Equal(t, map[string]any{"closed": false}, res)

	_, err = h.call("get_url", map[string]any{})
	assert.Equal(t, tools.KindPreconditionViolation, kindOf(t, err))

	// a fresh launch works after close
	h.launch()
	assert.Equal(t, 2, h.launcher.launches)
}

func TestLaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.launcher.err = errors.New("executable not found")

	_, err := h.call("launch_browser", map[string]any{})
	assert.Equal(t, tools.KindOperationFailed, kindOf(t, err))
	assert.False(t, h.manager.Running())

	h.launcher.err = nil
	h.launch()
	assert.True(t, h.manager.Running())
}

func TestLaunchRejectsBadOptions(t *testing.T) {
	h := newHarness(t)

	_, err := h.call("launch_browser", map[string]any{"proxy_username": "bob"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	_, err = h.call("launch_browser", map[string]any{"proxy_server": "ftp://proxy:21"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	assert.Equal(t, 0, h.launcher.launches)
}

func TestSwitchToUnknownTab(t *testing.T) {
	h := newHarness(t)
	h.launch()
	h.mustCall("new_page", map[string]any{"page_id": "docs"})
	h.mustCall("switch_page", map[string]any{"page_id": "0"})

	_, err := h.call("switch_page", map[string]any{"page_id": "nope"})
	require.Error(t, err)
	te := tools.AsError(err)
	assert.Equal(t, tools.KindUnknownTab, te.Kind)
	assert.Equal(t, map[string]any{"available": []string{"0", "1"}}, te.Details)

	tab, err := h.manager.Tab("")
	require.NoError(t, err)
	assert.Equal(t, "0", tab.ID)
}

func TestTabsAndLabels(t *testing.T) {
	h := newHarness(t)
	h.launch()

	info := h.mustCall("new_page", map[string]any{"page_id": "docs"}).(TabInfo)
	assert.Equal(t, "1", info.ID)

	_, err := h.call("new_page", map[string]any{"page_id": "docs"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	_, err = h.call("new_page", map[string]any{"page_id": "7"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	tab, err := h.manager.Tab("docs")
	require.NoError(t, err)
	assert.Equal(t, "1", tab.ID)

	res := h.mustCall("close_page", map[string]any{"page_id": "docs"}).(ClosePageResult)
	assert.Equal(t, ClosePageResult{Closed: "1", Current: "0"}, res)

	select {
	case <-tab.Done():
	default:
		t.Fatal("closed tab should be marked done")
	}

	_, err = h.call("close_page", map[string]any{"page_id": "0"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
}

func TestMaxPages(t *testing.T) {
	h := newHarness(t)
	h.manager.cfg.Browser.MaxPages = 2
	h.launch()

	h.mustCall("new_page", map[string]any{})
	_, err := h.call("new_page", map[string]any{})
	assert.Equal(t, tools.KindOperationFailed, kindOf(t, err))
}

func TestCloseCancelsPendingWaits(t *testing.T) {
	h := newHarness(t)
	h.launch()

	errc := make(chan error, 1)
	go func() {
		_, err := h.call("wait_for_request", map[string]any{"url_pattern": "/never", "timeout": 30000})
		errc <- err
	}()

	// depending on scheduling the wait sees the closed tab or no browser
	h.mustCall("close_browser", map[string]any{})
	err := <-errc
	require.Error(t, err)
	assert.Contains(t, []tools.Kind{tools.KindSessionClosed, tools.KindPreconditionViolation}, tools.KindOf(err))
}

func TestInfoAndHealth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report := h.manager.HealthCheck(ctx)
	assert.False(t, report.Healthy)
	assert.Equal(t, HealthStopped, report.Status)

	h.launch()
	info := h.manager.Info(ctx)
	assert.True(t, info.Running)
	assert.Equal(t, 1, info.TabCount)
	assert.Equal(t, "0", info.CurrentTab)
	assert.True(t, info.Headless)

	report = h.manager.HealthCheck(ctx)
	assert.True(t, report.Healthy)
	assert.Equal(t, HealthRunning, report.Status)
	assert.Equal(t, 1, report.PageCount)
}
