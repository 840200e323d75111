package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tools/browser"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "camoufox-mcp "+version+"\n", execute(t, "version"))
}

func TestToolsCommand(t *testing.T) {
	out := execute(t, "tools")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 50)
	assert.True(t, strings.HasPrefix(lines[0], "TOOL"))
	assert.Contains(t, out, "launch_browser")
	assert.Contains(t, out, "export_har")
}

func TestToolsCommandJSON(t *testing.T) {
	var list []toolInfo
	require.NoError(t, json.Unmarshal([]byte(execute(t, "tools", "--json")), &list))
	require.NotEmpty(t, list)
	assert.Equal(t, "launch_browser", list[0].Name)
	assert.Equal(t, "object", list[0].InputSchema["type"])
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("CAMOUFOX_LOG_LEVEL", "warn")
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--transport", "http", "--addr", ":9000"}))

	opts := serveOptions{transport: "http", addr: ":9000"}
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigRejectsBadTransport(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--transport", "smoke"}))
	_, err := loadConfig(cmd, serveOptions{transport: "smoke"})
	assert.Error(t, err)
}

func TestBuildRegistryWithRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 5
	cfg.Server.RateBurst = 0
	collector := metrics.New()
	mgr := browser.NewManager(cfg, browser.NewPlaywrightLauncher(false), collector)

	reg, err := buildRegistry(cfg, mgr, collector)
	require.NoError(t, err)
	_, ok := reg.Get("get_tool_metrics")
	assert.True(t, ok)
}
