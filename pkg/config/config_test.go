package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30000, cfg.Timeouts.Navigation)
	assert.Equal(t, 5000, cfg.Timeouts.Action)
	assert.Equal(t, 60000, cfg.Timeouts.Launch)
	assert.True(t, cfg.Network.CaptureByDefault)
	assert.False(t, cfg.Network.CaptureBodies)
	assert.Equal(t, 1000, cfg.Network.MaxLogSize)
	assert.Equal(t, 10000, cfg.Network.MaxBodySize)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1080, cfg.Browser.ViewportHeight)
	assert.Equal(t, "/tmp/camoufox_screenshots", cfg.Screenshot.Dir)
	assert.True(t, cfg.Screenshot.AutoSave)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"CAMOUFOX_TIMEOUT_ACTION":       "2500",
		"CAMOUFOX_NETWORK_BODIES":       "yes",
		"CAMOUFOX_NETWORK_MAX_LOG":      "5",
		"CAMOUFOX_LOG_LEVEL":            "DEBUG",
		"CAMOUFOX_HEADLESS":             "false",
		"CAMOUFOX_SCREENSHOT_DIR":       "/data/shots",
		"CAMOUFOX_SCREENSHOT_AUTO_SAVE": "0",
		"CAMOUFOX_VIEWER":               "1",
		"CAMOUFOX_RATE_LIMIT":           "2.5",
	}))
	require.NoError(t, err)

	assert.Equal(t, 2500, cfg.Timeouts.Action)
	assert.True(t, cfg.Network.CaptureBodies)
	assert.Equal(t, 5, cfg.Network.MaxLogSize)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/data/shots", cfg.Screenshot.Dir)
	assert.False(t, cfg.Screenshot.AutoSave)
	assert.True(t, cfg.Viewer.Enabled)
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 0.0001)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"CAMOUFOX_TIMEOUT_NAVIGATION": "soon",
		"CAMOUFOX_HEADLESS":           "maybe",
		"CAMOUFOX_RATE_LIMIT":         "fast",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := DefaultConfig().ApplyEnv(envMap(map[string]string{key: value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camoufox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeouts:
  navigation: 45000
network:
  max_log_size: 50
browser:
  viewport_width: 1280
  viewport_height: 720
server:
  transport: http
  addr: 127.0.0.1:9000
`), 0600))

	cfg, err := Load(path, envMap(map[string]string{"CAMOUFOX_NETWORK_MAX_LOG": "75"}))
	require.NoError(t, err)

	assert.Equal(t, 45000, cfg.Timeouts.Navigation)
	assert.Equal(t, 5000, cfg.Timeouts.Action, "unset keys keep their defaults")
	assert.Equal(t, 75, cfg.Network.MaxLogSize, "env wins over the file")
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeouts: [1, 2"), 0600))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("invalid result", func(t *testing.T) {
		_, err := Load("", envMap(map[string]string{"CAMOUFOX_TIMEOUT_ACTION": "10"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeouts.action")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"timeout too large", func(c *Config) { c.Timeouts.JavaScript = 300001 }, "timeouts.javascript"},
		{"zero log size", func(c *Config) { c.Network.MaxLogSize = 0 }, "max_log_size"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
		{"narrow viewport", func(c *Config) { c.Browser.ViewportWidth = 100 }, "viewport_width"},
		{"tall viewport", func(c *Config) { c.Browser.ViewportHeight = 5000 }, "viewport_height"},
		{"no pages", func(c *Config) { c.Browser.MaxPages = 0 }, "max_pages"},
		{"no screenshot dir", func(c *Config) { c.Screenshot.Dir = "" }, "screenshot.dir"},
		{"tracing without file", func(c *Config) { c.Tracing.Enabled = true }, "tracing.file"},
		{"unknown transport", func(c *Config) { c.Server.Transport = "sse" }, "transport"},
		{"rate limit without burst", func(c *Config) { c.Server.RateLimit = 1; c.Server.RateBurst = 0 }, "rate_burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEffectiveHeadless(t *testing.T) {
	cfg := DefaultConfig()
	no := false

	assert.True(t, cfg.EffectiveHeadless(nil))
	assert.False(t, cfg.EffectiveHeadless(&no))

	cfg.Viewer.Enabled = true
	yes := true
	assert.False(t, cfg.EffectiveHeadless(&yes), "viewer forces a headed browser")
}

func TestEnvKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range EnvKeys() {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Contains(t, seen, "CAMOUFOX_SCREENSHOT_AUTO_SAVE")
}
