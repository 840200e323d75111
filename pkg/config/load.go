package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the effective configuration: defaults, then the YAML file at
// path (if any), then CAMOUFOX_* environment overrides. The result is
// validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

type envBinding struct {
	key   string
	apply func(c *Config, v string) error
}

func intVar(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolVar(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func stringVar(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = strings.TrimSpace(v)
		return nil
	}
}

// parseBool accepts the spellings people put in container environments.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}

var envBindings = []envBinding{
	{"CAMOUFOX_TIMEOUT_NAVIGATION", intVar(func(c *Config) *int { return &c.Timeouts.Navigation })},
	{"CAMOUFOX_TIMEOUT_SELECTOR", intVar(func(c *Config) *int { return &c.Timeouts.Selector })},
	{"CAMOUFOX_TIMEOUT_NETWORK", intVar(func(c *Config) *int { return &c.Timeouts.Network })},
	{"CAMOUFOX_TIMEOUT_ACTION", intVar(func(c *Config) *int { return &c.Timeouts.Action })},
	{"CAMOUFOX_TIMEOUT_SCREENSHOT", intVar(func(c *Config) *int { return &c.Timeouts.Screenshot })},
	{"CAMOUFOX_TIMEOUT_JS", intVar(func(c *Config) *int { return &c.Timeouts.JavaScript })},
	{"CAMOUFOX_TIMEOUT_LAUNCH", intVar(func(c *Config) *int { return &c.Timeouts.Launch })},
	{"CAMOUFOX_TIMEOUT_PAGE_CLOSE", intVar(func(c *Config) *int { return &c.Timeouts.PageClose })},

	{"CAMOUFOX_NETWORK_CAPTURE", boolVar(func(c *Config) *bool { return &c.Network.CaptureByDefault })},
	{"CAMOUFOX_NETWORK_BODIES", boolVar(func(c *Config) *bool { return &c.Network.CaptureBodies })},
	{"CAMOUFOX_NETWORK_MAX_LOG", intVar(func(c *Config) *int { return &c.Network.MaxLogSize })},
	{"CAMOUFOX_NETWORK_MAX_BODY", intVar(func(c *Config) *int { return &c.Network.MaxBodySize })},

	{"CAMOUFOX_LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Logging.Level })},
	{"CAMOUFOX_LOG_FORMAT", stringVar(func(c *Config) *string { return &c.Logging.Format })},
	{"CAMOUFOX_LOG_FILE", stringVar(func(c *Config) *string { return &c.Logging.File })},
	{"CAMOUFOX_LOG_TIMESTAMPS", boolVar(func(c *Config) *bool { return &c.Logging.Timestamps })},
	{"CAMOUFOX_LOG_CALLER", boolVar(func(c *Config) *bool { return &c.Logging.Caller })},

	{"CAMOUFOX_HEADLESS", boolVar(func(c *Config) *bool { return &c.Browser.Headless })},
	{"CAMOUFOX_HUMANIZE", boolVar(func(c *Config) *bool { return &c.Browser.Humanize })},
	{"CAMOUFOX_VIEWPORT_WIDTH", intVar(func(c *Config) *int { return &c.Browser.ViewportWidth })},
	{"CAMOUFOX_VIEWPORT_HEIGHT", intVar(func(c *Config) *int { return &c.Browser.ViewportHeight })},
	{"CAMOUFOX_AUTO_RECOVER", boolVar(func(c *Config) *bool { return &c.Browser.AutoRecover })},
	{"CAMOUFOX_MAX_PAGES", intVar(func(c *Config) *int { return &c.Browser.MaxPages })},
	{"CAMOUFOX_EXECUTABLE", stringVar(func(c *Config) *string { return &c.Browser.ExecutablePath })},
	{"CAMOUFOX_INSTALL_DRIVER", boolVar(func(c *Config) *bool { return &c.Browser.InstallDriver })},

	{"CAMOUFOX_SCREENSHOT_DIR", stringVar(func(c *Config) *string { return &c.Screenshot.Dir })},
	{"CAMOUFOX_SCREENSHOT_AUTO_SAVE", boolVar(func(c *Config) *bool { return &c.Screenshot.AutoSave })},

	{"CAMOUFOX_VIEWER", boolVar(func(c *Config) *bool { return &c.Viewer.Enabled })},
	{"CAMOUFOX_VIEWER_DISPLAY", stringVar(func(c *Config) *string { return &c.Viewer.Display })},

	{"CAMOUFOX_TRACING", boolVar(func(c *Config) *bool { return &c.Tracing.Enabled })},
	{"CAMOUFOX_TRACING_FILE", stringVar(func(c *Config) *string { return &c.Tracing.File })},

	{"CAMOUFOX_TRANSPORT", stringVar(func(c *Config) *string { return &c.Server.Transport })},
	{"CAMOUFOX_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
	{"CAMOUFOX_RATE_LIMIT", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		c.Server.RateLimit = f
		return nil
	}},
}

// ApplyEnv overrides fields from CAMOUFOX_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		if err := b.apply(c, v); err != nil {
			return fmt.Errorf("invalid %s: %w", b.key, err)
		}
	}
	return nil
}

// EnvKeys lists the recognised environment variables.
func EnvKeys() []string {
	keys := make([]string, len(envBindings))
	for i, b := range envBindings {
		keys[i] = b.key
	}
	return keys
}
