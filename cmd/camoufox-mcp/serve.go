package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/server"
	"github.com/entrhq/camoufox-mcp/pkg/tools/browser"
	"github.com/entrhq/camoufox-mcp/pkg/tracing"
)

const closeTimeout = 10 * time.Second

type serveOptions struct {
	configPath string
	transport  string
	addr       string
	logLevel   string
	noInstall  bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server on stdio (default) or streamable HTTP.

Configuration is read from defaults, then the YAML file given with --config,
then CAMOUFOX_* environment variables, then flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, !opts.noInstall)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "transport: stdio or http")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address for the http transport")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&opts.noInstall, "no-install", false, "do not download the playwright driver on first launch")
	return cmd
}

// loadConfig layers flags over file and environment.
func loadConfig(cmd *cobra.Command, opts serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = opts.transport
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, installDriver bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		Timestamps: cfg.Logging.Timestamps,
		Caller:     cfg.Logging.Caller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, logging to stderr\n", err)
	}
	defer func() { _ = logging.Shutdown() }()
	logger := logging.NewLogger("main")

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	collector := metrics.New()
	mgr := browser.NewManager(cfg, browser.NewPlaywrightLauncher(installDriver), collector)
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if _, err := mgr.Close(cctx); err != nil {
			logger.Warn("browser close failed", "error", err)
		}
	}()

	registry, err := buildRegistry(cfg, mgr, collector)
	if err != nil {
		return fmt.Errorf("build tools: %w", err)
	}
	srv, err := server.New(cfg.Server, version, registry)
	if err != nil {
		return err
	}

	logger.Info("camoufox-mcp starting", "version", version, "session_id", logging.GetSessionID())
	if err := srv.Serve(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("camoufox-mcp stopped")
	return nil
}
