package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
	"github.com/entrhq/camoufox-mcp/pkg/tools/browser"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "camoufox-mcp",
		Short:         "MCP server for Camoufox browser automation",
		Long:          `camoufox-mcp exposes a Camoufox (anti-detect Firefox) browser to MCP clients as a set of tools.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newToolsCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "camoufox-mcp %s\n", version)
			return err
		},
	}
}

// buildRegistry wires the browser tools with instrumentation and, when
// configured, a rate limit.
func buildRegistry(cfg *config.Config, mgr *browser.Manager, collector *metrics.Collector) (*tools.Registry, error) {
	mw := []tools.Middleware{tools.Instrument(logging.NewLogger("tools"), collector)}
	if cfg.Server.RateLimit > 0 {
		burst := cfg.Server.RateBurst
		if burst < 1 {
			burst = 1
		}
		mw = append(mw, tools.RateLimit(rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), burst)))
	}

	list := browser.NewToolRegistry(mgr, browser.NewArtifactWriter(cfg.Screenshot.Dir), version).RegisterTools()
	return tools.NewRegistry(list,
		tools.WithMiddleware(mw...),
		tools.WithClassifier(browser.Classify),
	)
}
