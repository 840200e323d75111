package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tools/browser"
)

type toolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			collector := metrics.New()
			mgr := browser.NewManager(cfg, browser.NewPlaywrightLauncher(false), collector)
			registry, err := buildRegistry(cfg, mgr, collector)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				list := make([]toolInfo, 0, registry.Len())
				for _, t := range registry.Tools() {
					list = append(list, toolInfo{Name: t.Name(), Description: t.Description(), InputSchema: t.Schema()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "TOOL\tDESCRIPTION"); err != nil {
				return err
			}
			for _, t := range registry.Tools() {
				if _, err := fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Description()); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print names, descriptions and input schemas as JSON")
	return cmd
}
