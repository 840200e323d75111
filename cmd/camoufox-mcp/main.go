// Package main is the camoufox-mcp command: an MCP server that drives a
// Camoufox browser.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
