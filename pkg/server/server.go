// Package server exposes a tools.Registry to MCP clients over stdio or
// streamable HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const shutdownTimeout = 5 * time.Second

const instructions = `Browser automation through Camoufox, an anti-detect Firefox build.
Call launch_browser first; page tools fail until a browser is running.
Every result is a JSON envelope with "ok" and either "result" or "error".`

// Server binds every registered tool to an MCP server.
type Server struct {
	cfg      config.ServerConfig
	registry *tools.Registry
	mcp      *mcpserver.MCPServer
	logger   *logging.Logger
}

// New builds the MCP server. The tool list is fixed here; clients see the
// same tools for the lifetime of the process.
func New(cfg config.ServerConfig, version string, registry *tools.Registry) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logging.NewLogger("server"),
		mcp: mcpserver.NewMCPServer(cfg.Name, version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
			mcpserver.WithInstructions(instructions),
		),
	}

	defs, err := definitions(registry)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		s.mcp.AddTool(def, s.handler(def.Name))
	}
	return s, nil
}

// definitions converts registered tools to MCP tool descriptors, keeping
// registration order.
func definitions(registry *tools.Registry) ([]mcp.Tool, error) {
	list := registry.Tools()
	out := make([]mcp.Tool, 0, len(list))
	for _, t := range list {
		schema, err := json.Marshal(t.Schema())
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", t.Name(), err)
		}
		out = append(out, mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema))
	}
	return out, nil
}

func (s *Server) handler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := rawArguments(req)
		if err != nil {
			return toResult(nil, tools.Wrap(tools.KindInvalidArgument, err, "decode arguments")), nil
		}
		result, err := s.registry.Call(ctx, name, args)
		return toResult(result, err), nil
	}
}

func rawArguments(req mcp.CallToolRequest) (json.RawMessage, error) {
	switch args := req.GetRawArguments().(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return args, nil
	case []byte:
		return args, nil
	default:
		return json.Marshal(args)
	}
}

// toResult renders one envelope. Errors set isError; images are sent as
// image content followed by the JSON envelope of their metadata.
func toResult(result any, err error) *mcp.CallToolResult {
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(tools.Failure(err).JSON()))},
			IsError: true,
		}
	}
	if img, ok := result.(*tools.Image); ok {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewImageContent(base64.StdEncoding.EncodeToString(img.Data), img.MIMEType),
				mcp.NewTextContent(string(tools.Success(img.Info).JSON())),
			},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(tools.Success(result).JSON()))},
	}
}

// Serve runs the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting",
		"transport", s.cfg.Transport,
		"tools", s.registry.Len(),
	)
	switch s.cfg.Transport {
	case "", "stdio":
		return s.serveStdio(ctx)
	case "http":
		return s.serveHTTP(ctx)
	}
	return fmt.Errorf("unknown transport %q", s.cfg.Transport)
}

func (s *Server) serveStdio(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.logger.Writer(), "", 0))
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- httpServer.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http transport: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http transport: %w", err)
	}
	return nil
}
