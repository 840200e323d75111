package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type startTracingParams struct {
	Name        string `json:"name"`
	Screenshots *bool  `json:"screenshots"`
	Snapshots   *bool  `json:"snapshots"`
	Sources     bool   `json:"sources"`
}

type stopTracingParams struct {
	Path string `json:"path"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (s *toolset) tracingTools() []tools.Tool {
	return []tools.Tool{
		tools.New("start_tracing",
			"Start recording a Playwright trace of actions, network and DOM snapshots.",
			tools.BaseToolSchema(map[string]interface{}{
				"name":        tools.String("Trace name"),
				"screenshots": tools.Boolean("Capture screenshots (default true)"),
				"snapshots":   tools.Boolean("Capture DOM snapshots (default true)"),
				"sources":     tools.Boolean("Include source files"),
			}, nil),
			s.startTracing),

		tools.New("stop_tracing",
			"Stop the active trace and save it as a zip viewable with `playwright show-trace`.",
			tools.BaseToolSchema(map[string]interface{}{
				"path": tools.String("Output .zip path (defaults to a new file in the screenshot directory)"),
			}, nil),
			s.stopTracing),

		tools.New("tracing_status",
			"Report whether a trace is being recorded.",
			tools.BaseToolSchema(nil, nil),
			s.tracingStatus),
	}
}

func (s *toolset) startTracing(ctx context.Context, p startTracingParams) (any, error) {
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	if s.m.Trace().Active {
		return nil, tools.Errorf(tools.KindPreconditionViolation, "tracing already active; call stop_tracing first")
	}
	state := TraceState{
		Active:      true,
		Name:        p.Name,
		Started:     time.Now(),
		Screenshots: boolOr(p.Screenshots, true),
		Snapshots:   boolOr(p.Snapshots, true),
		Sources:     p.Sources,
	}
	err = run(ctx, nil, func() error {
		return bc.Tracing().Start(playwright.TracingStartOptions{
			Name:        optString(p.Name),
			Screenshots: playwright.Bool(state.Screenshots),
			Snapshots:   playwright.Bool(state.Snapshots),
			Sources:     playwright.Bool(state.Sources),
		})
	})
	if err != nil {
		return nil, err
	}
	s.m.setTrace(state)
	s.logger.Info("tracing started", "name", p.Name)
	return state, nil
}

func (s *toolset) stopTracing(ctx context.Context, p stopTracingParams) (any, error) {
	if p.Path != "" {
		if err := ValidatePath(p.Path, false, ".zip"); err != nil {
			return nil, err
		}
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	state := s.m.Trace()
	if !state.Active {
		return nil, tools.Errorf(tools.KindPreconditionViolation, "no active trace; call start_tracing first")
	}
	path, err := s.artifacts.Path(p.Path, ".zip")
	if err != nil {
		return nil, err
	}
	err = run(ctx, nil, func() error { return bc.Tracing().Stop(path) })
	s.m.setTrace(TraceState{})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tracing stopped", "path", path)
	return map[string]any{
		"path":             path,
		"duration_seconds": round2(time.Since(state.Started).Seconds()),
		"view":             "npx playwright show-trace " + path,
	}, nil
}

func (s *toolset) tracingStatus(ctx context.Context, _ tools.Empty) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	return s.m.Trace(), nil
}
