package browser

import (
	"context"
	"sort"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type toolMetricsParams struct {
	ToolName string `json:"tool_name"`
}

func (s *toolset) debugTools() []tools.Tool {
	return []tools.Tool{
		tools.New("get_browser_info",
			"Describe the session: launch settings, uptime, tabs, capture flags and browser version.",
			tools.BaseToolSchema(nil, nil),
			s.getBrowserInfo),

		tools.New("browser_health_check",
			"Check that the browser responds, reporting latency and status.",
			tools.BaseToolSchema(nil, nil),
			s.browserHealthCheck),

		tools.New("browser_recover",
			"Force-close the browser, relaunch it with the previous settings and return to the last URL.",
			tools.BaseToolSchema(nil, nil),
			s.browserRecover),

		tools.New("get_session_metrics",
			"Return server, browser, network and per-tool metrics.",
			tools.BaseToolSchema(nil, nil),
			s.getSessionMetrics),

		tools.New("get_tool_metrics",
			"Return call count, error rate and latency percentiles for one tool.",
			tools.BaseToolSchema(map[string]interface{}{
				"tool_name": tools.String("Tool name"),
			}, []string{"tool_name"}),
			s.getToolMetrics),

		tools.New("reset_metrics",
			"Clear all collected metrics.",
			tools.BaseToolSchema(nil, nil),
			s.resetMetrics),
	}
}

func (s *toolset) getBrowserInfo(ctx context.Context, _ tools.Empty) (any, error) {
	info := s.m.Info(ctx)
	return map[string]any{"server_version": s.version, "browser": info}, nil
}

func (s *toolset) browserHealthCheck(ctx context.Context, _ tools.Empty) (any, error) {
	return s.m.HealthCheck(ctx), nil
}

func (s *toolset) browserRecover(ctx context.Context, _ tools.Empty) (any, error) {
	res, err := s.m.Recover(ctx)
	if err != nil {
		s.logger.Error("browser recovery failed", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *toolset) getSessionMetrics(ctx context.Context, _ tools.Empty) (any, error) {
	return s.m.Metrics().Snapshot(), nil
}

func (s *toolset) getToolMetrics(ctx context.Context, p toolMetricsParams) (any, error) {
	if p.ToolName == "" {
		return nil, invalid("tool_name cannot be empty")
	}
	collector := s.m.Metrics()
	st, ok := collector.Tool(p.ToolName)
	if !ok {
		names := make([]string, 0)
		for name := range collector.Snapshot().Tools {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &tools.Error{
			Kind:    tools.KindInvalidArgument,
			Message: "no metrics recorded for tool " + p.ToolName,
			Details: map[string]any{"available_tools": names},
		}
	}
	return map[string]any{"tool_name": p.ToolName, "metrics": st}, nil
}

func (s *toolset) resetMetrics(ctx context.Context, _ tools.Empty) (any, error) {
	s.m.Metrics().Reset()
	s.logger.Info("metrics reset")
	return map[string]any{"reset": true}, nil
}
