package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
	"github.com/entrhq/camoufox-mcp/pkg/tracing"
)

const (
	maxArgPreview    = 200
	maxOutputPreview = 500
)

// sensitiveArgs are never written to logs or spans.
var sensitiveArgs = map[string]bool{
	"password":       true,
	"token":          true,
	"secret":         true,
	"proxy_password": true,
}

// Instrument logs every call, records metrics and opens a span per call.
func Instrument(logger *logging.Logger, collector *metrics.Collector) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (any, error) {
			ctx, span := tracing.StartSpan(ctx, "tool."+call.Name,
				trace.WithAttributes(
					tracing.StringAttr("tool.name", call.Name),
					tracing.StringAttr("tool.call_id", call.ID),
				))
			defer span.End()

			log := logger.With("tool", call.Name, "call_id", call.ID)
			if log.Enabled(logging.ParseLevel("debug")) {
				log.Debug("tool_start", "args", RedactArgs(call.Args))
			}

			result, err := next(ctx, call)
			elapsed := time.Since(call.Started)
			ms := float64(elapsed.Microseconds()) / 1000

			if err != nil {
				te := AsError(err)
				span.SetAttributes(tracing.StringAttr("tool.error_kind", string(te.Kind)))
				tracing.RecordError(span, te)
				if collector != nil {
					collector.RecordToolCall(call.Name, elapsed, string(te.Kind), te.Message)
				}
				log.Warn("tool_error", "duration_ms", ms, "kind", string(te.Kind), "error", te.Message)
				return nil, te
			}

			tracing.SetOK(span)
			if collector != nil {
				collector.RecordToolCall(call.Name, elapsed, "", "")
			}
			log.Info("tool_success", "duration_ms", ms, "output", preview(result))
			return result, nil
		}
	}
}

// RateLimit delays calls to the limiter's rate. A call whose context ends
// while waiting fails with Timeout.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (any, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, Wrap(KindTimeout, err, "rate limit wait for %s", call.Name)
			}
			return next(ctx, call)
		}
	}
}

// RedactArgs returns a log-safe copy of raw tool arguments: sensitive values
// are masked and long strings truncated.
func RedactArgs(args json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil || m == nil {
		return map[string]any{}
	}
	for k, v := range m {
		if sensitiveArgs[strings.ToLower(k)] {
			m[k] = "***"
			continue
		}
		if s, ok := v.(string); ok && len(s) > maxArgPreview {
			m[k] = s[:maxArgPreview] + "..."
		}
	}
	return m
}

func preview(result any) string {
	if img, ok := result.(*Image); ok {
		return img.MIMEType + " image"
	}
	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > maxOutputPreview {
		return s[:maxOutputPreview] + "..."
	}
	return s
}
