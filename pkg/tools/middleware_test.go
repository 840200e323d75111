package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/metrics"
)

func TestInstrumentRecordsMetrics(t *testing.T) {
	var calls []clickParams
	collector := metrics.New()
	reg, err := NewRegistry([]Tool{newClickTool(&calls)},
		WithMiddleware(Instrument(logging.NewLogger("test"), collector)))
	require.NoError(t, err)

	_, err = reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"#ok"}`))
	require.NoError(t, err)
	_, err = reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"#missing"}`))
	require.Error(t, err)
	_, err = reg.Call(context.Background(), "click", json.RawMessage(`{}`))
	require.Error(t, err)

	snap, ok := collector.Tool("click")
	require.True(t, ok)
	assert.Equal(t, 3, snap.CallCount)
	assert.Equal(t, 2, snap.ErrorCount)
	assert.Equal(t, "InvalidArgument", snap.LastErrorKind)
}

func TestRateLimit(t *testing.T) {
	var calls []clickParams
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	reg, err := NewRegistry([]Tool{newClickTool(&calls)}, WithMiddleware(RateLimit(limiter)))
	require.NoError(t, err)

	_, err = reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"#a"}`))
	require.NoError(t, err, "burst allows the first call")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = reg.Call(ctx, "click", json.RawMessage(`{"selector":"#b"}`))
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Len(t, calls, 1)
}

func TestRedactArgs(t *testing.T) {
	long := strings.Repeat("x", 300)
	args := json.RawMessage(`{"proxy_password":"hunter2","Token":"abc","selector":"` + long + `","count":3}`)

	out := RedactArgs(args)
	assert.Equal(t, "***", out["proxy_password"])
	assert.Equal(t, "***", out["Token"])
	assert.Len(t, out["selector"], maxArgPreview+3)
	assert.Equal(t, float64(3), out["count"])

	assert.Empty(t, RedactArgs(json.RawMessage(`not json`)))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "image/png image", preview(&Image{MIMEType: "image/png"}))
	assert.Equal(t, `{"a":1}`, preview(map[string]int{"a": 1}))
	assert.True(t, strings.HasSuffix(preview(strings.Repeat("y", 600)), "..."))
}
