package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "tool.click")
	assert.False(t, span.SpanContext().IsValid(), "noop provider creates invalid span contexts")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabledRequiresFile(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{Enabled: true})
	assert.Error(t, err)
}

func TestSetupExportsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.json")
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: true, File: path})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "tool.goto")
	span.SetAttributes(StringAttr("tool.name", "goto"))
	RecordError(span, errors.New("navigation timed out"))
	span.End()

	_, ok := StartSpan(context.Background(), "tool.get_url")
	SetOK(ok)
	ok.End()

	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool.goto")
	assert.Contains(t, string(data), "navigation timed out")
	assert.Contains(t, string(data), "tool.get_url")
}
