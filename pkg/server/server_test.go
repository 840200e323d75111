package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type echoParams struct {
	Text string `json:"text"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	list := []tools.Tool{
		tools.New("echo", "Echo text back.",
			tools.BaseToolSchema(map[string]interface{}{
				"text": tools.String("Text to echo"),
			}, []string{"text"}),
			func(ctx context.Context, p echoParams) (any, error) {
				return map[string]any{"text": p.Text}, nil
			}),
		tools.New("snap", "Return an image.",
			tools.BaseToolSchema(nil, nil),
			func(ctx context.Context, _ tools.Empty) (any, error) {
				return &tools.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png", Info: map[string]any{"width": 1}}, nil
			}),
		tools.New("fail", "Always fails.",
			tools.BaseToolSchema(nil, nil),
			func(ctx context.Context, _ tools.Empty) (any, error) {
				return nil, tools.Errorf(tools.KindPreconditionViolation, "browser not launched")
			}),
	}
	reg, err := tools.NewRegistry(list)
	require.NoError(t, err)

	cfg := config.DefaultConfig().Server
	s, err := New(cfg, "test", reg)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, name string, args any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := s.handler(name)(context.Background(), req)
	require.NoError(t, err)
	return res
}

func envelope(t *testing.T, c mcp.Content) map[string]any {
	t.Helper()
	text, ok := c.(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", c)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestDefinitionsKeepOrderAndSchema(t *testing.T) {
	s := newTestServer(t)
	defs, err := definitions(s.registry)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "Echo text back.", defs[0].Description)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(defs[0].RawInputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"text"}, schema["required"])
}

func TestCallSuccessEnvelope(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s, "echo", map[string]any{"text": "hi"})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	env := envelope(t, res.Content[0])
	assert.Equal(t, true, env["ok"])
	assert.Equal(t, map[string]any{"text": "hi"}, env["result"])
}

func TestCallErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s, "fail", nil)
	assert.True(t, res.IsError)
	env := envelope(t, res.Content[0])
	assert.Equal(t, false, env["ok"])
	errBody := env["error"].(map[string]any)
	assert.Equal(t, string(tools.KindPreconditionViolation), errBody["kind"])
	assert.Equal(t, "browser not launched", errBody["message"])

	// schema violations are reported the same way
	res = call(t, s, "echo", map[string]any{"text": 5})
	assert.True(t, res.IsError)
	errBody = envelope(t, res.Content[0])["error"].(map[string]any)
	assert.Equal(t, string(tools.KindInvalidArgument), errBody["kind"])
}

func TestCallImageResult(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s, "snap", map[string]any{})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	img, ok := res.Content[0].(mcp.ImageContent)
	require.True(t, ok, "expected image content, got %T", res.Content[0])
	assert.Equal(t, "image/png", img.MIMEType)
	data, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	env := envelope(t, res.Content[1])
	assert.Equal(t, map[string]any{"width": float64(1)}, env["result"])
}

func TestRawArguments(t *testing.T) {
	req := mcp.CallToolRequest{}
	raw, err := rawArguments(req)
	require.NoError(t, err)
	assert.Nil(t, raw)

	req.Params.Arguments = json.RawMessage(`{"a":1}`)
	raw, err = rawArguments(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	req.Params.Arguments = map[string]any{"b": "x"}
	raw, err = rawArguments(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":"x"}`, string(raw))
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Transport = "carrier-pigeon"
	assert.Error(t, s.Serve(context.Background()))
}
