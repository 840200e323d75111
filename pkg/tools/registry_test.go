package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clickParams struct {
	Selector string `json:"selector"`
	Count    int    `json:"click_count"`
}

func newClickTool(calls *[]clickParams) Tool {
	return New("click", "Click an element",
		BaseToolSchema(map[string]interface{}{
			"selector":    String("CSS selector"),
			"click_count": IntegerRange("Number of clicks", 1, 3),
		}, []string{"selector"}),
		func(ctx context.Context, p clickParams) (any, error) {
			*calls = append(*calls, p)
			if p.Selector == "#missing" {
				return nil, Errorf(KindElementNotFound, "no element matches %s", p.Selector)
			}
			return map[string]string{"clicked": p.Selector}, nil
		})
}

func TestBaseToolSchema(t *testing.T) {
	schema := BaseToolSchema(map[string]interface{}{"url": String("URL")}, nil)
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "required")

	schema = BaseToolSchema(map[string]interface{}{"url": String("URL")}, []string{"url"})
	assert.Equal(t, []string{"url"}, schema["required"])
}

func TestNewRegistryRejectsBadTools(t *testing.T) {
	var calls []clickParams

	_, err := NewRegistry([]Tool{newClickTool(&calls), newClickTool(&calls)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	bad := New("bad", "unencodable schema",
		map[string]interface{}{"type": "object", "x": make(chan int)},
		func(ctx context.Context, p Empty) (any, error) { return nil, nil })
	_, err = NewRegistry([]Tool{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	unnamed := New("", "", BaseToolSchema(nil, nil),
		func(ctx context.Context, p Empty) (any, error) { return nil, nil })
	_, err = NewRegistry([]Tool{unnamed})
	assert.Error(t, err)
}

func TestRegistryCall(t *testing.T) {
	var calls []clickParams
	reg, err := NewRegistry([]Tool{newClickTool(&calls)})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	t.Run("success decodes typed params", func(t *testing.T) {
		out, err := reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"#go","click_count":2}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"clicked": "#go"}, out)
		assert.Equal(t, clickParams{Selector: "#go", Count: 2}, calls[len(calls)-1])
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := reg.Call(context.Background(), "hover", nil)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("missing required argument never reaches the handler", func(t *testing.T) {
		before := len(calls)
		_, err := reg.Call(context.Background(), "click", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.Equal(t, KindInvalidArgument, KindOf(err))
		assert.Len(t, calls, before)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := reg.Call(context.Background(), "click", json.RawMessage(`{"selector":5}`))
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"a","click_count":9}`))
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := reg.Call(context.Background(), "click", json.RawMessage(`{"selector":`))
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})

	t.Run("typed error passes through", func(t *testing.T) {
		_, err := reg.Call(context.Background(), "click", json.RawMessage(`{"selector":"#missing"}`))
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, KindElementNotFound, te.Kind)
		assert.Equal(t, "no element matches #missing", te.Message)
	})
}

func TestRegistryClassifierAndMiddlewareOrder(t *testing.T) {
	raw := New("raw", "returns a driver error", BaseToolSchema(nil, nil),
		func(ctx context.Context, p Empty) (any, error) { return nil, errors.New("Target closed") })

	var order []string
	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (any, error) {
				order = append(order, name+">")
				out, err := next(ctx, call)
				order = append(order, "<"+name)
				return out, err
			}
		}
	}

	reg, err := NewRegistry([]Tool{raw},
		WithMiddleware(trace("outer"), trace("inner")),
		WithClassifier(func(err error) error {
			if err.Error() == "Target closed" {
				return Wrap(KindSessionClosed, err, "page closed")
			}
			return err
		}))
	require.NoError(t, err)

	_, err = reg.Call(context.Background(), "raw", nil)
	assert.Equal(t, KindSessionClosed, KindOf(err))
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, order)
}

func TestRegistryToolsKeepsOrder(t *testing.T) {
	mk := func(name string) Tool {
		return New(name, name, BaseToolSchema(nil, nil),
			func(ctx context.Context, p Empty) (any, error) { return name, nil })
	}
	reg, err := NewRegistry([]Tool{mk("launch_browser"), mk("goto"), mk("click")})
	require.NoError(t, err)

	var names []string
	for _, tool := range reg.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"launch_browser", "goto", "click"}, names)

	_, ok := reg.Get("goto")
	assert.True(t, ok)
}
