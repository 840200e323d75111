package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonschema"
	"github.com/oklog/ulid/v2"
)

// Call describes one in-flight tool invocation as seen by middleware.
type Call struct {
	ID      string
	Name    string
	Tool    Tool
	Args    json.RawMessage
	Started time.Time
}

// Handler executes a call.
type Handler func(ctx context.Context, call *Call) (any, error)

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Registry is the static name to tool mapping. It is built once at startup
// and never mutated afterwards, so lookups need no locking.
type Registry struct {
	tools    map[string]Tool
	order    []string
	schemas  map[string]*jsonschema.Schema
	classify func(error) error
	mw       []Middleware
	handler  Handler
}

// Option configures a Registry.
type Option func(*Registry)

// WithMiddleware appends middleware. The first one added is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Registry) { r.mw = append(r.mw, mw...) }
}

// WithClassifier installs a driver-aware error classifier that runs before
// the generic one.
func WithClassifier(fn func(error) error) Option {
	return func(r *Registry) { r.classify = fn }
}

// NewRegistry registers list in order. Every schema is compiled here so a
// malformed schema fails startup instead of the first call.
func NewRegistry(list []Tool, opts ...Option) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]Tool, len(list)),
		schemas: make(map[string]*jsonschema.Schema, len(list)),
	}
	for _, opt := range opts {
		opt(r)
	}

	compiler := jsonschema.NewCompiler()
	for _, t := range list {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", name)
		}

		raw, err := json.Marshal(t.Schema())
		if err != nil {
			return nil, fmt.Errorf("tool %s: encode schema: %w", name, err)
		}
		schema, err := compiler.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("tool %s: invalid schema: %w", name, err)
		}

		r.tools[name] = t
		r.schemas[name] = schema
		r.order = append(r.order, name)
	}

	h := r.execute
	for i := len(r.mw) - 1; i >= 0; i-- {
		h = r.mw[i](h)
	}
	r.handler = h
	return r, nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.order))
	for i, name := range r.order {
		out[i] = r.tools[name]
	}
	return out
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Call validates args against the tool's schema and runs it through the
// middleware chain. A non-nil error is always a *Error.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, Errorf(KindInvalidArgument, "unknown tool: %s", name)
	}
	call := &Call{
		ID:      ulid.Make().String(),
		Name:    name,
		Tool:    t,
		Args:    args,
		Started: time.Now(),
	}
	result, err := r.handler(ctx, call)
	if err != nil {
		return nil, r.toError(err)
	}
	return result, nil
}

func (r *Registry) execute(ctx context.Context, call *Call) (any, error) {
	if err := r.validate(call.Name, call.Args); err != nil {
		return nil, err
	}
	result, err := call.Tool.Execute(ctx, call.Args)
	if err != nil {
		return nil, r.toError(err)
	}
	return result, nil
}

func (r *Registry) validate(name string, args json.RawMessage) error {
	var instance any = map[string]any{}
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &instance); err != nil {
			return Errorf(KindInvalidArgument, "arguments are not valid JSON: %v", err)
		}
	}
	result := r.schemas[name].Validate(instance)
	if !result.IsValid() {
		return Errorf(KindInvalidArgument, "arguments do not match schema: %s", result.Error())
	}
	return nil
}

func (r *Registry) toError(err error) *Error {
	if r.classify != nil {
		err = r.classify(err)
	}
	return AsError(err)
}
