// Package tools defines the tool abstraction served over MCP: the Tool
// interface, a typed adapter for handler functions, the error taxonomy every
// call is reported through, and the registry that dispatches calls by name.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
)

// Tool represents one named operation callable by an agent.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "click")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with raw JSON arguments. The returned value is
	// JSON encoded into the success envelope unless it is an Image.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// BaseToolSchema returns the object schema wrapper shared by all tools.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type funcTool[P any] struct {
	name        string
	description string
	schema      map[string]interface{}
	fn          func(ctx context.Context, params P) (any, error)
}

// New adapts a typed handler into a Tool. Arguments are decoded into P before
// fn runs; decoding failures are reported as InvalidArgument.
func New[P any](name, description string, schema map[string]interface{}, fn func(ctx context.Context, params P) (any, error)) Tool {
	return &funcTool[P]{name: name, description: description, schema: schema, fn: fn}
}

func (t *funcTool[P]) Name() string                   { return t.name }
func (t *funcTool[P]) Description() string            { return t.description }
func (t *funcTool[P]) Schema() map[string]interface{} { return t.schema }

func (t *funcTool[P]) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	params, err := Decode[P](args)
	if err != nil {
		return nil, err
	}
	return t.fn(ctx, params)
}

// Decode unmarshals tool arguments into P. Empty or null arguments decode to
// the zero value.
func Decode[P any](args json.RawMessage) (P, error) {
	var params P
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return params, nil
	}
	if err := json.Unmarshal(trimmed, &params); err != nil {
		return params, Errorf(KindInvalidArgument, "invalid arguments: %v", err)
	}
	return params, nil
}

// Empty is the parameter type of tools that take no arguments.
type Empty struct{}
