package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
)

// ListTools fetches the backend's tools and caches them for CallTool.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := s.caller.Call(ctx, MethodToolsList, struct{}{})
	if err != nil {
		return nil, err
	}
	list, err := jsonrpc.UnmarshalResult[ToolsListResult](res)
	if err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}

	s.mu.Lock()
	s.tools = make(map[string]Tool, len(list.Tools))
	s.order = s.order[:0]
	clear(s.schemas)
	for _, t := range list.Tools {
		s.tools[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	s.mu.Unlock()

	s.log.Debug("tools listed", "count", len(list.Tools))
	return list.Tools, nil
}

// Tools returns the cached tools in the order the backend listed them.
func (s *Session) Tools() []Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name])
	}
	return out
}

// CallTool calls the tool name with args. When the tool is cached with an
// input schema, args are validated first and an invalid-params error is
// returned without sending the call.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if name == "" {
		return nil, jsonrpc.NewErrorWithMessage(jsonrpc.CodeInvalidParams, "tool name is required")
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := s.validateArguments(name, args); err != nil {
		return nil, err
	}

	res, err := s.caller.Call(ctx, MethodToolsCall, ToolCallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	result, err := jsonrpc.UnmarshalResult[ToolResult](res)
	if err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	if result.IsError {
		s.log.Debug("tool reported an error", "tool", name, "text", result.Text())
	}
	return &result, nil
}

func (s *Session) validateArguments(name string, args map[string]any) error {
	schema, err := s.schemaFor(name)
	if err != nil {
		return jsonrpc.Wrap(jsonrpc.CodeInternalError, fmt.Errorf("compile schema for %s: %w", name, err))
	}
	if schema == nil {
		return nil
	}

	// Validate the JSON form so numbers and nested values have JSON types.
	data, err := json.Marshal(args)
	if err != nil {
		return jsonrpc.Wrap(jsonrpc.CodeInvalidParams, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return jsonrpc.Wrap(jsonrpc.CodeInvalidParams, err)
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var fields []FieldError
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		fields = collectFieldErrors(verr, nil)
	} else {
		fields = []FieldError{{Message: err.Error()}}
	}

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Field != "" {
			msgs = append(msgs, f.Field+": "+f.Message)
		} else {
			msgs = append(msgs, f.Message)
		}
	}
	return jsonrpc.NewErrorWithMessage(jsonrpc.CodeInvalidParams,
		fmt.Sprintf("invalid arguments for %s: %s", name, strings.Join(msgs, "; "))).WithData(fields)
}

// schemaFor returns the compiled input schema of a cached tool, or nil.
func (s *Session) schemaFor(name string) (*jsonschema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schema, ok := s.schemas[name]; ok {
		return schema, nil
	}
	tool, ok := s.tools[name]
	if !ok || len(tool.InputSchema) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, err
	}
	s.schemas[name] = schema
	return schema, nil
}

func collectFieldErrors(err *jsonschema.ValidationError, out []FieldError) []FieldError {
	if len(err.Causes) == 0 {
		field := strings.ReplaceAll(strings.TrimPrefix(err.InstanceLocation, "/"), "/", ".")
		return append(out, FieldError{Field: field, Message: err.Message})
	}
	for _, cause := range err.Causes {
		out = collectFieldErrors(cause, out)
	}
	return out
}
