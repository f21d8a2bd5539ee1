package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
)

// CustomerLookupPrefix starts the chat text of a customer lookup.
const CustomerLookupPrefix = "customer lookup for "

// Tool is a tool advertised by the default tools/list handler.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// DefaultTools is the tool catalog served by RegisterDefaults.
var DefaultTools = []Tool{
	{
		Name:        "echo",
		Description: "Echo the given text back.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required":             []string{"text"},
			"additionalProperties": false,
		},
	},
	{
		Name:        "lookup_customer",
		Description: "Look up a customer record by id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customerId": map[string]any{"type": "string", "minLength": 1},
			},
			"required": []string{"customerId"},
		},
	},
}

// RegisterDefaults installs an echo chat backend: chat/message, ping,
// tools/list and tools/call.
func (s *Server) RegisterDefaults() {
	s.Handle("ping", func(context.Context, json.RawMessage) (any, error) {
		return struct{}{}, nil
	})
	s.Handle("chat/message", chatMessage)
	s.Handle("tools/list", func(context.Context, json.RawMessage) (any, error) {
		return map[string]any{"tools": DefaultTools}, nil
	})
	s.Handle("tools/call", toolsCall)
}

func chatMessage(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Text == nil {
		return nil, jsonrpc.NewErrorWithMessage(jsonrpc.CodeInvalidParams, "Invalid params: text is required")
	}

	text := *p.Text
	if id, ok := strings.CutPrefix(text, CustomerLookupPrefix); ok {
		return map[string]string{"response": customerRecord(strings.TrimSpace(id))}, nil
	}
	return map[string]string{"response": "Echo: " + text}, nil
}

func customerRecord(id string) string {
	return fmt.Sprintf("Customer %s: Jane Doe, status active, plan pro", id)
}

func toolsCall(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams)
	}

	var text string
	switch p.Name {
	case "echo":
		s, _ := p.Arguments["text"].(string)
		text = s
	case "lookup_customer":
		id, _ := p.Arguments["customerId"].(string)
		text = customerRecord(id)
	default:
		return map[string]any{
			"content": []map[string]string{{"type": "text", "text": "unknown tool: " + p.Name}},
			"isError": true,
		}, nil
	}
	return map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}, nil
}
