package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ohler55/ojg/jp"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/logging"
)

// DefaultResponsePath locates the reply text in a chat/message result.
const DefaultResponsePath = "$.response"

// CustomerLookupPrefix starts the chat text sent by LookupCustomer.
const CustomerLookupPrefix = "customer lookup for "

// fallbackErrorMessage is reported when a failure carries no message.
const fallbackErrorMessage = "Failed to communicate with MCP server"

// Caller sends one JSON-RPC request and waits for its result.
// *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// AppendFunc receives chat output. final is true on the last invocation.
type AppendFunc func(text string, final bool)

// Option configures a Session.
type Option func(*Session)

// WithResponsePath sets the JSONPath of the reply text.
func WithResponsePath(path string) Option {
	return func(s *Session) { s.responsePath = path }
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// Session is a chat conversation with one backend.
type Session struct {
	caller       Caller
	log          *slog.Logger
	responsePath string
	expr         jp.Expr

	mu      sync.Mutex
	tools   map[string]Tool
	order   []string
	schemas map[string]*jsonschema.Schema
}

// NewSession creates a Session over caller.
func NewSession(caller Caller, opts ...Option) (*Session, error) {
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	s := &Session{
		caller:       caller,
		responsePath: DefaultResponsePath,
		schemas:      make(map[string]*jsonschema.Schema),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(logging.OrNop(s.log), "mcp")

	expr, err := jp.ParseString(s.responsePath)
	if err != nil {
		return nil, fmt.Errorf("invalid response path %q: %w", s.responsePath, err)
	}
	s.expr = expr
	return s, nil
}

// SendChat sends text and returns the reply.
func (s *Session) SendChat(ctx context.Context, text string) (string, error) {
	res, err := s.caller.Call(ctx, MethodChat, ChatParams{Text: text})
	if err != nil {
		s.log.Debug("chat failed", "error", err)
		return "", err
	}
	return s.ResponseText(res), nil
}

// SendChatFunc sends text in the background and reports the outcome to fn
// exactly once with final set. Failures are reported as
// "Error: <message>", or "Connection error: <message>" when the backend
// could not be reached.
func (s *Session) SendChatFunc(text string, fn AppendFunc) {
	s.sendChatFunc(context.Background(), text, fn)
}

// LookupCustomer asks the backend about customerID and reports to fn like
// SendChatFunc.
func (s *Session) LookupCustomer(ctx context.Context, customerID string, fn AppendFunc) {
	s.sendChatFunc(ctx, CustomerLookupPrefix+customerID, fn)
}

func (s *Session) sendChatFunc(ctx context.Context, text string, fn AppendFunc) {
	go func() {
		reply, err := s.SendChat(ctx, text)
		if err != nil {
			fn(FailureText(err), true)
			return
		}
		fn(reply, true)
	}()
}

// FailureText renders err the way chat output reports it.
func FailureText(err error) string {
	msg := err.Error()
	var rpcErr *jsonrpc.Error
	if msg == "" || (errors.As(err, &rpcErr) && rpcErr.Message == "") {
		msg = fallbackErrorMessage
	}
	if IsConnectionError(err) {
		return "Connection error: " + msg
	}
	return "Error: " + msg
}

// IsConnectionError reports whether err means the backend was not reached.
func IsConnectionError(err error) bool {
	return errors.Is(err, jsonrpc.ErrConnectionFailed) ||
		errors.Is(err, jsonrpc.ErrConnectionClosed) ||
		errors.Is(err, jsonrpc.ErrNotConnected)
}

// ResponseText extracts the reply text from a chat/message result: the
// non-empty string at the response path, else the result itself when it is a
// JSON string, else the result indented with two spaces.
func (s *Session) ResponseText(result json.RawMessage) string {
	var data any
	if err := json.Unmarshal(result, &data); err != nil {
		return string(result)
	}

	if obj, ok := data.(map[string]any); ok {
		for _, v := range s.expr.Get(obj) {
			if text, ok := v.(string); ok && text != "" {
				return text
			}
		}
	}
	if text, ok := data.(string); ok {
		return text
	}

	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return string(result)
	}
	return string(pretty)
}
