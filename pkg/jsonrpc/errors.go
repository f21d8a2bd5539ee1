package jsonrpc

import (
	"encoding/json"
	"strconv"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Client-side error codes.
const (
	// CodeConnectionFailed means the transport could not be opened.
	CodeConnectionFailed = -32000

	// CodeTimeout means no response arrived within the request timeout.
	CodeTimeout = -32001

	// CodeConnectionClosed means the connection closed while the call was in flight.
	CodeConnectionClosed = -32002

	// CodeNotConnected means the client was disconnected.
	CodeNotConnected = -32003
)

var errorMessages = map[int]string{
	CodeParseError:       "Parse error",
	CodeInvalidRequest:   "Invalid request",
	CodeMethodNotFound:   "Method not found",
	CodeInvalidParams:    "Invalid params",
	CodeInternalError:    "Internal error",
	CodeConnectionFailed: "WebSocket connection failed",
	CodeTimeout:          "Request timed out",
	CodeConnectionClosed: "Connection closed",
	CodeNotConnected:     "WebSocket not connected",
}

// Sentinel errors for client-side failures. Compare with errors.Is.
var (
	ErrConnectionFailed = NewError(CodeConnectionFailed)
	ErrTimeout          = NewError(CodeTimeout)
	ErrConnectionClosed = NewError(CodeConnectionClosed)
	ErrNotConnected     = NewError(CodeNotConnected)
)

// Error is a JSON-RPC error object. It is what every failed call resolves
// with, whether the failure came from the server or from the client side.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	cause error
}

// NewError creates an error with the standard message for code.
func NewError(code int) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "Unknown error"
	}
	return &Error{Code: code, Message: msg}
}

// NewErrorWithMessage creates an error with a custom message.
func NewErrorWithMessage(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error for code whose message is extended with cause.
// The cause is reachable through errors.Unwrap.
func Wrap(code int, cause error) *Error {
	e := NewError(code)
	if cause != nil {
		e.Message += ": " + cause.Error()
		e.cause = cause
	}
	return e
}

// WithData returns a copy of e carrying data encoded as JSON.
func (e *Error) WithData(data any) *Error {
	out := *e
	if raw, err := json.Marshal(data); err == nil {
		out.Data = raw
	}
	return &out
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	if e.Message == "" {
		return "JSON-RPC error " + strconv.Itoa(e.Code)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}
