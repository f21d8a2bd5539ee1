package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// WebSocket close status codes used by the client.
const (
	StatusNormalClosure   = 1000
	StatusGoingAway       = 1001
	StatusAbnormalClosure = 1006
	StatusInternalError   = 1011
)

// Transport names.
const (
	NameCoder   = "coder"
	NameGorilla = "gorilla"
	NameHTTP    = "http"
)

// Conn is one open connection.
//
// Read must only be called from one goroutine at a time. Write may be called
// concurrently with Read and with other Writes.
type Conn interface {
	// Read blocks until the next text frame arrives.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one text frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection with the given status code.
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f(ctx, url).
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// CloseError reports that a connection closed with a status code.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed: status %d", e.Code)
	}
	return fmt.Sprintf("connection closed: status %d: %s", e.Code, e.Reason)
}

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("transport: connection closed")

// CloseCode returns the close status carried by err. Errors that are not a
// *CloseError count as an abnormal closure.
func CloseCode(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return StatusAbnormalClosure
}

// IsClean reports whether code is the normal-closure status.
func IsClean(code int) bool {
	return code == StatusNormalClosure
}

// ForName returns the WebSocket dialer registered under name.
// An empty name selects the coder/websocket implementation.
func ForName(name string) (Dialer, error) {
	switch strings.ToLower(name) {
	case "", NameCoder, "websocket":
		return &WebSocketDialer{}, nil
	case NameGorilla:
		return &GorillaDialer{}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (valid: %s, %s)", name, NameCoder, NameGorilla)
	}
}
