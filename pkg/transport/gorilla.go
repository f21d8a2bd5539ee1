package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeWriteWait bounds how long Close waits to send the close frame.
const closeWriteWait = time.Second

// GorillaDialer dials with github.com/gorilla/websocket.
type GorillaDialer struct {
	// HTTPHeader is sent with the opening handshake.
	HTTPHeader http.Header

	// Subprotocols are offered during the handshake.
	Subprotocols []string

	// HandshakeTimeout bounds the opening handshake when ctx has no deadline.
	HandshakeTimeout time.Duration

	// ReadLimit overrides DefaultReadLimit when positive.
	ReadLimit int64
}

// Dial opens a WebSocket connection to url.
func (d *GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		Subprotocols:     d.Subprotocols,
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.HTTPHeader)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (HTTP %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	conn.SetReadLimit(limit)

	return &gorillaConn{conn: conn}, nil
}

// gorillaConn serializes writes; gorilla connections allow one concurrent
// writer only.
type gorillaConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Read ignores ctx cancellation once blocked; the connection manager
// unblocks reads by closing the connection.
func (c *gorillaConn) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, closeErrorFromGorilla(err)
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *gorillaConn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *gorillaConn) Close(code int, reason string) error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(closeWriteWait))
	c.writeMu.Unlock()

	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func closeErrorFromGorilla(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &CloseError{Code: ce.Code, Reason: ce.Text}
	}
	return fmt.Errorf("%w: %w", &CloseError{Code: StatusAbnormalClosure}, err)
}
