package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// DefaultReadLimit is the maximum inbound frame size in bytes.
// Chat responses with rendered HTML easily exceed coder/websocket's 32 KiB default.
const DefaultReadLimit = 4 << 20

// WebSocketDialer dials with github.com/coder/websocket.
type WebSocketDialer struct {
	// HTTPHeader is sent with the opening handshake.
	HTTPHeader http.Header

	// Subprotocols are offered during the handshake.
	Subprotocols []string

	// ReadLimit overrides DefaultReadLimit when positive.
	ReadLimit int64
}

// Dial opens a WebSocket connection to url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader:   d.HTTPHeader,
		Subprotocols: d.Subprotocols,
	})
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

	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return nil, closeErrorFromCoder(err)
		}
		if typ == websocket.MessageText {
			return data, nil
		}
		// Binary frames are not part of the protocol.
	}
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}

func closeErrorFromCoder(err error) error {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return &CloseError{Code: int(ce.Code), Reason: ce.Reason}
	}
	return fmt.Errorf("%w: %w", &CloseError{Code: StatusAbnormalClosure}, err)
}
