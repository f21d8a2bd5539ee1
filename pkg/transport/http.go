package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
)

// DefaultHTTPTimeout bounds one fallback round trip.
const DefaultHTTPTimeout = 30 * time.Second

// maxHTTPResponse caps a fallback response body.
const maxHTTPResponse = DefaultReadLimit

// HTTPDialer opens fallback connections that carry each frame as one HTTP
// POST. Dial does not touch the network; the first Write does.
type HTTPDialer struct {
	// Client is the HTTP client to use. Defaults to a client with DefaultHTTPTimeout.
	Client *http.Client

	// Header is added to every POST.
	Header http.Header
}

// Dial validates url and returns a fallback connection posting to it.
func (d *HTTPDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("http fallback url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http fallback url %q: scheme must be http or https", rawURL)
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	// Round trips outlive the Write that started them, so they run under the
	// connection's own context.
	connCtx, cancel := context.WithCancel(context.Background())
	return &httpConn{
		url:     u.String(),
		client:  client,
		header:  d.Header,
		ctx:     connCtx,
		cancel:  cancel,
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}, nil
}

type httpConn struct {
	url    string
	client *http.Client
	header http.Header

	ctx    context.Context
	cancel context.CancelFunc

	inbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  *CloseError
}

func (c *httpConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, c.closeErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write starts the POST of data and returns without waiting for the
// response. A non-empty response body becomes the next frame. When the round
// trip fails and data carries a request id, the next frame is a
// connection-closed error response for that id.
func (c *httpConn) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	body := append([]byte(nil), data...)
	go c.roundTrip(body)
	return nil
}

func (c *httpConn) roundTrip(data []byte) {
	resp, err := c.post(data)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		resp = failureResponse(data, err)
	}
	if len(resp) == 0 {
		return
	}

	select {
	case c.inbound <- resp:
	case <-c.closed:
	}
}

func (c *httpConn) post(data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fallback post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponse))
	if err != nil {
		return nil, fmt.Errorf("http fallback read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http fallback post: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return body, nil
}

// failureResponse answers the request in data with a connection-closed
// error. Notifications get nothing.
func failureResponse(data []byte, cause error) []byte {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(data, &req) != nil {
		return nil
	}
	id := bytes.TrimSpace(req.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	out, err := json.Marshal(jsonrpc.Response{
		JSONRPC: jsonrpc.Version,
		ID:      id,
		Error:   jsonrpc.Wrap(jsonrpc.CodeConnectionClosed, cause),
	})
	if err != nil {
		return nil
	}
	return out
}

func (c *httpConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeErr = &CloseError{Code: code, Reason: reason}
		c.cancel()
		close(c.closed)
	})
	return nil
}
