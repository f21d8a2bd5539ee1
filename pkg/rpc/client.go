package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/mcpchat/pkg/conn"
	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/logging"
	"github.com/getmockd/mcpchat/pkg/metrics"
)

// Callback receives the outcome of CallAsync.
type Callback func(result json.RawMessage, err error)

// pending is one outstanding call.
type pending struct {
	id       string
	method   string
	req      *jsonrpc.Request
	created  time.Time
	callback Callback
	timer    conn.Timer

	done   chan struct{}
	result json.RawMessage
	err    error
}

// Client is a JSON-RPC client over one persistent connection.
type Client struct {
	cfg *Config
	mgr *conn.Manager
	log *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pending
	queue    []*pending
	flushing bool
}

// NewClient creates a Client and its connection manager. The connection is
// opened lazily by the first call or explicitly with Connect.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		log:     logging.Component(logging.OrNop(cfg.Logger), "rpc"),
		pending: make(map[string]*pending),
	}

	mgr, err := conn.New(&cfg.Config, c)
	if err != nil {
		return nil, err
	}
	c.mgr = mgr
	return c, nil
}

// Call sends a request and waits for its response. Cancelling ctx abandons
// the call and returns ctx.Err(); a late response is then ignored.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.await(ctx, c.start(method, params, nil))
}

// Go sends a request and returns immediately. The returned Call resolves
// when the response arrives.
func (c *Client) Go(method string, params any) *Call {
	return &Call{client: c, p: c.start(method, params, nil)}
}

// CallAsync sends a request and invokes cb exactly once with the outcome.
// cb runs on its own goroutine.
func (c *Client) CallAsync(method string, params any, cb Callback) {
	c.start(method, params, cb)
}

// CallFor calls method and decodes the result into T.
func CallFor[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	res, err := c.Call(ctx, method, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return jsonrpc.UnmarshalResult[T](res)
}

// start registers the pending entry and either sends it or queues it.
func (c *Client) start(method string, params any, cb Callback) *pending {
	p := &pending{
		id:       c.cfg.IDGenerator(),
		method:   method,
		created:  time.Now(),
		callback: cb,
		done:     make(chan struct{}),
	}
	p.req = jsonrpc.NewRequest(p.id, method, params)

	c.mu.Lock()
	if _, dup := c.pending[p.id]; dup {
		c.mu.Unlock()
		p.finish(nil, jsonrpc.NewErrorWithMessage(jsonrpc.CodeInternalError, "duplicate request id "+p.id))
		return p
	}
	c.pending[p.id] = p
	if c.cfg.RequestTimeout > 0 {
		p.timer = c.cfg.AfterFunc(c.cfg.RequestTimeout, func() {
			if c.resolve(p.id, nil, jsonrpc.ErrTimeout) {
				c.log.Warn("request timed out", "id", p.id, "method", p.method)
			}
		})
	}
	sendNow := !c.flushing && len(c.queue) == 0 && c.mgr.State() == conn.StateOpen
	startFlush := false
	if !sendNow {
		c.queue = append(c.queue, p)
		startFlush = !c.flushing
		c.flushing = true
	}
	n := len(c.pending)
	c.mu.Unlock()

	c.cfg.Metrics.SetPending(n)
	c.log.Debug("request", "id", p.id, "method", method, "queued", !sendNow)

	if sendNow {
		c.send(p)
	}
	if startFlush {
		go c.flush()
	}
	return p
}

// send writes one request. A send that loses the race with a close goes back
// to the queue.
func (c *Client) send(p *pending) {
	err := c.mgr.Send(context.Background(), p.req)
	switch {
	case err == nil:
	case errors.Is(err, jsonrpc.ErrNotConnected):
		c.requeue(p)
	default:
		c.resolve(p.id, nil, jsonrpc.Wrap(jsonrpc.CodeConnectionClosed, err))
	}
}

func (c *Client) requeue(p *pending) {
	c.mu.Lock()
	if _, ok := c.pending[p.id]; !ok {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, p)
	startFlush := !c.flushing
	c.flushing = true
	c.mu.Unlock()

	if startFlush {
		go c.flush()
	}
}

// flush connects and drains the queue in order. Only one flush runs at a
// time; calls issued meanwhile queue behind it.
func (c *Client) flush() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		err := c.mgr.Connect(context.Background())

		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()
		if len(batch) == 0 {
			continue
		}

		if err != nil {
			cause := connectionError(err)
			c.log.Warn("connect failed, rejecting queued requests", "count", len(batch), "error", err)
			for _, p := range batch {
				c.resolve(p.id, nil, cause)
			}
			continue
		}

		for i, p := range batch {
			if !c.isPending(p.id) {
				continue
			}
			err := c.mgr.Send(context.Background(), p.req)
			if errors.Is(err, jsonrpc.ErrNotConnected) {
				// Lost the connection mid-flush: put the rest back in front.
				c.mu.Lock()
				c.queue = append(append([]*pending(nil), batch[i:]...), c.queue...)
				c.mu.Unlock()
				break
			}
			if err != nil {
				c.resolve(p.id, nil, jsonrpc.Wrap(jsonrpc.CodeConnectionClosed, err))
			}
		}
	}
}

func connectionError(err error) error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc.Wrap(jsonrpc.CodeConnectionFailed, err)
}

func (c *Client) isPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// resolve completes the pending entry id. It reports false when id is not
// pending, so each entry resolves at most once.
func (c *Client) resolve(id string, result json.RawMessage, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	n := len(c.pending)
	c.mu.Unlock()
	if !ok {
		return false
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	c.cfg.Metrics.SetPending(n)
	c.cfg.Metrics.CallFinished(p.method, outcome(err))
	c.log.Debug("response", "id", id, "method", p.method, "elapsed", time.Since(p.created), "error", err)
	p.finish(result, err)
	return true
}

func (p *pending) finish(result json.RawMessage, err error) {
	p.result = result
	p.err = err
	close(p.done)
	if p.callback != nil {
		go p.callback(result, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, jsonrpc.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	case errors.Is(err, jsonrpc.ErrNotConnected),
		errors.Is(err, jsonrpc.ErrConnectionFailed),
		errors.Is(err, jsonrpc.ErrConnectionClosed):
		return metrics.OutcomeClosed
	default:
		return metrics.OutcomeError
	}
}

func (c *Client) await(ctx context.Context, p *pending) (json.RawMessage, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		if c.resolve(p.id, nil, ctx.Err()) {
			c.log.Debug("request abandoned", "id", p.id, "method", p.method, "error", ctx.Err())
		}
		<-p.done
	}
	return p.result, p.err
}

// rejectAll fails every pending and queued call with err.
func (c *Client) rejectAll(err error) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.queue = nil
	c.mu.Unlock()

	if len(ids) > 0 {
		c.log.Info("rejecting pending requests", "count", len(ids), "error", err)
	}
	for _, id := range ids {
		c.resolve(id, nil, err)
	}
}

// rejectSent fails every pending call that is not waiting in the queue.
// Queued calls are left to flush, which reports the connect outcome.
func (c *Client) rejectSent(err error) {
	c.mu.Lock()
	queued := make(map[string]struct{}, len(c.queue))
	for _, p := range c.queue {
		queued[p.id] = struct{}{}
	}
	var ids []string
	for id := range c.pending {
		if _, ok := queued[id]; !ok {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	if len(ids) > 0 {
		c.log.Info("connection lost without reconnect, rejecting sent requests", "count", len(ids))
	}
	for _, id := range ids {
		c.resolve(id, nil, err)
	}
}

// HandleFrame implements conn.Handler.
func (c *Client) HandleFrame(f *jsonrpc.Frame) {
	if f.Method != "" {
		if c.cfg.OnNotification != nil {
			c.cfg.OnNotification(f)
		} else {
			c.log.Debug("ignoring server message", "method", f.Method)
		}
		return
	}
	if !f.HasID() {
		c.log.Debug("ignoring frame without id")
		return
	}

	id := f.IDString()
	var err error
	if f.Failed() {
		err = f.Error
	}
	if !c.resolve(id, f.Result, err) {
		c.log.Debug("ignoring orphan response", "id", id)
	}
}

// HandleClose implements conn.Handler. An abnormal close keeps sent calls
// pending only while a reconnect is armed.
func (c *Client) HandleClose(clean, reconnecting bool) {
	switch {
	case clean:
		c.rejectAll(jsonrpc.ErrNotConnected)
	case !reconnecting:
		c.rejectSent(jsonrpc.ErrNotConnected)
	}
}

// Connect opens the connection without sending a request.
func (c *Client) Connect(ctx context.Context) error {
	return c.mgr.Connect(ctx)
}

// Disconnect closes the connection and rejects every pending call with
// jsonrpc.ErrNotConnected. The client stays usable: the next call reconnects.
func (c *Client) Disconnect() {
	c.mgr.Disconnect()
}

// Close disconnects the client.
func (c *Client) Close() error {
	c.mgr.Disconnect()
	return nil
}

// State returns the connection state.
func (c *Client) State() conn.State {
	return c.mgr.State()
}

// Watch streams connection state changes. See conn.Manager.Watch.
func (c *Client) Watch() (<-chan conn.State, func()) {
	return c.mgr.Watch()
}

// Transport returns the transport of the current connection.
func (c *Client) Transport() string {
	return c.mgr.Transport()
}

// Stats returns connection statistics.
func (c *Client) Stats() conn.Stats {
	return c.mgr.Stats()
}

// Pending returns the number of outstanding calls, queued ones included.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call is an outstanding request created by Client.Go.
type Call struct {
	client *Client
	p      *pending
}

// ID returns the request id.
func (c *Call) ID() string { return c.p.id }

// Method returns the request method.
func (c *Call) Method() string { return c.p.method }

// Done is closed when the call resolves.
func (c *Call) Done() <-chan struct{} { return c.p.done }

// Await waits for the response. Cancelling ctx abandons the call.
func (c *Call) Await(ctx context.Context) (json.RawMessage, error) {
	return c.client.await(ctx, c.p)
}
