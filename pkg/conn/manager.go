package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/logging"
	"github.com/getmockd/mcpchat/pkg/transport"
)

// Transport names reported by Manager.Transport.
const (
	TransportWebSocket = "websocket"
	TransportHTTP      = "http"
)

const disconnectReason = "Manual disconnect"

// Handler receives the events of the managed connection.
//
// HandleFrame is called from the read loop, one frame at a time. HandleClose
// is called on every transition into a closed state, with clean set for
// status 1000 and for Disconnect, and reconnecting set when a reconnect
// timer is armed.
type Handler interface {
	HandleFrame(f *jsonrpc.Frame)
	HandleClose(clean, reconnecting bool)
}

// HandlerFuncs adapts a pair of functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Frame func(f *jsonrpc.Frame)
	Close func(clean, reconnecting bool)
}

func (h HandlerFuncs) HandleFrame(f *jsonrpc.Frame) {
	if h.Frame != nil {
		h.Frame(f)
	}
}

func (h HandlerFuncs) HandleClose(clean, reconnecting bool) {
	if h.Close != nil {
		h.Close(clean, reconnecting)
	}
}

// Stats is a snapshot of connection statistics.
type Stats struct {
	State         State
	Transport     string
	URL           string
	ConnectedAt   time.Time
	Connects      int
	Reconnects    int
	LastCloseCode int
}

// attempt is one in-flight connection attempt shared by concurrent callers.
type attempt struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newAttempt() *attempt {
	return &attempt{done: make(chan struct{})}
}

func (a *attempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

func (a *attempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manager owns one persistent connection.
type Manager struct {
	cfg     *Config
	handler Handler
	log     *slog.Logger

	mu            sync.Mutex
	state         State
	conn          transport.Conn
	transportName string
	connURL       string
	connectedAt   time.Time
	gen           uint64
	attempt       *attempt
	dialCancel    context.CancelFunc
	reconnect     Timer
	reconnectSeq  uint64
	watchers      map[chan State]struct{}
	connects      int
	reconnects    int
	lastCloseCode int
}

// New creates a Manager. The manager starts idle; call Connect to open the
// connection.
func New(cfg *Config, handler Handler) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:      cfg,
		handler:  handler,
		log:      logging.Component(logging.OrNop(cfg.Logger), "conn"),
		watchers: make(map[chan State]struct{}),
	}
	m.cfg.Metrics.StateChanged(StateIdle.String())
	return m, nil
}

// Connect opens the connection. It returns nil immediately when the
// connection is already open and joins the in-flight attempt when one is in
// progress. A failed attempt is treated as an abnormal close.
//
// ctx bounds how long the caller waits. The attempt itself is bounded by
// DialTimeout and keeps running if ctx is cancelled.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		a := m.attempt
		m.mu.Unlock()
		return a.wait(ctx)
	}

	a := newAttempt()
	dialCtx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	m.attempt = a
	m.dialCancel = cancel
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.runAttempt(dialCtx, cancel, gen, a)
	return a.wait(ctx)
}

func (m *Manager) runAttempt(ctx context.Context, cancel context.CancelFunc, gen uint64, a *attempt) {
	defer cancel()

	c, name, url, dialErr := m.dial(ctx)

	m.mu.Lock()
	if gen != m.gen {
		// Superseded by Disconnect.
		m.mu.Unlock()
		if c != nil {
			_ = c.Close(transport.StatusNormalClosure, disconnectReason)
		}
		a.finish(jsonrpc.ErrNotConnected)
		return
	}
	m.attempt = nil
	m.dialCancel = nil

	if dialErr != nil {
		m.lastCloseCode = transport.StatusAbnormalClosure
		m.setStateLocked(StateClosedAbnormal)
		reconnecting := m.scheduleReconnectLocked()
		m.mu.Unlock()

		m.log.Warn("connection failed", "url", m.cfg.URL, "error", dialErr)
		m.handler.HandleClose(false, reconnecting)
		a.finish(jsonrpc.Wrap(jsonrpc.CodeConnectionFailed, dialErr))
		return
	}

	m.conn = c
	m.transportName = name
	m.connURL = url
	m.connectedAt = time.Now()
	m.connects++
	m.setStateLocked(StateOpen)
	m.mu.Unlock()

	m.log.Info("connected", "url", url, "transport", name)
	go m.readLoop(gen, c)
	a.finish(nil)
}

// dial tries the primary endpoint, then the fallback.
func (m *Manager) dial(ctx context.Context) (transport.Conn, string, string, error) {
	c, err := m.cfg.Dialer.Dial(ctx, m.cfg.URL)
	if err == nil {
		return c, TransportWebSocket, m.cfg.URL, nil
	}
	if m.cfg.FallbackURL == "" {
		return nil, "", "", err
	}

	m.log.Warn("primary transport failed, trying fallback",
		"url", m.cfg.URL,
		"fallback", m.cfg.FallbackURL,
		"error", err,
	)
	fc, ferr := m.cfg.FallbackDialer.Dial(ctx, m.cfg.FallbackURL)
	if ferr != nil {
		return nil, "", "", errors.Join(err, fmt.Errorf("fallback: %w", ferr))
	}
	return fc, TransportHTTP, m.cfg.FallbackURL, nil
}

// readLoop delivers the frames of one connection until it closes.
func (m *Manager) readLoop(gen uint64, c transport.Conn) {
	ctx := context.Background()
	for {
		data, err := c.Read(ctx)
		if err != nil {
			m.handleClose(gen, c, err)
			return
		}

		f, err := jsonrpc.DecodeFrame(data)
		if err != nil {
			m.log.Warn("dropping malformed frame", "error", err, "size", len(data))
			m.cfg.Metrics.FrameDropped()
			continue
		}
		m.handler.HandleFrame(f)
	}
}

func (m *Manager) handleClose(gen uint64, c transport.Conn, err error) {
	code := transport.CloseCode(err)

	m.mu.Lock()
	if gen != m.gen || m.conn != c {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.lastCloseCode = code
	clean := transport.IsClean(code)
	reconnecting := false
	if clean {
		m.setStateLocked(StateClosedClean)
	} else {
		m.setStateLocked(StateClosedAbnormal)
		reconnecting = m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	_ = c.Close(transport.StatusNormalClosure, "")

	if clean {
		m.log.Info("connection closed", "code", code)
	} else {
		m.log.Warn("connection lost", "code", code, "error", err)
	}
	m.handler.HandleClose(clean, reconnecting)
}

// scheduleReconnectLocked arms the reconnect timer unless one is outstanding.
// It reports whether a reconnect is pending.
func (m *Manager) scheduleReconnectLocked() bool {
	if m.cfg.DisableReconnect {
		return false
	}
	if m.reconnect != nil {
		return true
	}
	m.reconnectSeq++
	seq := m.reconnectSeq
	delay := m.cfg.ReconnectDelay
	m.reconnect = m.cfg.AfterFunc(delay, func() { m.fireReconnect(seq) })
	m.log.Info("reconnect scheduled", "delay", delay)
	return true
}

func (m *Manager) fireReconnect(seq uint64) {
	m.mu.Lock()
	if m.reconnect == nil || seq != m.reconnectSeq {
		m.mu.Unlock()
		return
	}
	m.reconnect = nil
	if m.state != StateClosedAbnormal {
		m.mu.Unlock()
		return
	}
	m.reconnects++
	m.mu.Unlock()

	m.cfg.Metrics.Reconnect()
	m.log.Info("reconnecting", "url", m.cfg.URL)
	if err := m.Connect(context.Background()); err != nil {
		m.log.Debug("reconnect attempt failed", "error", err)
	}
}

// Disconnect closes the connection with status 1000 and cancels any pending
// reconnect. It is safe to call in any state and more than once.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.reconnectSeq++
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	c := m.conn
	a := m.attempt
	m.conn = nil
	m.attempt = nil
	m.gen++
	m.setStateLocked(StateClosing)
	m.mu.Unlock()

	if c != nil {
		if err := c.Close(transport.StatusNormalClosure, disconnectReason); err != nil {
			m.log.Debug("close failed", "error", err)
		}
	}
	if a != nil {
		a.finish(jsonrpc.ErrNotConnected)
	}

	m.mu.Lock()
	if m.state == StateClosing {
		if c != nil {
			m.lastCloseCode = transport.StatusNormalClosure
		}
		m.setStateLocked(StateClosedClean)
	}
	m.mu.Unlock()

	if c != nil {
		m.log.Info("disconnected")
	}
	m.handler.HandleClose(true, false)
}

// Send writes msg as one JSON frame. It returns jsonrpc.ErrNotConnected
// unless the connection is open.
func (m *Manager) Send(ctx context.Context, msg any) error {
	m.mu.Lock()
	c := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()
	if !open || c == nil {
		return jsonrpc.ErrNotConnected
	}

	data, err := jsonrpc.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.WriteTimeout)
		defer cancel()
	}
	if err := c.Write(ctx, data); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transport returns the transport of the open connection, or "" when no
// connection has been opened.
func (m *Manager) Transport() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transportName
}

// Stats returns a snapshot of connection statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:         m.state,
		Transport:     m.transportName,
		URL:           m.connURL,
		ConnectedAt:   m.connectedAt,
		Connects:      m.connects,
		Reconnects:    m.reconnects,
		LastCloseCode: m.lastCloseCode,
	}
}

// Watch returns a channel that receives the current state and then every
// transition. The channel holds only the latest state: a slow reader sees
// the newest value, not every intermediate one. Call the returned function
// to stop watching; it closes the channel.
func (m *Manager) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	ch <- m.state
	m.mu.Unlock()

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}
	return ch, stop
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	prev := m.state
	m.state = s
	m.log.Debug("state changed", "from", prev.String(), "to", s.String())
	m.cfg.Metrics.StateChanged(s.String())

	for ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
