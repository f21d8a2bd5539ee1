package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/logging"
	"github.com/getmockd/mcpchat/pkg/transport"
)

// Transports recorded in RequestLog.
const (
	TransportWebSocket = "websocket"
	TransportHTTP      = "http"
)

const maxRequestBody = 4 << 20

// HandlerFunc answers one request. A returned *jsonrpc.Error is sent as is;
// any other error becomes an internal error carrying its message.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// route is the configured behaviour of one method.
type route struct {
	handler HandlerFunc
	delay   time.Duration
	times   int // 0 means unlimited
	calls   int
	silent  bool
	gate    chan struct{}
}

// Server is a JSON-RPC chat server. It accepts WebSocket upgrades and HTTP
// POSTs on any path.
type Server struct {
	log *slog.Logger

	mu       sync.RWMutex
	routes   map[string]*route
	conns    map[*websocket.Conn]struct{}
	requests []RequestLog
}

// NewServer creates a Server with no methods. log may be nil.
func NewServer(log *slog.Logger) *Server {
	return &Server{
		log:    logging.Component(logging.OrNop(log), "stub"),
		routes: make(map[string]*route),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Handle registers fn for method, replacing any previous registration.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.setRoute(method, &route{handler: fn})
}

func (s *Server) setRoute(method string, r *route) {
	s.mu.Lock()
	s.routes[method] = r
	s.mu.Unlock()
}

// Release lets held responses of method proceed.
func (s *Server) Release(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.routes[method]; ok && r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		s.servePost(w, r)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	c.SetReadLimit(maxRequestBody)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.CloseNow()
	}()

	s.log.Debug("client connected", "remote", r.RemoteAddr)
	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			s.log.Debug("client disconnected", "code", int(websocket.CloseStatus(err)))
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		// Requests are answered concurrently so delayed methods do not block
		// the ones behind them.
		go func() {
			resp := s.dispatch(ctx, data, TransportWebSocket)
			if resp == nil {
				return
			}
			if err := c.Write(ctx, websocket.MessageText, resp); err != nil {
				s.log.Debug("write failed", "error", err)
			}
		}()
	}
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	resp := s.dispatch(r.Context(), body, TransportHTTP)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

// dispatch answers one frame. It returns nil when nothing is to be sent.
func (s *Server) dispatch(ctx context.Context, data []byte, via string) []byte {
	frame, rpcErr := jsonrpc.DecodeRequest(data)
	if rpcErr != nil {
		s.log.Debug("invalid request", "error", rpcErr)
		return encodeResponse(json.RawMessage("null"), nil, rpcErr)
	}

	s.mu.Lock()
	s.requests = append(s.requests, RequestLog{
		ID:        frame.IDString(),
		Method:    frame.Method,
		Params:    frame.Params,
		Transport: via,
		Time:      time.Now(),
	})
	rt, ok := s.routes[frame.Method]
	if ok && rt.times > 0 && rt.calls >= rt.times {
		ok = false
	}
	var gate chan struct{}
	if ok {
		rt.calls++
		gate = rt.gate
	}
	s.mu.Unlock()

	s.log.Debug("request", "id", frame.IDString(), "method", frame.Method, "transport", via)

	if !ok {
		if !frame.HasID() {
			return nil
		}
		return encodeResponse(frame.ID, nil, jsonrpc.NewError(jsonrpc.CodeMethodNotFound).WithData(map[string]string{"method": frame.Method}))
	}

	if rt.delay > 0 {
		select {
		case <-time.After(rt.delay):
		case <-ctx.Done():
			return nil
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil
		}
	}
	if rt.silent {
		return nil
	}

	result, err := rt.handler(ctx, frame.Params)
	if !frame.HasID() {
		return nil
	}
	if err != nil {
		var e *jsonrpc.Error
		if !errors.As(err, &e) {
			e = jsonrpc.NewErrorWithMessage(jsonrpc.CodeInternalError, err.Error())
		}
		return encodeResponse(frame.ID, nil, e)
	}
	return encodeResponse(frame.ID, result, nil)
}

func encodeResponse(id json.RawMessage, result any, rpcErr *jsonrpc.Error) []byte {
	resp := jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: id, Error: rpcErr}
	if rpcErr == nil {
		if result == nil {
			result = json.RawMessage("null")
		}
		resp.Result = result
	}
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(jsonrpc.Response{
			JSONRPC: jsonrpc.Version,
			ID:      id,
			Error:   jsonrpc.Wrap(jsonrpc.CodeInternalError, err),
		})
	}
	return data
}

func (s *Server) connections() []*websocket.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// CloseAll closes every WebSocket connection with code.
func (s *Server) CloseAll(code int, reason string) error {
	var g errgroup.Group
	for _, c := range s.connections() {
		g.Go(func() error {
			return c.Close(websocket.StatusCode(code), reason)
		})
	}
	return g.Wait()
}

// DropAll tears down every WebSocket connection without a close frame.
func (s *Server) DropAll() {
	for _, c := range s.connections() {
		_ = c.CloseNow()
	}
}

// Notify sends a notification to every WebSocket connection.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	data, err := json.Marshal(jsonrpc.NewNotification(method, params))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range s.connections() {
		g.Go(func() error {
			return c.Write(ctx, websocket.MessageText, data)
		})
	}
	return g.Wait()
}

// Requests returns every request received, oldest first.
func (s *Server) Requests() []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RequestLog, len(s.requests))
	copy(out, s.requests)
	return out
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// ListenAndServe serves on addr until ctx is cancelled. ready, if not nil,
// receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.CloseAll(transport.StatusGoingAway, "server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
