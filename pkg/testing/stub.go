package testing

import (
	"net/http/httptest"
	"strings"
	"testing"
)

// StubServer is a test helper that runs a Server on a local port.
type StubServer struct {
	t       testing.TB
	server  *Server
	httpSrv *httptest.Server
	started bool
	baseURL string
}

// New creates a stub server for testing. It is stopped automatically when
// the test completes.
func New(t testing.TB) *StubServer {
	t.Helper()
	s := &StubServer{
		t:      t,
		server: NewServer(nil),
	}
	t.Cleanup(s.Stop)
	return s
}

// NewWithDefaults creates a stub server with the default echo backend
// registered.
func NewWithDefaults(t testing.TB) *StubServer {
	t.Helper()
	s := New(t)
	s.server.RegisterDefaults()
	return s
}

// Start starts the server and returns its WebSocket URL. Methods may be
// configured before or after Start.
func (s *StubServer) Start() string {
	s.t.Helper()

	if s.started {
		return s.URL()
	}
	s.httpSrv = httptest.NewServer(s.server)
	s.baseURL = s.httpSrv.URL
	s.started = true
	return s.URL()
}

// Stop stops the server. It is safe to call more than once.
func (s *StubServer) Stop() {
	if s.httpSrv != nil {
		s.server.DropAll()
		s.httpSrv.Close()
		s.httpSrv = nil
	}
	s.started = false
}

// URL returns the WebSocket URL, or "" before Start.
func (s *StubServer) URL() string {
	if s.baseURL == "" {
		return ""
	}
	return "ws" + strings.TrimPrefix(s.baseURL, "http")
}

// HTTPURL returns the URL for the HTTP POST fallback, or "" before Start.
func (s *StubServer) HTTPURL() string {
	return s.baseURL
}

// Method starts configuring the response of method.
//
//	stub.Method("chat/message").
//	    WithResult(map[string]string{"response": "hi"}).
//	    Reply()
func (s *StubServer) Method(method string) *MethodBuilder {
	s.t.Helper()
	return &MethodBuilder{
		server: s,
		method: method,
		route:  &route{},
	}
}

// Release lets held responses of method proceed.
func (s *StubServer) Release(method string) {
	s.server.Release(method)
}

// CloseAll closes every connection with code.
func (s *StubServer) CloseAll(code int, reason string) {
	s.t.Helper()
	if err := s.server.CloseAll(code, reason); err != nil {
		s.t.Logf("close connections: %v", err)
	}
}

// DropAll tears down every connection without a close frame.
func (s *StubServer) DropAll() {
	s.server.DropAll()
}

// Connections returns the number of open WebSocket connections.
func (s *StubServer) Connections() int {
	return s.server.Connections()
}

// Requests returns every request received, oldest first.
func (s *StubServer) Requests() []RequestLog {
	return s.server.Requests()
}

// Reset clears the configured methods and the request log.
func (s *StubServer) Reset() {
	s.server.mu.Lock()
	s.server.routes = make(map[string]*route)
	s.server.mu.Unlock()
	s.server.ResetRequests()
}

// Server returns the underlying Server for advanced use cases.
func (s *StubServer) Server() *Server {
	return s.server
}
