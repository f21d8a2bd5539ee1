// Package conntest provides in-memory transports and a manual timer factory
// for testing code built on pkg/conn.
package conntest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/getmockd/mcpchat/pkg/conn"
	"github.com/getmockd/mcpchat/pkg/transport"
)

// Conn is an in-memory transport.Conn. The test plays the server: Push
// delivers inbound frames and Drop closes the connection from the server side.
type Conn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu        sync.Mutex
	closeErr  error
	closeCode int
	writes    [][]byte
	writeErr  error
	written   chan []byte
}

// NewConn returns an open Conn.
func NewConn() *Conn {
	return &Conn{
		in:      make(chan []byte, 64),
		closed:  make(chan struct{}),
		written: make(chan []byte, 64),
	}
}

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.closeErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Write(_ context.Context, data []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}

	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	cp := append([]byte(nil), data...)
	c.writes = append(c.writes, cp)
	c.mu.Unlock()

	select {
	case c.written <- cp:
	default:
	}
	return nil
}

// Close records the client's close status.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closeCode == 0 {
		c.closeCode = code
	}
	c.mu.Unlock()
	c.shut(&transport.CloseError{Code: code, Reason: reason})
	return nil
}

func (c *Conn) shut(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeErr = err
		c.mu.Unlock()
		close(c.closed)
	})
}

// Push delivers one raw inbound frame.
func (c *Conn) Push(data []byte) {
	c.in <- data
}

// PushJSON delivers v encoded as JSON.
func (c *Conn) PushJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.Push(data)
}

// Drop closes the connection from the server side with code.
func (c *Conn) Drop(code int) {
	c.shut(&transport.CloseError{Code: code})
}

// FailWrites makes subsequent writes return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// Writes returns a copy of every frame written so far.
func (c *Conn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// NextWrite waits for the next written frame.
func (c *Conn) NextWrite(timeout time.Duration) ([]byte, bool) {
	select {
	case data := <-c.written:
		return data, true
	case <-time.After(timeout):
		return nil, false
	}
}

// CloseCode returns the status the client closed with, or 0.
func (c *Conn) CloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// IsClosed reports whether either side closed the connection.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// ErrRefused is the dial error returned when a Dialer has no result queued.
var ErrRefused = errors.New("connection refused")

// Dialer hands out queued results in order. When the queue is empty it
// returns ErrRefused.
type Dialer struct {
	mu      sync.Mutex
	results []dialResult
	urls    []string
	gate    chan struct{}
}

type dialResult struct {
	conn *Conn
	err  error
}

// NewDialer returns a Dialer with no queued results.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Accept queues a successful dial and returns its connection.
func (d *Dialer) Accept() *Conn {
	c := NewConn()
	d.mu.Lock()
	d.results = append(d.results, dialResult{conn: c})
	d.mu.Unlock()
	return c
}

// Refuse queues a failed dial.
func (d *Dialer) Refuse(err error) {
	d.mu.Lock()
	d.results = append(d.results, dialResult{err: err})
	d.mu.Unlock()
}

// Hold makes Dial block until Release is called or the dial context ends.
func (d *Dialer) Hold() {
	d.mu.Lock()
	d.gate = make(chan struct{})
	d.mu.Unlock()
}

// Release unblocks dials held by Hold.
func (d *Dialer) Release() {
	d.mu.Lock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
	d.mu.Unlock()
}

func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.results) == 0 {
		return nil, ErrRefused
	}
	r := d.results[0]
	d.results = d.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

// Dials returns how many times Dial was called.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// URLs returns the URLs passed to Dial, in order.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Clock is a manual timer factory. Timers only fire when the test calls
// Fire or FireAll.
type Clock struct {
	mu     sync.Mutex
	timers []*Timer
}

// NewClock returns an empty Clock.
func NewClock() *Clock {
	return &Clock{}
}

// Timer is one timer created by a Clock.
type Timer struct {
	Delay time.Duration

	clock   *Clock
	f       func()
	stopped bool
	fired   bool
}

// AfterFunc is a conn.AfterFunc.
func (c *Clock) AfterFunc(d time.Duration, f func()) conn.Timer {
	t := &Timer{Delay: d, clock: c, f: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

func (t *Timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Active returns the timers that have neither fired nor been stopped.
func (c *Clock) Active() []*Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Timer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// Created returns how many timers were created.
func (c *Clock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Fire runs t's function on the calling goroutine unless t was stopped or
// already fired. It reports whether the function ran.
func (c *Clock) Fire(t *Timer) bool {
	c.mu.Lock()
	if t.stopped || t.fired {
		c.mu.Unlock()
		return false
	}
	t.fired = true
	c.mu.Unlock()
	t.f()
	return true
}

// FireAll fires every active timer and returns how many ran.
func (c *Clock) FireAll() int {
	n := 0
	for _, t := range c.Active() {
		if c.Fire(t) {
			n++
		}
	}
	return n
}
