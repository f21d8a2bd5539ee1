package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
)

// MethodBuilder configures the response of one method using a fluent API.
type MethodBuilder struct {
	server *StubServer
	method string
	route  *route
	err    error // First error encountered during building
}

// setError records the first error encountered during building.
func (b *MethodBuilder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns any error encountered during building.
func (b *MethodBuilder) Err() error {
	return b.err
}

// WithResult answers with result. Values that are not json.RawMessage are
// encoded as JSON.
func (b *MethodBuilder) WithResult(result any) *MethodBuilder {
	if _, err := json.Marshal(result); err != nil {
		b.setError(fmt.Errorf("WithResult: failed to marshal result: %w", err))
		return b
	}
	b.route.handler = func(context.Context, json.RawMessage) (any, error) {
		return result, nil
	}
	return b
}

// WithError answers with a JSON-RPC error.
func (b *MethodBuilder) WithError(code int, message string) *MethodBuilder {
	e := jsonrpc.NewErrorWithMessage(code, message)
	b.route.handler = func(context.Context, json.RawMessage) (any, error) {
		return nil, e
	}
	return b
}

// WithErrorData answers with a JSON-RPC error carrying data.
func (b *MethodBuilder) WithErrorData(code int, message string, data any) *MethodBuilder {
	e := jsonrpc.NewErrorWithMessage(code, message).WithData(data)
	b.route.handler = func(context.Context, json.RawMessage) (any, error) {
		return nil, e
	}
	return b
}

// WithHandler answers with fn.
func (b *MethodBuilder) WithHandler(fn HandlerFunc) *MethodBuilder {
	b.route.handler = fn
	return b
}

// WithDelay delays the response.
// Accepts duration strings like "100ms", "1s", "500ms".
func (b *MethodBuilder) WithDelay(delay string) *MethodBuilder {
	d, err := time.ParseDuration(delay)
	if err != nil {
		b.setError(fmt.Errorf("WithDelay: invalid duration %q: %w", delay, err))
	} else {
		b.route.delay = d
	}
	return b
}

// Hold makes the method wait for StubServer.Release before answering.
func (b *MethodBuilder) Hold() *MethodBuilder {
	b.route.gate = make(chan struct{})
	return b
}

// Silent makes the method never answer.
func (b *MethodBuilder) Silent() *MethodBuilder {
	b.route.silent = true
	return b
}

// Times limits how many requests the method answers. Later requests get
// "Method not found". Zero means unlimited.
func (b *MethodBuilder) Times(n int) *MethodBuilder {
	b.route.times = n
	return b
}

// Reply registers the method. It fails the test if building failed.
func (b *MethodBuilder) Reply() {
	b.server.t.Helper()

	if b.err != nil {
		b.server.t.Fatalf("stub method %s: %v", b.method, b.err)
		return
	}
	if b.route.handler == nil && !b.route.silent {
		b.route.handler = func(context.Context, json.RawMessage) (any, error) {
			return nil, nil
		}
	}
	b.server.server.setRoute(b.method, b.route)
}
