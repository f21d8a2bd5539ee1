package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	stdtesting "testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/transport"
)

func testContext(t *stdtesting.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func dial(t *stdtesting.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(testContext(t), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.CloseNow() })
	return c
}

func roundTrip(t *stdtesting.T, c *websocket.Conn, req string) *jsonrpc.Frame {
	t.Helper()
	ctx := testContext(t)
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(req)))
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	f, err := jsonrpc.DecodeFrame(data)
	require.NoError(t, err)
	return f
}

func TestStartAndStop(t *stdtesting.T) {
	stub := New(t)
	assert.Equal(t, "", stub.URL())

	url := stub.Start()
	assert.Regexp(t, `^ws://127\.0\.0\.1:\d+$`, url)
	assert.Equal(t, url, stub.Start(), "Start is idempotent")
	assert.Regexp(t, `^http://`, stub.HTTPURL())

	stub.Stop()
	stub.Stop()
}

func TestMethod_WithResult(t *stdtesting.T) {
	stub := New(t)
	stub.Method("chat/message").WithResult(map[string]string{"response": "hi"}).Reply()
	c := dial(t, stub.Start())

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"1","method":"chat/message","params":{"text":"hello"}}`)
	assert.Equal(t, "1", f.IDString())
	assert.JSONEq(t, `{"response":"hi"}`, string(f.Result))

	stub.AssertCalled(t, "chat/message")
	stub.AssertCalledTimes(t, "chat/message", 1)
	stub.AssertNotCalled(t, "tools/list")

	last := stub.LastRequest("chat/message")
	require.NotNil(t, last)
	assert.Equal(t, TransportWebSocket, last.Transport)
	last.AssertParams(t, map[string]string{"text": "hello"})
}

func TestMethod_WithError(t *stdtesting.T) {
	stub := New(t)
	stub.Method("tools/call").WithErrorData(jsonrpc.CodeInvalidParams, "bad args", map[string]int{"line": 3}).Reply()
	c := dial(t, stub.Start())

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":7,"method":"tools/call"}`)
	assert.Equal(t, "7", f.IDString())
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, f.Error.Code)
	assert.Equal(t, "bad args", f.Error.Message)
	assert.JSONEq(t, `{"line":3}`, string(f.Error.Data))
}

func TestMethod_NotFound(t *stdtesting.T) {
	stub := New(t)
	c := dial(t, stub.Start())

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"x","method":"nope"}`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, f.Error.Code)
}

func TestMethod_InvalidRequest(t *stdtesting.T) {
	stub := New(t)
	c := dial(t, stub.Start())

	f := roundTrip(t, c, `{"id":"x","method":"ping"}`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeInvalidRequest, f.Error.Code)
	assert.False(t, f.HasID())

	f = roundTrip(t, c, `not json`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeParseError, f.Error.Code)
}

func TestMethod_Times(t *stdtesting.T) {
	stub := New(t)
	stub.Method("once").WithResult(true).Times(1).Reply()
	c := dial(t, stub.Start())

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"1","method":"once"}`)
	assert.Nil(t, f.Error)
	f = roundTrip(t, c, `{"jsonrpc":"2.0","id":"2","method":"once"}`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, f.Error.Code)
}

func TestMethod_HoldAnswersOutOfOrder(t *stdtesting.T) {
	stub := New(t)
	stub.Method("slow").WithResult("slow").Hold().Reply()
	stub.Method("fast").WithResult("fast").Reply()
	c := dial(t, stub.Start())
	ctx := testContext(t)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","id":"a","method":"slow"}`)))
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","id":"b","method":"fast"}`)))

	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"b"`)

	stub.Release("slow")
	_, data, err = c.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"a"`)
}

func TestReset(t *stdtesting.T) {
	stub := NewWithDefaults(t)
	c := dial(t, stub.Start())
	roundTrip(t, c, `{"jsonrpc":"2.0","id":"1","method":"ping"}`)
	require.Len(t, stub.Requests(), 1)

	stub.Reset()
	assert.Empty(t, stub.Requests())

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"2","method":"ping"}`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, f.Error.Code)
}

func TestMethod_BadDelay(t *stdtesting.T) {
	stub := New(t)
	b := stub.Method("x").WithDelay("soon")
	require.Error(t, b.Err())
	assert.Contains(t, b.Err().Error(), "invalid duration")
}

func TestCloseAll_SendsStatus(t *stdtesting.T) {
	stub := New(t)
	c := dial(t, stub.Start())
	require.Eventually(t, func() bool { return stub.Connections() == 1 }, time.Second, 5*time.Millisecond)

	go stub.CloseAll(int(websocket.StatusInternalError), "restart")

	_, _, err := c.Read(testContext(t))
	require.Error(t, err)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
}

func TestNotify(t *stdtesting.T) {
	stub := New(t)
	c := dial(t, stub.Start())
	require.Eventually(t, func() bool { return stub.Connections() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, stub.Server().Notify(testContext(t), "notifications/message", map[string]string{"level": "info"}))

	_, data, err := c.Read(testContext(t))
	require.NoError(t, err)
	f, err := jsonrpc.DecodeFrame(data)
	require.NoError(t, err)
	assert.True(t, f.IsNotification())
	assert.Equal(t, "notifications/message", f.Method)
}

func TestHTTPFallback(t *stdtesting.T) {
	stub := NewWithDefaults(t)
	stub.Start()

	body := []byte(`{"jsonrpc":"2.0","id":"1","method":"chat/message","params":{"text":"hello"}}`)
	resp, err := http.Post(stub.HTTPURL(), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"1","result":{"response":"Echo: hello"}}`, string(data))
	assert.Equal(t, TransportHTTP, stub.LastRequest("chat/message").Transport)

	// Notifications get no body.
	resp2, err := http.Post(stub.HTTPURL(), "application/json", bytes.NewReader([]byte(`{"jsonrpc":"2.0","method":"ping"}`)))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp2.StatusCode)

	resp3, err := http.Get(stub.HTTPURL())
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestDefaults(t *stdtesting.T) {
	stub := NewWithDefaults(t)
	c := dial(t, stub.Start())

	tests := []struct {
		name string
		req  string
		want string
	}{
		{"echo", `{"jsonrpc":"2.0","id":"1","method":"chat/message","params":{"text":"hi"}}`, `{"response":"Echo: hi"}`},
		{"lookup", `{"jsonrpc":"2.0","id":"2","method":"chat/message","params":{"text":"customer lookup for 42"}}`, `{"response":"Customer 42: Jane Doe, status active, plan pro"}`},
		{"ping", `{"jsonrpc":"2.0","id":"3","method":"ping"}`, `{}`},
		{"tool", `{"jsonrpc":"2.0","id":"4","method":"tools/call","params":{"name":"echo","arguments":{"text":"x"}}}`, `{"content":[{"type":"text","text":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *stdtesting.T) {
			f := roundTrip(t, c, tt.req)
			require.Nil(t, f.Error)
			assert.JSONEq(t, tt.want, string(f.Result))
		})
	}

	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"5","method":"chat/message","params":{}}`)
	require.NotNil(t, f.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, f.Error.Code)

	f = roundTrip(t, c, `{"jsonrpc":"2.0","id":"6","method":"tools/list"}`)
	var list struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(f.Result, &list))
	assert.Len(t, list.Tools, len(DefaultTools))
}

func TestListenAndServe(t *stdtesting.T) {
	srv := NewServer(nil)
	srv.RegisterDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	addrs := make(chan net.Addr, 1)
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrs <- a }) }()

	addr := <-addrs
	c := dial(t, "ws://"+addr.String())
	f := roundTrip(t, c, `{"jsonrpc":"2.0","id":"1","method":"ping"}`)
	assert.Nil(t, f.Error)

	// Keep reading so the shutdown close handshake completes.
	closed := make(chan websocket.StatusCode, 1)
	go func() {
		_, _, err := c.Read(context.Background())
		closed <- websocket.CloseStatus(err)
	}()
	cancel()
	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
	assert.Equal(t, websocket.StatusCode(transport.StatusGoingAway), <-closed)
}
