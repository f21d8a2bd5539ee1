package rpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mcpchat/pkg/conn"
	"github.com/getmockd/mcpchat/pkg/jsonrpc"
	"github.com/getmockd/mcpchat/pkg/rpc"
	stub "github.com/getmockd/mcpchat/pkg/testing"
	"github.com/getmockd/mcpchat/pkg/transport"
)

func stubClient(t *testing.T, url string, mutate ...func(*rpc.Config)) *rpc.Client {
	t.Helper()
	cfg := rpc.DefaultConfig(url)
	cfg.ReconnectDelay = 20 * time.Millisecond
	for _, fn := range mutate {
		fn(cfg)
	}
	client, err := rpc.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Disconnect)
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStub_RoundTripPerTransport(t *testing.T) {
	for _, name := range []string{transport.NameCoder, transport.NameGorilla} {
		t.Run(name, func(t *testing.T) {
			srv := stub.New(t)
			srv.Method("chat/message").WithResult(map[string]string{"response": "hi"}).Reply()
			url := srv.Start()

			dialer, err := transport.ForName(name)
			require.NoError(t, err)
			client := stubClient(t, url, func(cfg *rpc.Config) { cfg.Dialer = dialer })

			res, err := client.Call(testContext(t), "chat/message", map[string]string{"text": "hello"})
			require.NoError(t, err)
			assert.JSONEq(t, `{"response":"hi"}`, string(res))

			srv.LastRequest("chat/message").AssertParams(t, `{"text":"hello"}`)
			assert.True(t, len(srv.LastRequest("chat/message").ID) > 0)
		})
	}
}

func TestStub_ServerCleanCloseRejectsPending(t *testing.T) {
	srv := stub.New(t)
	srv.Method("slow").Silent().Reply()
	client := stubClient(t, srv.Start())
	require.NoError(t, client.Connect(testContext(t)))

	a := client.Go("slow", nil)
	b := client.Go("slow", nil)
	require.Eventually(t, func() bool { return len(srv.Requests()) == 2 }, 2*time.Second, 5*time.Millisecond)

	srv.CloseAll(transport.StatusNormalClosure, "bye")

	for _, call := range []*rpc.Call{a, b} {
		_, err := call.Await(testContext(t))
		require.ErrorIs(t, err, jsonrpc.ErrNotConnected)
	}
	assert.Equal(t, conn.StateClosedClean, client.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, conn.StateClosedClean, client.State(), "clean close does not reconnect")
	assert.Equal(t, 0, srv.Connections())
}

func TestStub_AbnormalCloseReconnects(t *testing.T) {
	srv := stub.NewWithDefaults(t)
	client := stubClient(t, srv.Start())
	require.NoError(t, client.Connect(testContext(t)))

	srv.CloseAll(transport.StatusInternalError, "restart")

	require.Eventually(t, func() bool {
		return client.Stats().Reconnects == 1 && client.State() == conn.StateOpen
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, transport.StatusInternalError, client.Stats().LastCloseCode)

	res, err := client.Call(testContext(t), "chat/message", map[string]string{"text": "again"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"Echo: again"}`, string(res))
}

func TestStub_DropReconnects(t *testing.T) {
	srv := stub.NewWithDefaults(t)
	client := stubClient(t, srv.Start())
	require.NoError(t, client.Connect(testContext(t)))

	srv.DropAll()

	require.Eventually(t, func() bool {
		return client.Stats().Reconnects >= 1 && client.State() == conn.StateOpen
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, transport.StatusAbnormalClosure, client.Stats().LastCloseCode)
}

func TestStub_RequestTimeout(t *testing.T) {
	srv := stub.New(t)
	srv.Method("never").Silent().Reply()
	client := stubClient(t, srv.Start(), func(cfg *rpc.Config) { cfg.RequestTimeout = 50 * time.Millisecond })

	_, err := client.Call(testContext(t), "never", nil)
	require.ErrorIs(t, err, jsonrpc.ErrTimeout)
	assert.Equal(t, 0, client.Pending())
}

func TestStub_HTTPFallback(t *testing.T) {
	srv := stub.NewWithDefaults(t)
	srv.Start()

	client := stubClient(t, "ws://127.0.0.1:1", func(cfg *rpc.Config) {
		cfg.FallbackURL = srv.HTTPURL()
	})

	res, err := client.Call(testContext(t), "chat/message", map[string]string{"text": "over http"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"Echo: over http"}`, string(res))
	assert.Equal(t, conn.TransportHTTP, client.Transport())
	assert.Equal(t, stub.TransportHTTP, srv.LastRequest("chat/message").Transport)
}

func TestStub_ServerErrorReachesCaller(t *testing.T) {
	srv := stub.New(t)
	srv.Method("tools/call").WithError(jsonrpc.CodeInvalidParams, "missing name").Reply()
	client := stubClient(t, srv.Start())

	_, err := client.Call(testContext(t), "tools/call", nil)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc.CodeInvalidParams, rpcErr.Code)
	assert.Equal(t, "missing name", err.Error())
}

func TestStub_HTTPFallbackSlowReply(t *testing.T) {
	srv := stub.New(t)
	srv.Method("chat/message").WithResult(map[string]string{"response": "slow"}).WithDelay("300ms").Reply()
	srv.Start()

	client := stubClient(t, "ws://127.0.0.1:1", func(cfg *rpc.Config) {
		cfg.FallbackURL = srv.HTTPURL()
		cfg.WriteTimeout = 50 * time.Millisecond
	})
	require.NoError(t, client.Connect(testContext(t)))

	start := time.Now()
	call := client.Go("chat/message", map[string]string{"text": "hi"})
	assert.Less(t, time.Since(start), 200*time.Millisecond, "Go returns before the fallback answers")

	res, err := call.Await(testContext(t))
	require.NoError(t, err, "the round trip is bounded by the request timeout, not the write timeout")
	assert.JSONEq(t, `{"response":"slow"}`, string(res))
}

func TestStub_HTTPFallbackServerDown(t *testing.T) {
	srv := stub.NewWithDefaults(t)
	srv.Start()
	fallback := srv.HTTPURL()
	srv.Stop()

	client := stubClient(t, "ws://127.0.0.1:1", func(cfg *rpc.Config) { cfg.FallbackURL = fallback })

	_, err := client.Call(testContext(t), "chat/message", map[string]string{"text": "hi"})
	require.ErrorIs(t, err, jsonrpc.ErrConnectionClosed)
	assert.Contains(t, err.Error(), "http fallback post")
}
