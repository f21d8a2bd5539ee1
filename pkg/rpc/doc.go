// Package rpc implements the JSON-RPC 2.0 request correlator on top of
// pkg/conn.
//
// A Client owns one connection manager. Every call registers a pending entry
// keyed by a fresh id; the response with that id resolves it exactly once.
// Calls made while the connection is not open are queued, a single connect is
// triggered, and the queue is flushed in issue order once the connection
// opens. If that connect fails every queued call fails with a connection
// error without having been sent.
//
// Three calling conventions share the same pending entry:
//
//	res, err := client.Call(ctx, "chat/message", params)    // blocking
//	call := client.Go("chat/message", params)                // promise
//	res, err = call.Await(ctx)
//	client.CallAsync("chat/message", params, func(res json.RawMessage, err error) {
//		// runs once, on its own goroutine
//	})
//
// Pending calls are rejected with jsonrpc.ErrNotConnected by Disconnect and by
// a clean server close. Abnormal closes keep them for the reconnect; the
// per-call RequestTimeout bounds how long they wait. With DisableReconnect
// set, an abnormal close rejects the calls already sent.
package rpc
