// Package testing provides a stub JSON-RPC chat server for tests and local
// development.
//
// Server speaks the same protocol as the production chat backend over
// WebSocket and over the HTTP POST fallback. StubServer wraps it in an
// httptest server with a fluent builder for method responses and assertions
// on the requests received.
//
// # Basic Usage
//
//	func TestChat(t *testing.T) {
//	    stub := testing.New(t)
//	    defer stub.Stop()
//
//	    stub.Method("chat/message").
//	        WithResult(map[string]string{"response": "hi"}).
//	        Reply()
//
//	    url := stub.Start()
//
//	    // Point the client at url, make calls...
//
//	    stub.AssertCalled(t, "chat/message")
//	}
//
// # Fluent Builder API
//
//	stub.Method("tools/call").
//	    WithError(-32602, "Invalid params").
//	    WithDelay("100ms").
//	    Times(1).
//	    Reply()
//
// Hold makes a method wait for Release before it answers, which lets a test
// control the order in which responses arrive:
//
//	stub.Method("slow").WithResult("late").Hold().Reply()
//	...
//	stub.Release("slow")
//
// Silent methods never answer, for exercising client-side timeouts.
//
// # Connection Control
//
//	stub.CloseAll(1000, "bye")      // clean close: client does not reconnect
//	stub.CloseAll(1011, "restart")  // abnormal close: client reconnects
//	stub.DropAll()                  // no close frame: status 1006
//
// # Standalone
//
// NewServer with RegisterDefaults serves an echo chat backend with a small
// tool catalog; `mcpchat stub` runs it with ListenAndServe.
package testing
