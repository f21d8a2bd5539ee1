// Package jsonrpc defines the JSON-RPC 2.0 envelopes exchanged with the chat
// server and the structured error type every failed call resolves with.
//
// Outbound traffic is always a Request. Inbound traffic is decoded into a
// Frame, which is a union of the three shapes a server may send:
//
//   - response: has an id and a result or an error
//   - notification: has a method and no id
//   - request: has both a method and an id (server-to-client call)
//
// Error codes follow the JSON-RPC 2.0 reserved range. Client-side failures
// (connection, timeout, disconnect) use codes in the -32000 to -32099 server
// error range so callers can tell them apart from application errors with
// errors.Is:
//
//	if errors.Is(err, jsonrpc.ErrTimeout) { ... }
package jsonrpc
