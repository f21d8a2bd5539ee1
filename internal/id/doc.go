// Package id provides identifier generation for outbound JSON-RPC requests.
//
// Request identifiers only need to be unique among the requests that are
// outstanding on one connection, but the client uses UUID v4 strings so ids
// never collide across reconnects or across clients sharing a server.
//
// Sequence produces predictable ids ("prefix-1", "prefix-2", ...) and is meant
// for tests and for logs where a human has to follow a conversation.
package id
