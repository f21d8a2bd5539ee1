// Package mcp is the chat facade over a JSON-RPC client.
//
// A Session sends chat messages with the chat/message method and extracts the
// reply text, lists the tools a backend advertises and calls them. Tool
// arguments are checked against the advertised input schema before the call
// is sent.
//
// Basic usage:
//
//	client, _ := rpc.NewClient(rpc.DefaultConfig("ws://localhost:3003"))
//	session, _ := mcp.NewSession(client)
//	reply, err := session.SendChat(ctx, "hello")
package mcp
