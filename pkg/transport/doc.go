// Package transport provides the connection primitive the connection manager
// is built on: a Dialer that opens a Conn, and a Conn that reads and writes
// whole text frames and closes with a WebSocket status code.
//
// Three implementations are provided:
//
//   - WebSocketDialer uses github.com/coder/websocket and is the default.
//   - GorillaDialer uses github.com/gorilla/websocket.
//   - HTTPDialer is the degraded fallback: every written frame is POSTed to
//     the fallback URL in the background and the response body becomes the
//     next inbound frame. A failed POST of a request becomes an error
//     response for its id.
//
// Reads that end because the connection closed return a *CloseError. Use
// CloseCode to get the status code from any read error; transports report
// StatusAbnormalClosure (1006) when the connection dropped without a close
// frame.
package transport
