// Package metrics provides Prometheus-compatible counters and gauges for the
// chat client.
//
// It implements the Prometheus text exposition format (text/plain;
// version=0.0.4) with the standard library only; a client library that is
// embedded in other programs should not force a metrics stack on them.
//
// # Client metrics
//
// NewClient registers the metric set the connection manager and the request
// correlator report to:
//
//   - mcpchat_calls_total: calls by method and outcome
//   - mcpchat_pending_calls: calls awaiting a response
//   - mcpchat_reconnects_total: reconnect attempts fired by the reconnect timer
//   - mcpchat_frames_dropped_total: inbound frames that failed to parse
//   - mcpchat_connection_state: 1 for the current connection state, 0 otherwise
//
// A nil *Client is valid and records nothing, so components can take an
// optional metrics sink without nil checks.
//
//	reg := metrics.NewRegistry()
//	m := metrics.NewClient(reg)
//	http.Handle("/metrics", reg.Handler())
package metrics
