// Package conn implements the connection manager: it owns the single
// persistent connection to the chat server, its lifecycle, and the
// reconnection policy.
//
// State machine:
//
//	idle ──Connect──▶ connecting ──open──▶ open ──close 1000──▶ closed-clean
//	                      │                  │
//	                      └──dial error──────┴──close ≠ 1000──▶ closed-abnormal
//	                                                              │
//	                                        (after ReconnectDelay)│
//	                      connecting ◀────────────────────────────┘
//
// Disconnect forces any state to closed-clean and never reconnects.
//
// Inbound frames are decoded and handed to the Handler one at a time, in the
// order the transport delivers them. Malformed frames are logged and dropped.
package conn
