package metrics

// Call outcomes reported to mcpchat_calls_total.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
	OutcomeClosed    = "closed"
)

// Client is the metric set of one chat client.
type Client struct {
	Calls           *Counter
	Pending         *Gauge
	Reconnects      *Counter
	DroppedFrames   *Counter
	ConnectionState *Gauge

	states []string
}

// NewClient registers the client metrics on r. states lists every
// connection state name so exactly one of them reads 1 at a time.
func NewClient(r *Registry, states ...string) *Client {
	return &Client{
		Calls:           r.NewCounter("mcpchat_calls_total", "JSON-RPC calls by method and outcome.", "method", "outcome"),
		Pending:         r.NewGauge("mcpchat_pending_calls", "Calls awaiting a response."),
		Reconnects:      r.NewCounter("mcpchat_reconnects_total", "Reconnect attempts fired by the reconnect timer."),
		DroppedFrames:   r.NewCounter("mcpchat_frames_dropped_total", "Inbound frames dropped because they failed to parse."),
		ConnectionState: r.NewGauge("mcpchat_connection_state", "1 for the current connection state.", "state"),
		states:          states,
	}
}

// CallFinished counts a completed call.
func (m *Client) CallFinished(method, outcome string) {
	if m == nil {
		return
	}
	must(m.Calls.Inc(method, outcome))
}

// SetPending records the number of outstanding calls.
func (m *Client) SetPending(n int) {
	if m == nil {
		return
	}
	must(m.Pending.Set(float64(n)))
}

// Reconnect counts one fired reconnect attempt.
func (m *Client) Reconnect() {
	if m == nil {
		return
	}
	must(m.Reconnects.Inc())
}

// FrameDropped counts one malformed inbound frame.
func (m *Client) FrameDropped() {
	if m == nil {
		return
	}
	must(m.DroppedFrames.Inc())
}

// StateChanged marks state as the current connection state.
func (m *Client) StateChanged(state string) {
	if m == nil {
		return
	}
	for _, s := range m.states {
		if s != state {
			must(m.ConnectionState.Set(0, s))
		}
	}
	must(m.ConnectionState.Set(1, state))
}

// must panics on err. The label sets above are fixed, so the only possible
// error is a label-count mismatch between a call site and its registration.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
