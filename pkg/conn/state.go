package conn

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosedClean
	StateClosedAbnormal
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateConnecting:     "connecting",
	StateOpen:           "open",
	StateClosing:        "closing",
	StateClosedClean:    "closed-clean",
	StateClosedAbnormal: "closed-abnormal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// StateNames lists every state name in lifecycle order.
func StateNames() []string {
	names := make([]string, len(stateNames))
	copy(names, stateNames[:])
	return names
}

// IsClosed reports whether s is one of the closed states.
func (s State) IsClosed() bool {
	return s == StateClosedClean || s == StateClosedAbnormal
}
