package agent

// State is an agent's lifecycle position inside the runtime.
//
// Registered → Active → Stopping → Stopped (terminal). Registered means the
// registry has accepted the agent but its execution lane has not started;
// Active means ticks and deliveries flow; Stopping means unregistration was
// requested and only an in-flight invocation may still finish; Stopped means
// fully removed.
type State int32

const (
	StateRegistered State = iota
	StateActive
	StateStopping
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
