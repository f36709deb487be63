package optionz

// State represents the lifecycle state of a Monitor.
type State int32

const (
	// StateIdle indicates the Monitor serves Get but has not armed its
	// change sources yet.
	StateIdle State = iota

	// StateWatching indicates change sources are armed.
	StateWatching

	// StateClosed indicates the Monitor released its registrations and
	// subscribers. Get keeps working without change tracking.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
