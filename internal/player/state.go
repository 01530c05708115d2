package player

// State is the playback lifecycle position. Stopped and Failed are terminal
// for a given playback; a new Play call starts a fresh one.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state permits starting a new playback.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateStopped || s == StateFailed
}
