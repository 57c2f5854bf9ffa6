package livechat

// State is the controller lifecycle state.
type State int

const (
	// StateIdle means no resources are held. Start is only legal here.
	StateIdle State = iota

	// StateInitializing means devices and the session are being acquired.
	StateInitializing

	// StateConnected means the session handshake finished but the pipeline
	// goroutines are not yet running.
	StateConnected

	// StateActive means audio is flowing in both directions.
	StateActive

	// StateStopping means teardown is in progress.
	StateStopping

	// StateFailed is a transit state entered on a fatal component error;
	// cleanup runs and the controller lands back in StateIdle.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Speaker identifies which side of the conversation produced text.
type Speaker int

const (
	SpeakerUser Speaker = iota
	SpeakerModel
)

func (s Speaker) String() string {
	switch s {
	case SpeakerUser:
		return "user"
	case SpeakerModel:
		return "model"
	default:
		return "unknown"
	}
}

// Turn is one speaker's contribution to an exchange. Finalized turns are
// immutable; a non-finalized Turn is an in-progress partial.
type Turn struct {
	Speaker   Speaker
	Text      string
	Finalized bool
}
