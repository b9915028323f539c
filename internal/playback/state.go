package playback

import (
	"time"

	"github.com/streamhive/watchparty/internal/protocol"
)

type State int

const (
	Idle State = iota
	WaitingForPlayerReady
	WaitingForHostStart
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForPlayerReady:
		return "waiting_for_player_ready"
	case WaitingForHostStart:
		return "waiting_for_host_start"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

func (s State) wire() protocol.PlayerState {
	if s == Playing {
		return protocol.StatePlaying
	}
	return protocol.StatePaused
}

// Snapshot is a copy of the local playback state.
type Snapshot struct {
	State           State
	IsPlaying       bool
	PositionSeconds float64
	Volume          float64
	Muted           bool
	Ready           bool
	QueuedPosition  *float64
	Err             error
}

// StartDelay is how long to wait before starting playback scheduled for startAt (unix millis).
func StartDelay(startAt int64, now time.Time) time.Duration {
	delay := time.Duration(startAt-now.UnixMilli()) * time.Millisecond
	if delay < 0 {
		return 0
	}
	return delay
}

// Drift is the absolute difference between two positions in seconds.
func Drift(local, remote float64) float64 {
	if local > remote {
		return local - remote
	}
	return remote - local
}
