package snapshot

import "errors"

var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the last known playback state of a room. UpdatedAt is the unix
// millisecond instant at which Time was accurate; it may lie in the future for
// a scheduled start.
type Snapshot struct {
	Time      float64 `redis:"time"`
	IsPlaying bool    `redis:"is_playing"`
	UpdatedAt int64   `redis:"updated_at"`
	Volume    float64 `redis:"volume"`
	Muted     bool    `redis:"muted"`
}

type SetParams struct {
	RoomID    string
	Time      float64
	IsPlaying bool
	UpdatedAt int64
}

// UpdateParams changes an existing snapshot. Nil fields are left untouched.
type UpdateParams struct {
	RoomID    string
	Time      float64
	UpdatedAt int64
	IsPlaying *bool
	Volume    *float64
	Muted     *bool
}
