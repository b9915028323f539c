package protocol

import "encoding/json"

// Message is implemented by every decoded wire payload.
type Message interface {
	EventName() string
}

// JoinRoom is sent as a bare room id string.
type JoinRoom struct {
	RoomID string `validate:"required"`
}

func (JoinRoom) EventName() string { return EventJoinRoom }

func (m JoinRoom) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.RoomID)
}

func (m *JoinRoom) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.RoomID)
}

type SyncRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

func (SyncRequest) EventName() string { return EventRequestSync }

// StartData schedules playback at StartAt (unix millis) from position Time.
type StartData struct {
	Time    float64 `json:"time" validate:"gte=0"`
	StartAt int64   `json:"startAt" validate:"gte=0"`
}

// PlayerStart is the payload of player:start. player:sync decodes to PlayerSync.
type PlayerStart StartData

func (PlayerStart) EventName() string { return EventPlayerStart }

type PlayerSync StartData

func (PlayerSync) EventName() string { return EventPlayerSync }

// PlayRequest is emitted by the host; the relay fans it out as player:start.
type PlayRequest struct {
	RoomID string    `json:"roomId" validate:"required"`
	Data   StartData `json:"data"`
}

func (PlayRequest) EventName() string { return EventPlayerPlay }

type UpdateData struct {
	Time   float64      `json:"time" validate:"gte=0"`
	State  *PlayerState `json:"state,omitempty" validate:"omitempty,oneof=playing paused"`
	Volume *float64     `json:"volume,omitempty" validate:"omitempty,gte=0,lte=1"`
	Muted  *bool        `json:"muted,omitempty"`
}

type PlayerUpdate struct {
	RoomID string     `json:"roomId"`
	Data   UpdateData `json:"data"`
}

func (PlayerUpdate) EventName() string { return EventPlayerUpdate }

type ChatMessage struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
}

func (ChatMessage) EventName() string { return EventChatMessage }

type Reaction struct {
	Emoji  string `json:"emoji" validate:"required"`
	User   string `json:"user,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}

func (Reaction) EventName() string { return EventReaction }

type Presence struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// UserJoined and UserLeft share the Presence shape.
type UserJoined Presence

func (UserJoined) EventName() string { return EventUserJoined }

type UserLeft Presence

func (UserLeft) EventName() string { return EventUserLeft }

type StreamEnded struct {
	RoomID string `json:"roomId,omitempty"`
}

func (StreamEnded) EventName() string { return EventStreamEnded }

func StatePtr(s PlayerState) *PlayerState { return &s }
