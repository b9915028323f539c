package protocol

// Wire event names.
const (
	EventJoinRoom     = "join-room"
	EventRequestSync  = "request:sync"
	EventPlayerPlay   = "player:play"
	EventPlayerStart  = "player:start"
	EventPlayerSync   = "player:sync"
	EventPlayerUpdate = "player:update"
	EventChatMessage  = "chat:new-message"
	EventReaction     = "reaction:sent"
	EventUserJoined   = "user:joined"
	EventUserLeft     = "user:left"
	EventStreamEnded  = "stream:ended"
)

// Inbound lists the events a room participant consumes.
var Inbound = []string{
	EventPlayerSync,
	EventPlayerStart,
	EventPlayerUpdate,
	EventChatMessage,
	EventReaction,
	EventUserJoined,
	EventUserLeft,
	EventStreamEnded,
}

type PlayerState string

const (
	StatePlaying PlayerState = "playing"
	StatePaused  PlayerState = "paused"
)
