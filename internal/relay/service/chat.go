package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/streamhive/watchparty/internal/protocol"
)

type PostMessageParams struct {
	RoomID string
	User   string
	Text   string
}

// PostMessage stands in for the backend's chat endpoint: the message goes to
// everyone in the room, sender included.
func (s service) PostMessage(ctx context.Context, params *PostMessageParams) Broadcast {
	msg := protocol.ChatMessage{
		ID:        uuid.NewString(),
		User:      params.User,
		Text:      params.Text,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}

	s.logger.DebugContext(ctx, "chat message", "room_id", params.RoomID, "message_id", msg.ID)

	return Broadcast{
		Message: msg,
		Conns:   s.connRepo.RoomConns(params.RoomID, ""),
	}
}
