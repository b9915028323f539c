package service

import (
	"context"
	"fmt"

	"github.com/streamhive/watchparty/internal/protocol"
)

type SendReactionParams struct {
	MemberID string
	Reaction protocol.Reaction
}

// SendReaction stamps the sender's username on the reaction.
func (s service) SendReaction(_ context.Context, params *SendReactionParams) (Broadcast, error) {
	member, err := s.memberInRoom(params.MemberID, params.Reaction.RoomID)
	if err != nil {
		return Broadcast{}, fmt.Errorf("failed to check member: %w", err)
	}

	return Broadcast{
		Message: protocol.Reaction{
			Emoji:  params.Reaction.Emoji,
			User:   member.Username,
			RoomID: member.RoomID,
		},
		Conns: s.connRepo.RoomConns(member.RoomID, member.ID),
	}, nil
}
