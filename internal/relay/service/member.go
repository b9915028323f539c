package service

import (
	"context"
	"fmt"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/repository/connection"
)

type ConnectMemberParams struct {
	Conn     connection.Conn
	Username string
}

func (s service) ConnectMember(_ context.Context, params *ConnectMemberParams) (string, error) {
	memberID, err := s.connRepo.Add(params.Conn, params.Username)
	if err != nil {
		return "", fmt.Errorf("failed to add connection: %w", err)
	}

	return memberID, nil
}

type JoinRoomParams struct {
	MemberID string
	RoomID   string
}

type JoinRoomResponse struct {
	Broadcast
	RoomSize int
}

// JoinRoom announces the member to the rest of the room.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if err := s.connRepo.Join(params.MemberID, params.RoomID); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	member, err := s.connRepo.GetMember(params.MemberID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	s.logger.InfoContext(ctx, "member joined", "member_id", member.ID, "username", member.Username, "room_id", params.RoomID)

	return JoinRoomResponse{
		Broadcast: Broadcast{
			Message: protocol.UserJoined{Username: member.Username, RoomID: params.RoomID},
			Conns:   s.connRepo.RoomConns(params.RoomID, params.MemberID),
		},
		RoomSize: s.connRepo.RoomSize(params.RoomID),
	}, nil
}

type DisconnectMemberParams struct {
	Conn connection.Conn
}

type DisconnectMemberResponse struct {
	Broadcast
	MemberID string
	RoomID   string
}

// DisconnectMember forgets the connection. Members that had joined a room are
// announced as left to the rest of it.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	member, err := s.connRepo.RemoveByConn(params.Conn)
	if err != nil {
		return DisconnectMemberResponse{}, fmt.Errorf("failed to remove connection: %w", err)
	}

	resp := DisconnectMemberResponse{MemberID: member.ID, RoomID: member.RoomID}
	if member.RoomID == "" {
		return resp, nil
	}

	s.logger.InfoContext(ctx, "member left", "member_id", member.ID, "room_id", member.RoomID)

	resp.Broadcast = Broadcast{
		Message: protocol.UserLeft{Username: member.Username, RoomID: member.RoomID},
		Conns:   s.connRepo.RoomConns(member.RoomID, member.ID),
	}

	return resp, nil
}
