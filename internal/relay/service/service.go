package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/relay/repository/connection"
	"github.com/streamhive/watchparty/internal/relay/repository/snapshot"
)

var (
	ErrNotJoined    = errors.New("member has not joined a room")
	ErrRoomMismatch = errors.New("member is in another room")
)

type iSnapshotRepo interface {
	Set(context.Context, *snapshot.SetParams) error
	Update(context.Context, *snapshot.UpdateParams) error
	Get(context.Context, string) (snapshot.Snapshot, error)
	Remove(context.Context, string) error
}

type iConnRepo interface {
	Add(connection.Conn, string) (string, error)
	Join(memberID, roomID string) error
	RemoveByConn(connection.Conn) (connection.Member, error)
	GetMember(string) (connection.Member, error)
	RoomConns(roomID, exceptID string) []connection.Conn
	RoomSize(string) int
}

type service struct {
	snapshotRepo iSnapshotRepo
	connRepo     iConnRepo
	clock        clock.Clock
	logger       *slog.Logger
}

func NewService(snapshotRepo iSnapshotRepo, connRepo iConnRepo, clk clock.Clock, logger *slog.Logger) *service {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		snapshotRepo: snapshotRepo,
		connRepo:     connRepo,
		clock:        clk,
		logger:       logger,
	}
}

// memberInRoom resolves the sender and checks it sits in roomID. An empty
// roomID means the member's own room.
func (s service) memberInRoom(memberID, roomID string) (connection.Member, error) {
	member, err := s.connRepo.GetMember(memberID)
	if err != nil {
		return connection.Member{}, err
	}
	if member.RoomID == "" {
		return connection.Member{}, ErrNotJoined
	}
	if roomID != "" && roomID != member.RoomID {
		return connection.Member{}, ErrRoomMismatch
	}

	return member, nil
}
