package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/repository/snapshot"
)

type RequestSyncParams struct {
	MemberID string
	RoomID   string
}

// RequestSync answers a late joiner from the stored snapshot. A nil message
// means the room has no playback state yet.
func (s service) RequestSync(ctx context.Context, params *RequestSyncParams) (protocol.Message, error) {
	if _, err := s.memberInRoom(params.MemberID, params.RoomID); err != nil {
		return nil, fmt.Errorf("failed to check member: %w", err)
	}

	snap, err := s.snapshotRepo.Get(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	now := s.clock.Now().UnixMilli()
	if !snap.IsPlaying {
		state := protocol.StatePaused
		volume, muted := snap.Volume, snap.Muted
		return protocol.PlayerUpdate{
			RoomID: params.RoomID,
			Data: protocol.UpdateData{
				Time:   snap.Time,
				State:  &state,
				Volume: &volume,
				Muted:  &muted,
			},
		}, nil
	}

	return protocol.PlayerSync{
		Time:    Extrapolate(snap, now),
		StartAt: max(now, snap.UpdatedAt),
	}, nil
}

// Extrapolate is the position of a playing snapshot at now (unix millis).
// A start scheduled in the future has not advanced yet.
func Extrapolate(snap snapshot.Snapshot, now int64) float64 {
	if !snap.IsPlaying || now <= snap.UpdatedAt {
		return snap.Time
	}

	return snap.Time + float64(now-snap.UpdatedAt)/1000
}

type PlayParams struct {
	MemberID string
	Request  protocol.PlayRequest
}

func (s service) Play(ctx context.Context, params *PlayParams) (Broadcast, error) {
	member, err := s.memberInRoom(params.MemberID, params.Request.RoomID)
	if err != nil {
		return Broadcast{}, fmt.Errorf("failed to check member: %w", err)
	}

	data := params.Request.Data
	if err := s.snapshotRepo.Set(ctx, &snapshot.SetParams{
		RoomID:    member.RoomID,
		Time:      data.Time,
		IsPlaying: true,
		UpdatedAt: data.StartAt,
	}); err != nil {
		return Broadcast{}, fmt.Errorf("failed to set snapshot: %w", err)
	}

	return Broadcast{
		Message: protocol.PlayerStart(data),
		Conns:   s.connRepo.RoomConns(member.RoomID, member.ID),
	}, nil
}

type UpdatePlayerParams struct {
	MemberID string
	Update   protocol.PlayerUpdate
}

// UpdatePlayer stores the host's periodic state and relays it unchanged.
func (s service) UpdatePlayer(ctx context.Context, params *UpdatePlayerParams) (Broadcast, error) {
	member, err := s.memberInRoom(params.MemberID, params.Update.RoomID)
	if err != nil {
		return Broadcast{}, fmt.Errorf("failed to check member: %w", err)
	}

	data := params.Update.Data
	now := s.clock.Now().UnixMilli()

	var isPlaying *bool
	if data.State != nil {
		playing := *data.State == protocol.StatePlaying
		isPlaying = &playing
	}

	err = s.snapshotRepo.Update(ctx, &snapshot.UpdateParams{
		RoomID:    member.RoomID,
		Time:      data.Time,
		UpdatedAt: now,
		IsPlaying: isPlaying,
		Volume:    data.Volume,
		Muted:     data.Muted,
	})
	if errors.Is(err, snapshot.ErrNotFound) {
		err = s.snapshotRepo.Set(ctx, &snapshot.SetParams{
			RoomID:    member.RoomID,
			Time:      data.Time,
			IsPlaying: isPlaying != nil && *isPlaying,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return Broadcast{}, fmt.Errorf("failed to store update: %w", err)
	}

	update := params.Update
	update.RoomID = member.RoomID

	return Broadcast{
		Message: update,
		Conns:   s.connRepo.RoomConns(member.RoomID, member.ID),
	}, nil
}

type EndStreamParams struct {
	MemberID string
	RoomID   string
}

func (s service) EndStream(ctx context.Context, params *EndStreamParams) (Broadcast, error) {
	member, err := s.memberInRoom(params.MemberID, params.RoomID)
	if err != nil {
		return Broadcast{}, fmt.Errorf("failed to check member: %w", err)
	}

	if err := s.snapshotRepo.Remove(ctx, member.RoomID); err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return Broadcast{}, fmt.Errorf("failed to remove snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "stream ended", "room_id", member.RoomID, "member_id", member.ID)

	return Broadcast{
		Message: protocol.StreamEnded{RoomID: member.RoomID},
		Conns:   s.connRepo.RoomConns(member.RoomID, member.ID),
	}, nil
}
