package redis

import (
	"context"
	"fmt"

	"github.com/streamhive/watchparty/internal/relay/repository/snapshot"
	omitnilpointers "github.com/streamhive/watchparty/pkg/omit-nil-pointers"
)

func (r repo) getSnapshotKey(roomID string) string {
	return "room:" + roomID + ":player"
}

// Set replaces the room snapshot. Volume and mute survive a replace.
func (r repo) Set(ctx context.Context, params *snapshot.SetParams) error {
	funcName := "snapshot.redis.Set"
	r.logger.DebugContext(ctx, funcName, "room_id", params.RoomID, "time", params.Time, "is_playing", params.IsPlaying)

	key := r.getSnapshotKey(params.RoomID)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key,
		"time", params.Time,
		"is_playing", params.IsPlaying,
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, key, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (r repo) Update(ctx context.Context, params *snapshot.UpdateParams) error {
	funcName := "snapshot.redis.Update"
	r.logger.DebugContext(ctx, funcName, "room_id", params.RoomID, "time", params.Time)

	key := r.getSnapshotKey(params.RoomID)
	exists, err := r.rc.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check if snapshot exists: %w", err)
	}
	if exists == 0 {
		return snapshot.ErrNotFound
	}

	fields := omitnilpointers.OmitNilPointers(map[string]any{
		"time":       params.Time,
		"updated_at": params.UpdatedAt,
		"is_playing": params.IsPlaying,
		"volume":     params.Volume,
		"muted":      params.Muted,
	})

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}

	return nil
}

func (r repo) Get(ctx context.Context, roomID string) (snapshot.Snapshot, error) {
	key := r.getSnapshotKey(roomID)

	res := r.rc.HGetAll(ctx, key)
	if err := res.Err(); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if len(res.Val()) == 0 {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	var s snapshot.Snapshot
	if err := res.Scan(&s); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	r.rc.Expire(ctx, key, r.expireDuration)

	return s, nil
}

func (r repo) Remove(ctx context.Context, roomID string) error {
	res, err := r.rc.Del(ctx, r.getSnapshotKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}

	if res == 0 {
		return snapshot.ErrNotFound
	}

	return nil
}
