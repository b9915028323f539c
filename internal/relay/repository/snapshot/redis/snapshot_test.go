package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/internal/relay/repository/snapshot"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Hour, nil), s
}

func TestSnapshotLifecycle(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, "room-1")
	require.ErrorIs(t, err, snapshot.ErrNotFound)
	require.ErrorIs(t, r.Update(ctx, &snapshot.UpdateParams{RoomID: "room-1"}), snapshot.ErrNotFound)

	require.NoError(t, r.Set(ctx, &snapshot.SetParams{
		RoomID:    "room-1",
		Time:      42.5,
		IsPlaying: true,
		UpdatedAt: 1_700_000_000_300,
	}))
	assert.True(t, s.Exists("room:room-1:player"))
	assert.Equal(t, time.Hour, s.TTL("room:room-1:player"))

	got, err := r.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{Time: 42.5, IsPlaying: true, UpdatedAt: 1_700_000_000_300}, got)

	paused := false
	volume := 0.25
	require.NoError(t, r.Update(ctx, &snapshot.UpdateParams{
		RoomID:    "room-1",
		Time:      50,
		UpdatedAt: 1_700_000_008_000,
		IsPlaying: &paused,
		Volume:    &volume,
	}))

	got, err = r.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{Time: 50, UpdatedAt: 1_700_000_008_000, Volume: 0.25}, got)

	require.NoError(t, r.Update(ctx, &snapshot.UpdateParams{RoomID: "room-1", Time: 51, UpdatedAt: 1_700_000_009_000}))
	got, err = r.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, got.IsPlaying, "nil state keeps the stored one")
	assert.Equal(t, 0.25, got.Volume)

	require.NoError(t, r.Remove(ctx, "room-1"))
	assert.ErrorIs(t, r.Remove(ctx, "room-1"), snapshot.ErrNotFound)
	assert.False(t, s.Exists("room:room-1:player"))
}

func TestSnapshotExpires(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, &snapshot.SetParams{RoomID: "room-2", Time: 1}))
	s.FastForward(2 * time.Hour)

	_, err := r.Get(ctx, "room-2")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}
