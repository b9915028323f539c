package overlay

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactions(clk clock.Clock) *Reactions {
	return NewReactions(ReactionsConfig{
		Clock:  clk,
		Bounds: Bounds{Width: 400, Height: 300},
		Rand:   rand.New(rand.NewSource(1)),
	})
}

func TestReactionFields(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_700_000_000_123))
	r := newTestReactions(clk)

	reaction := r.Add("🔥", "ana")
	assert.Equal(t, "1700000000123", reaction.ID)
	assert.Equal(t, "🔥", reaction.Emoji)
	assert.GreaterOrEqual(t, reaction.X, 0.0)
	assert.Less(t, reaction.X, 400.0)
	assert.Equal(t, 280.0, reaction.Y)
}

func TestReactionExpiryBoundary(t *testing.T) {
	clk := clock.NewMock()
	r := newTestReactions(clk)

	r.Add("👍", "")
	clk.Add(1999 * time.Millisecond)
	assert.Len(t, r.Active(), 1)
	assert.Zero(t, r.Sweep())

	clk.Add(time.Millisecond)
	assert.Empty(t, r.Active())
	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestReactionExpiryIndependentOfLoad(t *testing.T) {
	clk := clock.NewMock()
	r := newTestReactions(clk)

	first := r.Add("🎉", "")
	for i := 0; i < 50; i++ {
		clk.Add(30 * time.Millisecond)
		r.Add("😂", "")
	}

	clk.Set(first.CreatedAt.Add(2 * time.Second))
	for _, reaction := range r.Active() {
		assert.NotEqual(t, first.CreatedAt, reaction.CreatedAt)
	}
	assert.Len(t, r.Active(), 50)
}

func TestRunSweepsOnSingleTicker(t *testing.T) {
	clk := clock.NewMock()
	r := newTestReactions(clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 2*time.Second)
		close(done)
	}()

	r.Add("❤️", "")
	r.Add("❤️", "")
	require.Equal(t, 2, r.Len())

	require.Eventually(t, func() bool {
		clk.Add(2 * time.Second)
		return r.Len() == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
