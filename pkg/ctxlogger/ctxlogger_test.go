package ctxlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("room_id", "r1"))
	ctx = AppendCtx(ctx, slog.String("event", "player:update"))
	logger.InfoContext(ctx, "handled")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "r1", rec["room_id"])
	assert.Equal(t, "player:update", rec["event"])
}

func TestAppendCtxDoesNotLeakIntoParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("a", "1"))
	_ = AppendCtx(parent, slog.String("b", "2"))

	attrs, _ := parent.Value(slogFields).([]slog.Attr)
	assert.Len(t, attrs, 1)
}
