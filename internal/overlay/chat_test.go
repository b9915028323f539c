package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamhive/watchparty/internal/protocol"
)

func TestChatDedup(t *testing.T) {
	c := NewChat()

	msg := protocol.ChatMessage{ID: "1", User: "ana", Text: "hi", Timestamp: "2024-05-01T10:00:00Z"}
	assert.True(t, c.Append(msg))

	echo := msg
	echo.ID = "server-echo"
	assert.False(t, c.Append(echo))

	sameTextLater := msg
	sameTextLater.Timestamp = "2024-05-01T10:00:01Z"
	assert.True(t, c.Append(sameTextLater))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "1", c.Messages()[0].ID)
}

func TestChatSeedKeepsLiveMessages(t *testing.T) {
	c := NewChat()

	live := protocol.ChatMessage{ID: "9", User: "bob", Text: "arrived first", Timestamp: "t9"}
	c.Append(live)

	history := []protocol.ChatMessage{
		{ID: "1", User: "ana", Text: "hello", Timestamp: "t1"},
		{ID: "9", User: "bob", Text: "arrived first", Timestamp: "t9"},
		{ID: "1", User: "ana", Text: "hello", Timestamp: "t1"},
	}
	assert.Equal(t, 2, c.Seed(history))

	msgs := c.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, "t1", msgs[0].Timestamp)
	assert.Equal(t, "t9", msgs[1].Timestamp)
}
