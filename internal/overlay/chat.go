package overlay

import (
	"sync"

	"github.com/streamhive/watchparty/internal/protocol"
)

type chatKey struct {
	timestamp string
	text      string
}

// Chat keeps messages in arrival order, skipping exact (timestamp, text) repeats.
type Chat struct {
	mu       sync.Mutex
	messages []protocol.ChatMessage
	seen     map[chatKey]struct{}
}

func NewChat() *Chat {
	return &Chat{seen: make(map[chatKey]struct{})}
}

// Append reports whether msg was new.
func (c *Chat) Append(msg protocol.ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.appendLocked(msg)
}

// Seed merges a fetched history, keeping anything that already arrived live.
func (c *Chat) Seed(history []protocol.ChatMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.messages
	c.messages = make([]protocol.ChatMessage, 0, len(history)+len(live))
	c.seen = make(map[chatKey]struct{}, len(history)+len(live))

	added := 0
	for _, msg := range history {
		if c.appendLocked(msg) {
			added++
		}
	}
	for _, msg := range live {
		c.appendLocked(msg)
	}

	return added
}

func (c *Chat) Messages() []protocol.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]protocol.ChatMessage(nil), c.messages...)
}

func (c *Chat) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.messages)
}

func (c *Chat) appendLocked(msg protocol.ChatMessage) bool {
	key := chatKey{timestamp: msg.Timestamp, text: msg.Text}
	if _, dup := c.seen[key]; dup {
		return false
	}
	c.seen[key] = struct{}{}
	c.messages = append(c.messages, msg)

	return true
}
