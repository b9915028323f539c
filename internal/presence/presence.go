package presence

import "sync"

// Counter tracks the viewers of a room from join and leave events.
type Counter struct {
	mu     sync.Mutex
	count  int
	isHost bool
}

// New seeds the counter with the viewer count reported by the room fetch.
// isHost is the local participant's role.
func New(initial int, isHost bool) *Counter {
	if initial < 0 {
		initial = 0
	}
	return &Counter{count: initial, isHost: isHost}
}

// Joined counts a join unless the local participant is the host.
func (c *Counter) Joined() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isHost {
		c.count++
	}
	return c.count
}

func (c *Counter) Left() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count > 0 {
		c.count--
	}
	return c.count
}

func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count
}

// Displayed is the number shown to the local participant. The host does not see itself.
func (c *Counter) Displayed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isHost {
		return max(c.count-1, 0)
	}
	return c.count
}
