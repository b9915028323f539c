package controller

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhive/watchparty/internal/relay/service"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// broadcast delivers b to every listed connection. A failing connection does
// not stop the others; its own read loop will notice and disconnect it.
func (c controller) broadcast(ctx context.Context, b service.Broadcast) {
	if b.Message == nil {
		return
	}

	event := b.Message.EventName()
	for _, conn := range b.Conns {
		if err := conn.Send(event, b.Message); err != nil {
			c.logger.InfoContext(ctx, "failed to deliver", "event", event, "error", err)
			continue
		}
		c.metrics.broadcasts.WithLabelValues(event).Inc()
	}
}
