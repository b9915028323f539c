package controller

import (
	"context"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw, c.loggerWSMw)
	mux.OnError(func(ctx context.Context, event string, err error) {
		c.logger.InfoContext(ctx, "websocket event rejected", "event", event, "error", err)
	})

	mux.Handle(protocol.EventJoinRoom, c.handleJoinRoom)
	mux.Handle(protocol.EventRequestSync, c.handleRequestSync)
	mux.Handle(protocol.EventPlayerPlay, c.handlePlay)
	mux.Handle(protocol.EventPlayerUpdate, c.handleUpdatePlayer)
	mux.Handle(protocol.EventReaction, c.handleReaction)
	mux.Handle(protocol.EventStreamEnded, c.handleStreamEnded)

	return mux
}
