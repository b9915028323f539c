package service

import (
	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/repository/connection"
)

// Broadcast is a message the caller delivers to every listed connection.
type Broadcast struct {
	Message protocol.Message
	Conns   []connection.Conn
}
