package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotFound      = errors.New("connection not found")
	ErrNotJoined     = errors.New("connection has not joined a room")
)

// Conn is a writable peer. Implementations serialize their own writes.
type Conn interface {
	Send(event string, payload any) error
	Close() error
}

type Member struct {
	ID       string
	Username string
	RoomID   string
	Conn     Conn
}
