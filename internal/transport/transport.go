package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/pkg/wschannel"
)

var ErrInvalidURL = errors.New("invalid socket url")

// Config describes how to reach the relay. Zero values of the channel options
// keep the wschannel defaults, including its reconnect policy.
type Config struct {
	URL      string
	Token    string
	Username string
	Logger   *slog.Logger
	// Channel allows tests to tune timings; production code leaves it empty.
	Channel wschannel.Options
}

// Handle is one connection per mounted room view.
type Handle struct {
	ch     *wschannel.Channel
	roomID string
	isHost bool
}

// Connect dials in the background and returns immediately. On every established
// connection the handle joins roomID and, for guests, asks for a sync.
func Connect(ctx context.Context, cfg Config, roomID string, isHost bool) (*Handle, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.URL)
	}
	if cfg.Username != "" {
		q := u.Query()
		q.Set("username", cfg.Username)
		u.RawQuery = q.Encode()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := cfg.Channel
	opts.Logger = logger
	if cfg.Token != "" {
		if opts.Header == nil {
			opts.Header = http.Header{}
		}
		opts.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	opts.OnConnect = func(send wschannel.SendFunc) error {
		if err := send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID}); err != nil {
			return fmt.Errorf("failed to join room: %w", err)
		}
		if !isHost {
			if err := send(protocol.EventRequestSync, protocol.SyncRequest{RoomID: roomID}); err != nil {
				return fmt.Errorf("failed to request sync: %w", err)
			}
		}
		logger.Debug("joined room", "room_id", roomID, "is_host", isHost)
		return nil
	}

	return &Handle{
		ch:     wschannel.Dial(ctx, u.String(), opts),
		roomID: roomID,
		isHost: isHost,
	}, nil
}

func (h *Handle) RoomID() string { return h.roomID }

func (h *Handle) IsHost() bool { return h.isHost }

func (h *Handle) Connected() bool { return h.ch.Connected() }

func (h *Handle) Emit(event string, payload any) error {
	return h.ch.Emit(event, payload)
}

func (h *Handle) On(event string, fn func(payload json.RawMessage)) (off func()) {
	return h.ch.On(event, fn)
}

// Disconnect releases the room membership held by this connection.
func (h *Handle) Disconnect() error {
	return h.ch.Close()
}
