package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/pkg/ctxlogger"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

// DefaultStartDelay is the grace period between a host start and the shared start instant.
const DefaultStartDelay = 300 * time.Millisecond

var ErrNotHost = errors.New("only the host can do this")

type Channel interface {
	Emit(event string, payload any) error
	On(event string, fn func(payload json.RawMessage)) (off func())
}

// Callbacks receive decoded inbound events. Nil callbacks are skipped.
type Callbacks struct {
	OnPlayerStart  func(protocol.StartData)
	OnPlayerUpdate func(protocol.PlayerUpdate)
	OnChatMessage  func(protocol.ChatMessage)
	OnReaction     func(protocol.Reaction)
	OnUserJoined   func(protocol.UserJoined)
	OnUserLeft     func(protocol.UserLeft)
	OnStreamEnded  func()
}

type Option func(*Attachment)

func WithClock(clk clock.Clock) Option {
	return func(a *Attachment) { a.clock = clk }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Attachment) { a.logger = logger }
}

func WithStartDelay(d time.Duration) Option {
	return func(a *Attachment) { a.startDelay = d }
}

type Attachment struct {
	ch         Channel
	roomID     string
	isHost     bool
	cb         Callbacks
	clock      clock.Clock
	logger     *slog.Logger
	startDelay time.Duration
	dispose    func()
}

// Attach subscribes to every inbound event on ch. Host-ness is fixed for the
// lifetime of the attachment.
func Attach(ch Channel, roomID string, isHost bool, cb Callbacks, opts ...Option) *Attachment {
	a := &Attachment{
		ch:         ch,
		roomID:     roomID,
		isHost:     isHost,
		cb:         cb,
		clock:      clock.New(),
		logger:     slog.Default(),
		startDelay: DefaultStartDelay,
	}
	for _, opt := range opts {
		opt(a)
	}

	mux := wsrouter.New()
	mux.Use(a.loggingMw)
	mux.OnError(func(ctx context.Context, event string, err error) {
		a.logger.WarnContext(ctx, "rejected inbound event", "event", event, "error", err)
	})
	for _, event := range protocol.Inbound {
		mux.Handle(event, a.handle)
	}

	ctx := ctxlogger.AppendCtx(context.Background(),
		slog.String("room_id", roomID),
		slog.Bool("is_host", isHost),
	)
	a.dispose = mux.Bind(ctx, ch)

	return a
}

func (a *Attachment) RoomID() string { return a.roomID }

func (a *Attachment) IsHost() bool { return a.isHost }

func (a *Attachment) Channel() Channel { return a.ch }

// Detach removes every listener registered by Attach.
func (a *Attachment) Detach() {
	a.dispose()
}

// StartPlayback schedules a shared start from pos. The local start callback is
// invoked with the same payload so the host schedules like every guest.
func (a *Attachment) StartPlayback(pos float64) error {
	if !a.isHost {
		return ErrNotHost
	}

	data := protocol.StartData{
		Time:    pos,
		StartAt: a.clock.Now().Add(a.startDelay).UnixMilli(),
	}

	err := a.ch.Emit(protocol.EventPlayerPlay, protocol.PlayRequest{RoomID: a.roomID, Data: data})
	if a.cb.OnPlayerStart != nil {
		a.cb.OnPlayerStart(data)
	}
	if err != nil {
		return fmt.Errorf("failed to emit start: %w", err)
	}

	return nil
}

func (a *Attachment) EndStream() error {
	if !a.isHost {
		return ErrNotHost
	}

	if err := a.ch.Emit(protocol.EventStreamEnded, protocol.StreamEnded{RoomID: a.roomID}); err != nil {
		return fmt.Errorf("failed to emit stream ended: %w", err)
	}

	return nil
}

// PublishUpdate emits a periodic position update. Throttling is the caller's concern.
func (a *Attachment) PublishUpdate(data protocol.UpdateData) error {
	if !a.isHost {
		return ErrNotHost
	}

	if err := a.ch.Emit(protocol.EventPlayerUpdate, protocol.PlayerUpdate{RoomID: a.roomID, Data: data}); err != nil {
		return fmt.Errorf("failed to emit update: %w", err)
	}

	return nil
}

func (a *Attachment) SendReaction(emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: empty emoji", protocol.ErrMalformedPayload)
	}

	if err := a.ch.Emit(protocol.EventReaction, protocol.Reaction{RoomID: a.roomID, Emoji: emoji}); err != nil {
		return fmt.Errorf("failed to emit reaction: %w", err)
	}

	return nil
}

func (a *Attachment) loggingMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("event", wsrouter.GetEventFromCtx(ctx)))
		a.logger.DebugContext(ctx, "inbound event", "size", len(payload))
		return next(ctx, payload)
	}
}

func (a *Attachment) handle(ctx context.Context, payload json.RawMessage) error {
	msg, err := protocol.Decode(wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.PlayerStart:
		if a.cb.OnPlayerStart != nil {
			a.cb.OnPlayerStart(protocol.StartData(m))
		}
	case protocol.PlayerSync:
		if a.cb.OnPlayerStart != nil {
			a.cb.OnPlayerStart(protocol.StartData(m))
		}
	case protocol.PlayerUpdate:
		if a.cb.OnPlayerUpdate != nil {
			a.cb.OnPlayerUpdate(m)
		}
	case protocol.ChatMessage:
		if a.cb.OnChatMessage != nil {
			a.cb.OnChatMessage(m)
		}
	case protocol.Reaction:
		if a.cb.OnReaction != nil {
			a.cb.OnReaction(m)
		}
	case protocol.UserJoined:
		if a.cb.OnUserJoined != nil {
			a.cb.OnUserJoined(m)
		}
	case protocol.UserLeft:
		if a.cb.OnUserLeft != nil {
			a.cb.OnUserLeft(m)
		}
	case protocol.StreamEnded:
		if a.cb.OnStreamEnded != nil {
			a.cb.OnStreamEnded()
		}
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownEvent, msg)
	}

	return nil
}
