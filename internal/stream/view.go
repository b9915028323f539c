package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/api"
	"github.com/streamhive/watchparty/internal/media"
	"github.com/streamhive/watchparty/internal/overlay"
	"github.com/streamhive/watchparty/internal/player"
	"github.com/streamhive/watchparty/internal/playback"
	"github.com/streamhive/watchparty/internal/presence"
	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/room"
	"github.com/streamhive/watchparty/internal/session"
	"github.com/streamhive/watchparty/pkg/ctxlogger"
)

// ReturnDelay is how long guests see the end notice before going back to the dashboard.
const ReturnDelay = 5 * time.Second

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrClosed       = errors.New("view closed")
)

type Backend interface {
	GetStream(ctx context.Context, id string) (api.StreamDetails, error)
	ListMessages(ctx context.Context, id string) ([]protocol.ChatMessage, error)
	PostMessage(ctx context.Context, id, text string) error
	DeleteStream(ctx context.Context, id string) error
}

type Connection interface {
	room.Channel
	Disconnect() error
}

// Dialer opens the realtime connection of one room.
type Dialer func(ctx context.Context, roomID string, isHost bool) (Connection, error)

type Player interface {
	playback.Player
	playback.AudioControl
	Bind(l player.Listener)
	Close()
}

// Hooks are called outside of any view lock. Nil hooks are skipped.
type Hooks struct {
	OnStateChange func(from, to playback.State)
	OnPlaybackErr func(err error)
	OnChatMessage func(protocol.ChatMessage)
	OnReaction    func(overlay.Reaction)
	OnViewers     func(displayed int)
	OnStreamEnded func()
}

type Config struct {
	Session    session.Session
	Backend    Backend
	Dial       Dialer
	Player     Player
	BackendURL string
	ShareBase  string
	Bounds     overlay.Bounds
	StartDelay time.Duration
	Clock      clock.Clock
	Logger     *slog.Logger
	Hooks      Hooks
}

// View is one mounted stream page: playback, chat, reactions and viewers.
type View struct {
	id      string
	details api.StreamDetails
	sess    session.Session
	isHost  bool

	backend   Backend
	conn      Connection
	player    Player
	sync      *playback.Synchronizer
	room      *room.Attachment
	chat      *overlay.Chat
	reactions *overlay.Reactions
	viewers   *presence.Counter

	shareBase string
	clock     clock.Clock
	logger    *slog.Logger
	hooks     Hooks

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	ended     bool
	finished  bool
	closed    bool
	returnTmr *clock.Timer
	closeOnce sync.Once
}

// Open mounts the stream id. It fails with api.ErrUnauthorized when the
// session is missing or rejected so the caller can send the user to login.
func Open(ctx context.Context, id string, cfg Config) (*View, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = room.DefaultStartDelay
	}

	if !cfg.Session.Valid(cfg.Clock.Now()) {
		return nil, api.ErrUnauthorized
	}

	details, err := cfg.Backend.GetStream(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	isHost := cfg.Session.IsHost(details.HostID)
	logger := cfg.Logger.With("room_id", id, "is_host", isHost)

	initial := details.Viewers
	if initial == 0 {
		initial = 1
	}

	// The view outlives ctx, which may only scope the fetches. Its values are kept.
	viewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v := &View{
		id:        id,
		details:   details,
		sess:      cfg.Session,
		isHost:    isHost,
		backend:   cfg.Backend,
		player:    cfg.Player,
		chat:      overlay.NewChat(),
		viewers:   presence.New(initial, isHost),
		shareBase: cfg.ShareBase,
		clock:     cfg.Clock,
		logger:    logger,
		hooks:     cfg.Hooks,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	v.reactions = overlay.NewReactions(overlay.ReactionsConfig{Clock: cfg.Clock, Bounds: cfg.Bounds})

	history, err := cfg.Backend.ListMessages(ctx, id)
	if err != nil {
		logger.Warn("failed to load chat history", "error", err)
	}
	v.chat.Seed(history)

	v.sync = playback.New(cfg.Player, playback.Config{
		IsHost: isHost,
		Clock:  cfg.Clock,
		Logger: logger,
		Hooks: playback.Hooks{
			OnStateChange: cfg.Hooks.OnStateChange,
			OnError:       cfg.Hooks.OnPlaybackErr,
		},
	})
	cfg.Player.Bind(v.sync)

	conn, err := cfg.Dial(ctxlogger.AppendCtx(viewCtx, slog.String("room_id", id)), id, isHost)
	if err != nil {
		cancel()
		v.sync.Close()
		cfg.Player.Close()
		return nil, fmt.Errorf("failed to connect to room: %w", err)
	}
	v.conn = conn

	v.room = room.Attach(conn, id, isHost, room.Callbacks{
		OnPlayerStart:  v.sync.HandleStart,
		OnPlayerUpdate: v.sync.HandleUpdate,
		OnChatMessage:  v.onChatMessage,
		OnReaction:     v.onReaction,
		OnUserJoined:   func(protocol.UserJoined) { v.onViewers(v.viewers.Joined) },
		OnUserLeft:     func(protocol.UserLeft) { v.onViewers(v.viewers.Left) },
		OnStreamEnded:  v.onStreamEnded,
	}, room.WithClock(cfg.Clock), room.WithLogger(logger), room.WithStartDelay(cfg.StartDelay))
	if isHost {
		v.sync.SetPublisher(v.room)
	}

	go v.reactions.Run(viewCtx, overlay.DefaultSweepInterval)

	src, err := media.Resolve(details.VideoURL, cfg.BackendURL)
	if err != nil {
		logger.Warn("failed to resolve media", "url", details.VideoURL, "error", err)
	}
	// An unresolvable source still goes to the synchronizer so the error is
	// surfaced as a playback error and Retry stays available.
	v.sync.Load(src)

	logger.Info("stream opened", "title", details.Title, "media", src.Kind.String(), "proxied", src.Proxied())

	return v, nil
}

func (v *View) ID() string { return v.id }

func (v *View) Details() api.StreamDetails { return v.details }

func (v *View) IsHost() bool { return v.isHost }

// StartPlayback schedules the shared start from the current local position.
func (v *View) StartPlayback() error {
	if !v.isHost {
		return room.ErrNotHost
	}
	if v.sync.State() == playback.WaitingForPlayerReady {
		return playback.ErrNotReady
	}

	return v.room.StartPlayback(v.player.CurrentTime())
}

// SetPlaying is the host's play/pause toggle once playback has started.
func (v *View) SetPlaying(playing bool) error {
	return v.sync.SetPlaying(playing)
}

func (v *View) Started() bool { return v.sync.Started() }

func (v *View) SetVolume(volume float64) { v.sync.SetVolume(volume) }

func (v *View) SetMuted(muted bool) { v.sync.SetMuted(muted) }

// SendMessage posts through the backend. The line is displayed when it comes
// back as chat:new-message.
func (v *View) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	return v.backend.PostMessage(ctx, v.id, text)
}

// SendReaction emits the reaction and floats it locally, since the relay
// does not echo it back to the sender.
func (v *View) SendReaction(emoji string) error {
	if err := v.room.SendReaction(emoji); err != nil {
		return err
	}

	r := v.reactions.Add(emoji, v.sess.Name)
	if v.hooks.OnReaction != nil {
		v.hooks.OnReaction(r)
	}

	return nil
}

// EndStream is the host's terminal action: notify guests, delete the stream
// and return to the dashboard.
func (v *View) EndStream(ctx context.Context) error {
	if !v.isHost {
		return room.ErrNotHost
	}

	if err := v.room.EndStream(); err != nil {
		v.logger.Warn("failed to notify stream end", "error", err)
	}

	if err := v.backend.DeleteStream(ctx, v.id); err != nil {
		return fmt.Errorf("failed to end stream: %w", err)
	}

	v.mu.Lock()
	v.ended = true
	v.mu.Unlock()

	v.finish()

	return nil
}

func (v *View) Retry() error { return v.sync.Retry() }

func (v *View) ShareLink() string { return media.ShareLink(v.shareBase, v.id) }

func (v *View) Viewers() int { return v.viewers.Displayed() }

func (v *View) Messages() []protocol.ChatMessage { return v.chat.Messages() }

func (v *View) Reactions() []overlay.Reaction { return v.reactions.Active() }

func (v *View) State() playback.State { return v.sync.State() }

func (v *View) PlaybackError() error { return v.sync.Err() }

func (v *View) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.ended
}

// Done is closed when the view asks to go back to the dashboard.
func (v *View) Done() <-chan struct{} { return v.done }

// Close unmounts the view: timers, listeners, the connection and the player.
func (v *View) Close() error {
	var err error
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		if v.returnTmr != nil {
			v.returnTmr.Stop()
		}
		v.mu.Unlock()

		v.cancel()
		v.room.Detach()
		v.sync.Close()
		v.player.Close()
		err = v.conn.Disconnect()
	})

	return err
}

func (v *View) onChatMessage(msg protocol.ChatMessage) {
	if !v.chat.Append(msg) {
		return
	}
	if v.hooks.OnChatMessage != nil {
		v.hooks.OnChatMessage(msg)
	}
}

func (v *View) onReaction(r protocol.Reaction) {
	added := v.reactions.Add(r.Emoji, r.User)
	if v.hooks.OnReaction != nil {
		v.hooks.OnReaction(added)
	}
}

func (v *View) onViewers(apply func() int) {
	apply()
	if v.hooks.OnViewers != nil {
		v.hooks.OnViewers(v.viewers.Displayed())
	}
}

func (v *View) onStreamEnded() {
	if v.isHost {
		return
	}

	v.mu.Lock()
	if v.ended || v.closed {
		v.mu.Unlock()
		return
	}
	v.ended = true
	v.returnTmr = v.clock.AfterFunc(ReturnDelay, v.finish)
	v.mu.Unlock()

	v.sync.HandleStreamEnded()
	v.logger.Info("stream ended by host")

	if v.hooks.OnStreamEnded != nil {
		v.hooks.OnStreamEnded()
	}
}

func (v *View) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.finished {
		return
	}
	v.finished = true
	close(v.done)
}
