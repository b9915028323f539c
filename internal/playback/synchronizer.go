package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/media"
	"github.com/streamhive/watchparty/internal/protocol"
)

const (
	DefaultDriftThreshold = 1.0
	DefaultEmitInterval   = time.Second
)

var (
	ErrNotHost  = errors.New("only the host controls playback")
	ErrNotReady = errors.New("player is not ready")
	ErrNoSource = errors.New("no media source loaded")
	ErrEnded    = errors.New("stream has ended")
	ErrClosed   = errors.New("synchronizer closed")
)

// Player is the local playback surface. SeekTo and SetPlaying must not call
// back into the Synchronizer synchronously; Load may.
type Player interface {
	Load(src media.Source) error
	CurrentTime() float64
	SeekTo(seconds float64)
	SetPlaying(playing bool)
}

// AudioControl is implemented by players that expose volume.
type AudioControl interface {
	SetVolume(volume float64)
	SetMuted(muted bool)
}

type Publisher interface {
	PublishUpdate(protocol.UpdateData) error
}

type PublisherFunc func(protocol.UpdateData) error

func (f PublisherFunc) PublishUpdate(d protocol.UpdateData) error { return f(d) }

type Hooks struct {
	OnStateChange func(from, to State)
	OnError       func(err error)
}

type Config struct {
	IsHost         bool
	DriftThreshold float64
	EmitInterval   time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
	Hooks          Hooks
}

type Synchronizer struct {
	mu sync.Mutex

	player    Player
	publisher Publisher
	isHost    bool
	threshold float64
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger
	hooks     Hooks

	state     State
	source    *media.Source
	ready     bool
	isPlaying bool
	position  float64
	volume    float64
	muted     bool
	started   bool
	err       error
	closed    bool

	queued       *float64
	queuedState  *protocol.PlayerState
	startPending bool
	startAt      int64

	lastEmit time.Time
	emitted  bool

	timers    map[uint64]*clock.Timer
	nextTimer uint64

	notify []func()
}

func New(player Player, cfg Config) *Synchronizer {
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = DefaultDriftThreshold
	}
	if cfg.EmitInterval <= 0 {
		cfg.EmitInterval = DefaultEmitInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Synchronizer{
		player:    player,
		isHost:    cfg.IsHost,
		threshold: cfg.DriftThreshold,
		interval:  cfg.EmitInterval,
		clock:     cfg.Clock,
		logger:    cfg.Logger.With("is_host", cfg.IsHost),
		hooks:     cfg.Hooks,
		state:     Idle,
		volume:    1,
		timers:    make(map[uint64]*clock.Timer),
	}
}

// SetPublisher sets where host updates go. Guests never publish.
func (s *Synchronizer) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publisher = p
}

func (s *Synchronizer) IsHost() bool { return s.isHost }

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Started reports whether shared playback has begun at least once.
func (s *Synchronizer) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:           s.state,
		IsPlaying:       s.isPlaying,
		PositionSeconds: s.position,
		Volume:          s.volume,
		Muted:           s.muted,
		Ready:           s.ready,
		Err:             s.err,
	}
	if s.queued != nil {
		q := *s.queued
		snap.QueuedPosition = &q
	}
	return snap
}

// Load assigns a media source and hands it to the player.
func (s *Synchronizer) Load(src media.Source) error {
	s.mu.Lock()
	if s.closed {
		s.unlock()
		return ErrClosed
	}
	if s.state == Ended {
		s.unlock()
		return ErrEnded
	}

	s.source = &src
	s.ready = false
	s.isPlaying = false
	s.err = nil
	s.transition(WaitingForPlayerReady)
	s.unlock()

	if err := s.player.Load(src); err != nil {
		s.OnError(err)
		return err
	}

	return nil
}

// Retry re-supplies the current source after a player error, resuming from the last position.
func (s *Synchronizer) Retry() error {
	s.mu.Lock()
	if s.source == nil {
		s.unlock()
		return ErrNoSource
	}
	src := *s.source
	if s.queued == nil && s.position > 0 {
		pos := s.position
		s.queued = &pos
	}
	s.unlock()

	return s.Load(src)
}

// OnReady is called by the player once the source can be controlled.
func (s *Synchronizer) OnReady() {
	s.mu.Lock()
	defer s.unlock()

	if s.closed || s.ready || s.state != WaitingForPlayerReady {
		return
	}
	s.ready = true
	s.err = nil

	if s.queued != nil {
		s.seek(*s.queued)
		s.queued = nil
	}

	if s.isHost {
		s.setPlaying(false)
		s.transition(Paused)
		s.clearPending()
		if s.started {
			// Guests follow the host into the pause after a reload.
			s.emit(s.clock.Now())
		}
		return
	}

	switch {
	case s.startPending:
		delay := StartDelay(s.startAt, s.clock.Now())
		if delay <= 0 {
			s.play()
		} else {
			s.setPlaying(false)
			s.transition(WaitingForHostStart)
			s.schedule(delay, 0, false)
		}
	case s.queuedState != nil && *s.queuedState == protocol.StatePlaying:
		s.play()
	case s.queuedState != nil && *s.queuedState == protocol.StatePaused:
		s.setPlaying(false)
		s.transition(Paused)
	default:
		s.setPlaying(false)
		s.transition(WaitingForHostStart)
	}
	s.clearPending()
}

// OnProgress is called periodically by the player with its position.
func (s *Synchronizer) OnProgress(played float64) {
	s.mu.Lock()
	defer s.unlock()

	if s.closed || !s.ready {
		return
	}
	s.position = played

	if !s.isHost || (s.state != Playing && s.state != Paused) {
		return
	}

	now := s.clock.Now()
	if s.emitted && now.Sub(s.lastEmit) < s.interval {
		return
	}
	s.emit(now)
}

// OnError records a local media error. Sync state is left alone.
func (s *Synchronizer) OnError(err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return
	}
	s.err = err
	s.ready = false
	s.isPlaying = false
	s.logger.Warn("player error", "error", err)
	if s.hooks.OnError != nil {
		s.notify = append(s.notify, func() { s.hooks.OnError(err) })
	}
}

// HandleStart applies a start or sync message.
func (s *Synchronizer) HandleStart(d protocol.StartData) {
	s.mu.Lock()
	defer s.unlock()

	if s.closed || s.state == Ended {
		return
	}

	if !s.ready {
		pos := d.Time
		s.queued = &pos
		s.queuedState = nil
		s.startPending = true
		s.startAt = d.StartAt
		return
	}

	delay := StartDelay(d.StartAt, s.clock.Now())
	if delay <= 0 {
		s.seek(d.Time)
		s.play()
		return
	}

	s.logger.Debug("start scheduled", "time", d.Time, "delay_ms", delay.Milliseconds())
	s.schedule(delay, d.Time, true)
}

// HandleUpdate applies a periodic host update. Hosts ignore updates.
func (s *Synchronizer) HandleUpdate(u protocol.PlayerUpdate) {
	s.mu.Lock()
	defer s.unlock()

	if s.closed || s.isHost || s.state == Ended {
		return
	}

	if !s.ready {
		pos := u.Data.Time
		s.queued = &pos
		if u.Data.State != nil {
			st := *u.Data.State
			s.queuedState = &st
			// The latest state wins over a start queued before it.
			s.startPending = false
			s.startAt = 0
		}
		return
	}

	remote := u.Data.Time
	switch s.state {
	case Playing:
		if u.Data.State != nil && *u.Data.State == protocol.StatePaused {
			s.setPlaying(false)
			s.transition(Paused)
		}
		s.correct(remote)
	case Paused:
		if u.Data.State != nil && *u.Data.State == protocol.StatePlaying {
			s.correct(remote)
			s.play()
		}
	case WaitingForHostStart:
		if u.Data.State == nil {
			return
		}
		s.correct(remote)
		if *u.Data.State == protocol.StatePlaying {
			s.play()
		} else {
			s.transition(Paused)
		}
	}
}

// HandleStreamEnded moves a guest to the terminal state.
func (s *Synchronizer) HandleStreamEnded() {
	s.mu.Lock()
	defer s.unlock()

	if s.closed || s.isHost || s.state == Ended {
		return
	}

	s.stopTimers()
	s.clearPending()
	if s.ready {
		s.setPlaying(false)
	}
	s.isPlaying = false
	s.transition(Ended)
}

// SetPlaying is the host's local play/pause control.
func (s *Synchronizer) SetPlaying(playing bool) error {
	s.mu.Lock()
	defer s.unlock()

	switch {
	case s.closed:
		return ErrClosed
	case !s.isHost:
		return ErrNotHost
	case !s.ready:
		return ErrNotReady
	}

	if playing == (s.state == Playing) {
		return nil
	}

	s.position = s.player.CurrentTime()
	if playing {
		s.play()
	} else {
		s.setPlaying(false)
		s.transition(Paused)
	}
	s.emit(s.clock.Now())

	return nil
}

func (s *Synchronizer) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	s.mu.Lock()
	defer s.unlock()

	s.volume = volume
	if ac, ok := s.player.(AudioControl); ok && s.ready {
		ac.SetVolume(volume)
	}
}

func (s *Synchronizer) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.unlock()

	s.muted = muted
	if ac, ok := s.player.(AudioControl); ok && s.ready {
		ac.SetMuted(muted)
	}
}

// Close cancels pending starts. The player is never touched afterwards.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.unlock()

	s.closed = true
	s.stopTimers()
}

func (s *Synchronizer) unlock() {
	fns := s.notify
	s.notify = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Synchronizer) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.logger.Debug("playback state changed", "from", from.String(), "to", to.String())
	if s.hooks.OnStateChange != nil {
		s.notify = append(s.notify, func() { s.hooks.OnStateChange(from, to) })
	}
}

func (s *Synchronizer) seek(pos float64) {
	s.player.SeekTo(pos)
	s.position = pos
}

func (s *Synchronizer) setPlaying(playing bool) {
	s.player.SetPlaying(playing)
	s.isPlaying = playing
}

func (s *Synchronizer) play() {
	s.setPlaying(true)
	s.started = true
	s.transition(Playing)
}

// correct seeks to remote when the local position drifted past the threshold.
func (s *Synchronizer) correct(remote float64) {
	local := s.player.CurrentTime()
	if Drift(local, remote) > s.threshold {
		s.logger.Debug("correcting drift", "local", local, "remote", remote)
		s.seek(remote)
		return
	}
	s.position = local
}

func (s *Synchronizer) emit(now time.Time) {
	s.lastEmit = now
	s.emitted = true
	if s.publisher == nil {
		return
	}

	state := s.state.wire()
	volume := s.volume
	muted := s.muted
	data := protocol.UpdateData{
		Time:   s.position,
		State:  &state,
		Volume: &volume,
		Muted:  &muted,
	}
	if err := s.publisher.PublishUpdate(data); err != nil {
		s.logger.Warn("failed to publish update", "error", err)
	}
}

func (s *Synchronizer) clearPending() {
	s.queuedState = nil
	s.startPending = false
	s.startAt = 0
}

// schedule arms a fire-once start. Only Close or Ended cancels it.
func (s *Synchronizer) schedule(delay time.Duration, pos float64, seek bool) {
	s.nextTimer++
	id := s.nextTimer
	s.timers[id] = s.clock.AfterFunc(delay, func() {
		s.fire(id, pos, seek)
	})
}

func (s *Synchronizer) fire(id uint64, pos float64, seek bool) {
	s.mu.Lock()
	defer s.unlock()

	if _, ok := s.timers[id]; !ok {
		return
	}
	delete(s.timers, id)

	if s.closed || s.state == Ended {
		return
	}
	if !s.ready {
		if seek {
			s.queued = &pos
		}
		s.startPending = true
		s.startAt = 0
		return
	}

	if seek {
		s.seek(pos)
	}
	s.play()
}

func (s *Synchronizer) stopTimers() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
