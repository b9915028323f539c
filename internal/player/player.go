package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/media"
)

const DefaultProgressInterval = time.Second

var ErrClosed = errors.New("player closed")

// Listener receives the player's asynchronous signals.
type Listener interface {
	OnReady()
	OnProgress(seconds float64)
	OnError(err error)
}

// Media describes a loaded source. Duration is 0 when unknown.
type Media struct {
	URL      string
	Duration float64
	Live     bool
}

type Prober interface {
	Probe(ctx context.Context, src media.Source) (Media, error)
}

type ProberFunc func(ctx context.Context, src media.Source) (Media, error)

func (f ProberFunc) Probe(ctx context.Context, src media.Source) (Media, error) { return f(ctx, src) }

type Config struct {
	Prober           Prober
	Clock            clock.Clock
	Logger           *slog.Logger
	ProgressInterval time.Duration
}

// Virtual is a headless player. Its media clock advances with the
// configured clock while playing and never passes the media duration.
type Virtual struct {
	prober   Prober
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	listener Listener
	media    *Media
	seq      uint64
	cancel   context.CancelFunc
	closed   bool

	anchorPos float64
	anchorAt  time.Time
	playing   bool
	volume    float64
	muted     bool

	ticker   *clock.Ticker
	tickDone chan struct{}
}

func New(cfg Config) *Virtual {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.Prober == nil {
		cfg.Prober = NewHLSProber(nil)
	}

	return &Virtual{
		prober:   cfg.Prober,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		interval: cfg.ProgressInterval,
		volume:   1,
	}
}

// Bind sets the listener. Signals raised before Bind are dropped.
func (v *Virtual) Bind(l Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.listener = l
}

// Load starts loading src in the background and returns immediately.
// The outcome arrives through OnReady or OnError.
func (v *Virtual) Load(src media.Source) error {
	if src.URL == "" {
		return media.ErrNoSource
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.stopTicker()
	v.seq++
	seq := v.seq
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.media = nil
	v.playing = false
	v.anchorPos = 0
	v.anchorAt = v.clock.Now()
	v.mu.Unlock()

	go v.load(ctx, seq, src)

	return nil
}

func (v *Virtual) load(ctx context.Context, seq uint64, src media.Source) {
	m, err := v.prober.Probe(ctx, src)

	v.mu.Lock()
	if v.closed || seq != v.seq {
		v.mu.Unlock()
		return
	}
	l := v.listener
	if err == nil {
		v.media = &m
	}
	v.mu.Unlock()

	if err != nil {
		v.logger.Warn("failed to load media", "url", src.URL, "error", err)
		if l != nil {
			l.OnError(fmt.Errorf("failed to load media: %w", err))
		}
		return
	}

	v.logger.Debug("media loaded", "url", m.URL, "duration", m.Duration, "live", m.Live)
	if l != nil {
		l.OnReady()
	}
}

func (v *Virtual) Media() (Media, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.media == nil {
		return Media{}, false
	}
	return *v.media, true
}

func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.position(v.clock.Now())
}

func (v *Virtual) SeekTo(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.anchorPos = v.clamp(seconds)
	v.anchorAt = v.clock.Now()
}

func (v *Virtual) SetPlaying(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || v.playing == playing {
		return
	}

	now := v.clock.Now()
	v.anchorPos = v.position(now)
	v.anchorAt = now
	v.playing = playing

	if playing {
		v.startTicker()
	} else {
		v.stopTicker()
	}
}

func (v *Virtual) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.playing
}

func (v *Virtual) SetVolume(volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.volume = min(max(volume, 0), 1)
}

func (v *Virtual) SetMuted(muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.muted = muted
}

func (v *Virtual) Volume() (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.volume, v.muted
}

func (v *Virtual) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	v.stopTicker()
}

func (v *Virtual) position(now time.Time) float64 {
	pos := v.anchorPos
	if v.playing {
		pos += now.Sub(v.anchorAt).Seconds()
	}
	return v.clamp(pos)
}

func (v *Virtual) clamp(pos float64) float64 {
	pos = max(pos, 0)
	if v.media != nil && !v.media.Live && v.media.Duration > 0 {
		pos = min(pos, v.media.Duration)
	}
	return pos
}

func (v *Virtual) startTicker() {
	v.ticker = v.clock.Ticker(v.interval)
	v.tickDone = make(chan struct{})

	go v.progress(v.ticker, v.tickDone)
}

func (v *Virtual) stopTicker() {
	if v.ticker == nil {
		return
	}
	v.ticker.Stop()
	close(v.tickDone)
	v.ticker = nil
	v.tickDone = nil
}

func (v *Virtual) progress(t *clock.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C:
			v.mu.Lock()
			l := v.listener
			pos := v.position(v.clock.Now())
			v.mu.Unlock()

			if l != nil {
				l.OnProgress(pos)
			}
		}
	}
}
