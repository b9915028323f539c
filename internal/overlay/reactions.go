package overlay

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultReactionTTL   = 2 * time.Second
	DefaultSweepInterval = 2 * time.Second
)

// Bounds is the on-screen area reactions float in.
type Bounds struct {
	Width  float64
	Height float64
}

type Reaction struct {
	// ID is the creation time in unix millis.
	ID        string
	Emoji     string
	User      string
	X         float64
	Y         float64
	CreatedAt time.Time
}

type ReactionsConfig struct {
	Clock  clock.Clock
	Bounds Bounds
	TTL    time.Duration
	Rand   *rand.Rand
}

type Reactions struct {
	mu     sync.Mutex
	items  []Reaction
	clock  clock.Clock
	bounds Bounds
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewReactions(cfg ReactionsConfig) *Reactions {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultReactionTTL
	}
	if cfg.Bounds.Width <= 0 {
		cfg.Bounds.Width = 1280
	}
	if cfg.Bounds.Height <= 0 {
		cfg.Bounds.Height = 720
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Reactions{
		clock:  cfg.Clock,
		bounds: cfg.Bounds,
		ttl:    cfg.TTL,
		rnd:    cfg.Rand,
	}
}

// Add places a reaction at a random horizontal position near the bottom edge.
func (r *Reactions) Add(emoji, user string) Reaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	reaction := Reaction{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Emoji:     emoji,
		User:      user,
		X:         r.rnd.Float64() * r.bounds.Width,
		Y:         r.bounds.Height - 20,
		CreatedAt: now,
	}
	r.items = append(r.items, reaction)

	return reaction
}

// Active returns the reactions still alive, oldest first.
func (r *Reactions) Active() []Reaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	active := make([]Reaction, 0, len(r.items))
	for _, item := range r.items {
		if r.alive(item, now) {
			active = append(active, item)
		}
	}

	return active
}

// Sweep drops expired reactions and reports how many were removed.
func (r *Reactions) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	kept := r.items[:0]
	for _, item := range r.items {
		if r.alive(item, now) {
			kept = append(kept, item)
		}
	}
	removed := len(r.items) - len(kept)
	for i := len(kept); i < len(r.items); i++ {
		r.items[i] = Reaction{}
	}
	r.items = kept

	return removed
}

func (r *Reactions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.items)
}

// Run sweeps on a single ticker until ctx is done.
func (r *Reactions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := r.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Reactions) alive(item Reaction, now time.Time) bool {
	return now.Sub(item.CreatedAt) < r.ttl
}
