// Package wschannel is a persistent event channel over a websocket. It keeps
// dialing with a backoff policy until closed, queues emits while disconnected
// and delivers inbound events to listeners in arrival order.
package wschannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/streamhive/watchparty/pkg/wsrouter"
)

var ErrClosed = errors.New("channel closed")

const (
	defaultQueueSize  = 256
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = 54 * time.Second
)

// SendFunc writes one event directly on the current connection.
type SendFunc func(event string, payload any) error

type Options struct {
	Header http.Header
	Dialer *websocket.Dialer
	// NewBackOff builds the reconnect policy; DefaultBackOff when nil.
	NewBackOff func() backoff.BackOff
	QueueSize  int
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	// OnConnect runs on every established connection before queued emits are flushed.
	OnConnect func(send SendFunc) error
	Logger    *slog.Logger
}

// DefaultBackOff retries forever with 1s..5s exponential delays.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 5 * time.Second
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

type listener struct {
	id uint64
	fn func(json.RawMessage)
}

type Channel struct {
	url    string
	opts   Options
	logger *slog.Logger

	queue chan []byte

	mu        sync.RWMutex
	listeners map[string][]listener
	nextID    uint64

	connected atomic.Bool
	closed    atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// Dial starts connecting to url in the background and returns immediately.
func Dial(ctx context.Context, url string, opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Channel{
		url:       url,
		opts:      opts,
		logger:    logger.With("url", url),
		queue:     make(chan []byte, opts.QueueSize),
		listeners: make(map[string][]listener),
		done:      make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	go c.run()

	return c
}

func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Emit queues an event for delivery. When the queue is full the oldest frame is dropped.
func (c *Channel) Emit(event string, payload any) error {
	if c.closed.Load() {
		return ErrClosed
	}

	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	for {
		select {
		case c.queue <- frame:
			return nil
		default:
		}

		select {
		case dropped := <-c.queue:
			c.logger.Warn("send queue full, dropping oldest frame", "size", len(dropped))
		default:
		}
	}
}

// On registers fn for event. fn runs on the reader goroutine.
func (c *Channel) On(event string, fn func(payload json.RawMessage)) (off func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[event] = append(c.listeners[event], listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		ls := c.listeners[event]
		for i, l := range ls {
			if l.id == id {
				c.listeners[event] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(c.listeners[event]) == 0 {
			delete(c.listeners, event)
		}
	}
}

// Close stops reconnecting, closes the current connection and waits for the loop to exit.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
	})
	<-c.done

	return nil
}

func encode(event string, payload any) ([]byte, error) {
	env := wsrouter.Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		env.Data = data
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return frame, nil
}

func (c *Channel) run() {
	defer close(c.done)

	b := c.opts.NewBackOff()
	for {
		conn, _, err := c.opts.Dialer.DialContext(c.ctx, c.url, c.opts.Header)
		if err == nil {
			b.Reset()
			c.serve(conn)
		} else if c.ctx.Err() == nil {
			c.logger.Debug("dial failed", "error", err)
		}

		if c.ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			c.logger.Warn("reconnect policy exhausted")
			return
		}

		t := time.NewTimer(wait)
		select {
		case <-c.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (c *Channel) serve(conn *websocket.Conn) {
	defer conn.Close()

	if c.opts.OnConnect != nil {
		send := func(event string, payload any) error {
			frame, err := encode(event, payload)
			if err != nil {
				return err
			}
			conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			return conn.WriteMessage(websocket.TextMessage, frame)
		}
		if err := c.opts.OnConnect(send); err != nil {
			c.logger.Warn("connect hook failed", "error", err)
			return
		}
	}

	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Debug("connected")

	connCtx, stop := context.WithCancel(c.ctx)
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump(connCtx, conn)
	}()

	c.readPump(conn)

	stop()
	conn.Close()
	<-writeDone
	c.logger.Debug("disconnected")
}

func (c *Channel) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.ctx.Err() == nil {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}

		var env wsrouter.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}

		c.deliver(env)
	}
}

func (c *Channel) deliver(env wsrouter.Envelope) {
	c.mu.RLock()
	ls := append([]listener(nil), c.listeners[env.Event]...)
	c.mu.RUnlock()

	for _, l := range ls {
		l.fn(env.Data)
	}
}

func (c *Channel) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		case frame := <-c.queue:
			conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write failed", "error", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
