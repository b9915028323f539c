package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler receives every error returned by a dispatched handler.
type ErrorHandler func(ctx context.Context, event string, err error)

// Binder is anything that can register a listener for a named event.
type Binder interface {
	On(event string, fn func(payload json.RawMessage)) (off func())
}

type WSRouter struct {
	mu          sync.RWMutex
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		onError: func(ctx context.Context, event string, err error) {
			slog.WarnContext(ctx, "event handler failed", "event", event, "error", err)
		},
	}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) OnError(h ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onError = h
}

func (r *WSRouter) Handle(event string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[event] = handler
}

// Events lists the registered event names in lexical order.
func (r *WSRouter) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := maps.Keys(r.routes)
	slices.Sort(events)

	return events
}

// Dispatch runs the handler registered for event through the middleware chain.
func (r *WSRouter) Dispatch(ctx context.Context, event string, payload json.RawMessage) error {
	r.mu.RLock()
	handler, ok := r.routes[event]
	middlewares := r.middlewares
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	return handler(withEvent(ctx, event), payload)
}

func (r *WSRouter) report(ctx context.Context, event string, err error) {
	r.mu.RLock()
	onError := r.onError
	r.mu.RUnlock()

	if onError != nil {
		onError(ctx, event, err)
	}
}

// Bind registers one listener per route on b. The returned function removes all of them.
func (r *WSRouter) Bind(ctx context.Context, b Binder) (dispose func()) {
	events := r.Events()
	offs := make([]func(), 0, len(events))
	for _, event := range events {
		event := event
		offs = append(offs, b.On(event, func(payload json.RawMessage) {
			if err := r.Dispatch(ctx, event, payload); err != nil {
				r.report(ctx, event, err)
			}
		}))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, off := range offs {
				off()
			}
		})
	}
}

// ServeConn reads envelopes from conn until it fails and dispatches each of them.
// Handlers must not write to conn directly unless writes are serialized elsewhere.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if err := r.Dispatch(ctx, msg.Event, msg.Data); err != nil {
			r.report(ctx, msg.Event, err)
		}
	}
}
