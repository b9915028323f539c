package wschannel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/pkg/wsrouter"
)

type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	received []wsrouter.Envelope
	conns    []*websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{}
	upgrader := websocket.Upgrader{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()

		for {
			var env wsrouter.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			ts.mu.Lock()
			ts.received = append(ts.received, env)
			ts.mu.Unlock()
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) events() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	events := make([]string, 0, len(ts.received))
	for _, env := range ts.received {
		events = append(events, env.Event)
	}
	return events
}

func (ts *testServer) lastConn() *websocket.Conn {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if len(ts.conns) == 0 {
		return nil
	}
	return ts.conns[len(ts.conns)-1]
}

func (ts *testServer) connCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.conns)
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

func TestConnectHookRunsBeforeQueuedEmits(t *testing.T) {
	ts := newTestServer(t)

	ch := Dial(context.Background(), ts.url(), Options{
		NewBackOff: fastBackOff,
		OnConnect: func(send SendFunc) error {
			return send("join-room", "room-1")
		},
	})
	defer ch.Close()

	require.NoError(t, ch.Emit("reaction:sent", map[string]string{"emoji": "🔥"}))

	require.Eventually(t, func() bool { return len(ts.events()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"join-room", "reaction:sent"}, ts.events())
}

func TestListenersAndOff(t *testing.T) {
	ts := newTestServer(t)

	ch := Dial(context.Background(), ts.url(), Options{NewBackOff: fastBackOff})
	defer ch.Close()

	got := make(chan string, 4)
	off := ch.On("chat:new-message", func(payload json.RawMessage) {
		got <- string(payload)
	})

	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)
	conn := ts.lastConn()
	require.NoError(t, conn.WriteJSON(wsrouter.Envelope{Event: "chat:new-message", Data: json.RawMessage(`{"text":"hi"}`)}))

	select {
	case payload := <-got:
		assert.JSONEq(t, `{"text":"hi"}`, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("listener not invoked")
	}

	off()
	require.NoError(t, conn.WriteJSON(wsrouter.Envelope{Event: "chat:new-message", Data: json.RawMessage(`{"text":"again"}`)}))
	select {
	case payload := <-got:
		t.Fatalf("listener invoked after off: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectRunsHookAgain(t *testing.T) {
	ts := newTestServer(t)

	ch := Dial(context.Background(), ts.url(), Options{
		NewBackOff: fastBackOff,
		OnConnect: func(send SendFunc) error {
			return send("join-room", "room-1")
		},
	})
	defer ch.Close()

	require.Eventually(t, func() bool { return ts.connCount() == 1 && len(ts.events()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ts.lastConn().Close()

	require.Eventually(t, func() bool { return ts.connCount() == 2 && len(ts.events()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"join-room", "join-room"}, ts.events())
}

func TestEmitAfterClose(t *testing.T) {
	ts := newTestServer(t)

	ch := Dial(context.Background(), ts.url(), Options{NewBackOff: fastBackOff})
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Emit("stream:ended", nil), ErrClosed)
	assert.False(t, ch.Connected())
}

func TestQueueDropsOldest(t *testing.T) {
	ch := Dial(context.Background(), "ws://127.0.0.1:1/unreachable", Options{
		NewBackOff: func() backoff.BackOff { return &backoff.StopBackOff{} },
		QueueSize:  2,
	})
	defer ch.Close()

	for _, e := range []string{"a", "b", "c"} {
		require.NoError(t, ch.Emit(e, nil))
	}

	var events []string
	for len(ch.queue) > 0 {
		var env wsrouter.Envelope
		require.NoError(t, json.Unmarshal(<-ch.queue, &env))
		events = append(events, env.Event)
	}
	assert.Equal(t, []string{"b", "c"}, events)
}
