package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/repository/connection/inmemory"
	snapshotRedis "github.com/streamhive/watchparty/internal/relay/repository/snapshot/redis"
	"github.com/streamhive/watchparty/internal/relay/service"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

type roomSizer interface {
	RoomSize(roomID string) int
}

func newTestServer(t *testing.T) (*httptest.Server, *clock.Mock, roomSizer) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))

	connRepo := inmemory.NewRepo(nil)
	svc := service.NewService(snapshotRedis.NewRepo(rc, time.Hour, nil), connRepo, mock, nil)
	srv := httptest.NewServer(NewController(svc, prometheus.NewRegistry(), nil).GetMux())
	t.Cleanup(srv.Close)

	return srv, mock, connRepo
}

// join sends join-room and waits until the relay has registered it.
func join(t *testing.T, rooms roomSizer, c *client, roomID string) {
	t.Helper()

	before := rooms.RoomSize(roomID)
	c.send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID})
	require.Eventually(t, func() bool { return rooms.RoomSize(roomID) == before+1 }, 2*time.Second, 5*time.Millisecond)
}

type client struct {
	t      *testing.T
	conn   *websocket.Conn
	frames chan wsrouter.Envelope
}

func dial(t *testing.T, srv *httptest.Server, username string) *client {
	t.Helper()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?username=" + username
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn, frames: make(chan wsrouter.Envelope, 16)}
	go c.read()

	return c
}

// read is the only reader of conn, so waiting for silence never fails the conn.
func (c *client) read() {
	defer close(c.frames)

	for {
		var env wsrouter.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.frames <- env
	}
}

func (c *client) send(event string, payload any) {
	c.t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(wsrouter.Envelope{Event: event, Data: data}))
}

func (c *client) expect(event string, out any) {
	c.t.Helper()

	select {
	case env, ok := <-c.frames:
		require.True(c.t, ok, "connection closed while waiting for %s", event)
		require.Equal(c.t, event, env.Event)
		if out != nil {
			require.NoError(c.t, json.Unmarshal(env.Data, out))
		}
	case <-time.After(2 * time.Second):
		require.FailNow(c.t, "timed out waiting for "+event)
	}
}

func (c *client) expectSilence() {
	c.t.Helper()

	select {
	case env, ok := <-c.frames:
		if ok {
			require.FailNow(c.t, "unexpected "+env.Event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelay(t *testing.T) {
	srv, mock, rooms := newTestServer(t)

	host := dial(t, srv, "host")
	join(t, rooms, host, "room-1")

	guest := dial(t, srv, "guest")
	join(t, rooms, guest, "room-1")

	var joined protocol.UserJoined
	host.expect(protocol.EventUserJoined, &joined)
	assert.Equal(t, protocol.UserJoined{Username: "guest", RoomID: "room-1"}, joined)

	// no snapshot yet: request:sync is not answered
	guest.send(protocol.EventRequestSync, protocol.SyncRequest{RoomID: "room-1"})
	guest.expectSilence()

	startAt := mock.Now().Add(300 * time.Millisecond).UnixMilli()
	host.send(protocol.EventPlayerPlay, protocol.PlayRequest{
		RoomID: "room-1",
		Data:   protocol.StartData{Time: 12, StartAt: startAt},
	})

	var start protocol.StartData
	guest.expect(protocol.EventPlayerStart, &start)
	assert.Equal(t, protocol.StartData{Time: 12, StartAt: startAt}, start)
	host.expectSilence()

	mock.Add(2300 * time.Millisecond)
	late := dial(t, srv, "late")
	join(t, rooms, late, "room-1")
	host.expect(protocol.EventUserJoined, nil)
	guest.expect(protocol.EventUserJoined, nil)

	late.send(protocol.EventRequestSync, protocol.SyncRequest{RoomID: "room-1"})
	var sync protocol.StartData
	late.expect(protocol.EventPlayerSync, &sync)
	assert.InDelta(t, 14.0, sync.Time, 1e-9)
	assert.Equal(t, mock.Now().UnixMilli(), sync.StartAt)

	host.send(protocol.EventReaction, protocol.Reaction{Emoji: "🔥", RoomID: "room-1"})
	var reaction protocol.Reaction
	guest.expect(protocol.EventReaction, &reaction)
	assert.Equal(t, "host", reaction.User)
	late.expect(protocol.EventReaction, nil)

	resp, err := http.Post(srv.URL+"/api/v1/rooms/room-1/messages", "application/json",
		bytes.NewBufferString(`{"user":"guest","text":"hello"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	for _, c := range []*client{host, guest, late} {
		var msg protocol.ChatMessage
		c.expect(protocol.EventChatMessage, &msg)
		assert.Equal(t, "hello", msg.Text)
	}

	late.conn.Close()
	var left protocol.UserLeft
	host.expect(protocol.EventUserLeft, &left)
	assert.Equal(t, "late", left.Username)
	guest.expect(protocol.EventUserLeft, nil)

	host.send(protocol.EventStreamEnded, protocol.StreamEnded{RoomID: "room-1"})
	guest.expect(protocol.EventStreamEnded, nil)
}

func TestRelayRejectsMalformedPayload(t *testing.T) {
	srv, _, rooms := newTestServer(t)

	c := dial(t, srv, "someone")
	c.send(protocol.EventJoinRoom, "")
	c.send(protocol.EventReaction, protocol.Reaction{Emoji: "x"})
	c.send("not-an-event", nil)

	// still served after the rejected frames
	join(t, rooms, c, "room-1")
	other := dial(t, srv, "other")
	join(t, rooms, other, "room-1")
	c.expect(protocol.EventUserJoined, nil)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _, rooms := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	c := dial(t, srv, "someone")
	join(t, rooms, c, "room-1")

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), `relay_events_total{event="join-room"} 1`) &&
			strings.Contains(string(body), "relay_connections 1")
	}, 2*time.Second, 20*time.Millisecond)

	resp, err = http.Post(srv.URL+"/api/v1/rooms/room-1/messages", "application/json", bytes.NewBufferString(`{"text":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
