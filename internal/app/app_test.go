package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/internal/api"
	"github.com/streamhive/watchparty/internal/stream"
	"github.com/streamhive/watchparty/pkg/validator"
	"github.com/streamhive/watchparty/pkg/ytvideodata"
)

func newConfig(t *testing.T, backendURL string) *Config {
	return &Config{
		BackendURL: backendURL,
		ShareBase:  DefaultShareBase,
		DataDir:    t.TempDir(),
		LogLevel:   "debug",
	}
}

func newBackend(t *testing.T) (*httptest.Server, *int) {
	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "user": map[string]string{"id": "u1", "name": "ana"}})
	})
	mux.HandleFunc("POST /api/streams", func(w http.ResponseWriter, r *http.Request) {
		created++
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = "s1"
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("GET /api/contents", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"contents":{"Terror":{"filmes":[{"id":"1","nome":"A Casa","url":"https://cdn/a.m3u8"}]}}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, &created
}

func TestConfig(t *testing.T) {
	cfg := newConfig(t, "https://backend.example/")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "wss://backend.example/api/v1/ws", cfg.Socket())

	cfg.BackendURL = "http://localhost:3000"
	assert.Equal(t, "ws://localhost:3000/api/v1/ws", cfg.Socket())

	cfg.SocketURL = "ws://relay:8080/api/v1/ws"
	assert.Equal(t, "ws://relay:8080/api/v1/ws", cfg.Socket())

	cfg.BackendURL = ""
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.ErrorIs(t, err, validator.ErrInvalid)
	var verr *validator.Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 2)
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger(io.Discard, "warn")
	assert.NoError(t, err)

	_, err = NewLogger(io.Discard, "chatty")
	assert.Error(t, err)
}

func TestSessionPersists(t *testing.T) {
	srv, _ := newBackend(t)
	cfg := newConfig(t, srv.URL)
	ctx := context.Background()

	a, err := New(cfg, slog.Default(), nil)
	require.NoError(t, err)
	assert.Empty(t, a.Session().Token)

	sess, err := a.Login(ctx, &api.LoginParams{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	require.NoError(t, a.Close())

	a, err = New(cfg, slog.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", a.Session().Token)
	assert.Equal(t, "ana", a.Session().Name)

	require.NoError(t, a.Logout())
	assert.Empty(t, a.Session().Token)
	require.NoError(t, a.Close())

	a, err = New(cfg, slog.Default(), nil)
	require.NoError(t, err)
	assert.Empty(t, a.Session().Token)
	require.NoError(t, a.Close())
}

func TestCreateStream(t *testing.T) {
	srv, created := newBackend(t)
	ctx := context.Background()

	a, err := New(newConfig(t, srv.URL), slog.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	params := &api.CreateStreamParams{Title: "Movie night", VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", IsPublic: true}

	_, err = a.CreateStream(ctx, params)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = a.Login(ctx, &api.LoginParams{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	details, err := a.CreateStream(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "s1", details.ID)
	assert.Equal(t, "Movie night", details.Title)

	_, err = a.CreateStream(ctx, &api.CreateStreamParams{Title: "Feed", VideoURL: "https://www.youtube.com/feed/trending"})
	require.ErrorIs(t, err, ytvideodata.ErrInvalidURL)
	assert.Equal(t, 1, *created)
}

func TestVideoTitle(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		io.WriteString(w, `{"title":"Never Gonna Give You Up","author_name":"Rick Astley"}`)
	}))
	t.Cleanup(oembed.Close)

	a, err := New(newConfig(t, "https://backend.example"), slog.Default(), &Options{
		YouTube: ytvideodata.Client{OEmbedURL: oembed.URL},
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	title, err := a.VideoTitle(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", title)

	title, err = a.VideoTitle(context.Background(), "https://cdn.example/master.m3u8")
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestSearch(t *testing.T) {
	srv, _ := newBackend(t)

	a, err := New(newConfig(t, srv.URL), slog.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	results, err := a.Search(context.Background(), "casa")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Terror", results[0].Category)
	assert.Equal(t, api.ContentFilm, results[0].Kind)
}

func TestWatchRequiresSession(t *testing.T) {
	a, err := New(newConfig(t, "https://backend.example"), slog.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = a.Watch(context.Background(), "s1", stream.Hooks{})
	require.ErrorIs(t, err, api.ErrUnauthorized)
}
