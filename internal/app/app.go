package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/streamhive/watchparty/internal/api"
	"github.com/streamhive/watchparty/internal/media"
	"github.com/streamhive/watchparty/internal/player"
	"github.com/streamhive/watchparty/internal/session"
	"github.com/streamhive/watchparty/internal/stream"
	"github.com/streamhive/watchparty/internal/transport"
	"github.com/streamhive/watchparty/pkg/ctxlogger"
	"github.com/streamhive/watchparty/pkg/validator"
	"github.com/streamhive/watchparty/pkg/ytvideodata"
)

const (
	DefaultShareBase = "https://streamhivex.vercel.app"
	socketPath       = "/api/v1/ws"
)

var ErrNotLoggedIn = errors.New("not logged in")

type Config struct {
	BackendURL string `json:"backend_url" mapstructure:"backend-url" validate:"required,url"`
	SocketURL  string `json:"socket_url" mapstructure:"socket-url" validate:"omitempty,url"`
	ShareBase  string `json:"share_base" mapstructure:"share-base" validate:"required,url"`
	DataDir    string `json:"data_dir" mapstructure:"data-dir" validate:"required"`
	LogLevel   string `json:"log_level" mapstructure:"log-level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

func (cfg *Config) Validate() error {
	return validator.NewValidator().Struct(cfg)
}

// Socket returns the configured socket url or derives it from the backend url.
func (cfg *Config) Socket() string {
	if cfg.SocketURL != "" {
		return cfg.SocketURL
	}

	u := strings.TrimRight(cfg.BackendURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	return u + socketPath
}

// NewLogger builds the JSON logger carrying context attributes.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// App is the client side of StreamHive: backend calls, the stored session and stream views.
type App struct {
	cfg     *Config
	api     *api.Client
	store   *session.Store
	youtube ytvideodata.Client
	http    *http.Client
	logger  *slog.Logger
}

type Options struct {
	HTTP    *http.Client
	YouTube ytvideodata.Client
}

func New(cfg *Config, logger *slog.Logger, opts *Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.YouTube.HTTP == nil {
		opts.YouTube.HTTP = opts.HTTP
	}

	store, err := session.Open(filepath.Join(cfg.DataDir, "session"))
	if err != nil {
		return nil, err
	}

	client := api.New(api.Config{
		BaseURL: cfg.BackendURL,
		HTTP:    opts.HTTP,
		Logger:  logger,
	})

	sess, err := store.Load()
	switch {
	case err == nil:
		client.SetSession(sess)
	case !errors.Is(err, session.ErrNoSession):
		logger.Warn("failed to load session", "error", err)
	}

	return &App{
		cfg:     cfg,
		api:     client,
		store:   store,
		youtube: opts.YouTube,
		http:    opts.HTTP,
		logger:  logger,
	}, nil
}

func (a *App) Session() session.Session { return a.api.Session() }

func (a *App) Login(ctx context.Context, params *api.LoginParams) (session.Session, error) {
	sess, err := a.api.Login(ctx, params)
	if err != nil {
		return session.Session{}, err
	}

	return sess, a.store.Save(sess)
}

func (a *App) Register(ctx context.Context, params *api.RegisterParams) (session.Session, error) {
	sess, err := a.api.Register(ctx, params)
	if err != nil {
		return session.Session{}, err
	}

	return sess, a.store.Save(sess)
}

func (a *App) Logout() error {
	a.api.SetSession(session.Session{})
	return a.store.Clear()
}

func (a *App) requireSession() error {
	if !a.Session().Valid(time.Now()) {
		return ErrNotLoggedIn
	}
	return nil
}

// CreateStream checks YouTube links before creating the stream on the backend.
func (a *App) CreateStream(ctx context.Context, params *api.CreateStreamParams) (api.StreamDetails, error) {
	if err := a.requireSession(); err != nil {
		return api.StreamDetails{}, err
	}
	if media.IsYouTube(params.VideoURL) {
		if _, err := ytvideodata.ParseVideoID(params.VideoURL); err != nil {
			return api.StreamDetails{}, err
		}
	}

	return a.api.CreateStream(ctx, params)
}

func (a *App) DeleteStream(ctx context.Context, id string) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	return a.api.DeleteStream(ctx, id)
}

// VideoTitle looks up the title of a YouTube link. Other sources have none.
func (a *App) VideoTitle(ctx context.Context, rawURL string) (string, error) {
	if !media.IsYouTube(rawURL) {
		return "", nil
	}

	id, err := ytvideodata.ParseVideoID(rawURL)
	if err != nil {
		return "", err
	}

	data, err := a.youtube.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get video data: %w", err)
	}

	return data.Title, nil
}

func (a *App) ShareLink(streamID string) string {
	return media.ShareLink(a.cfg.ShareBase, streamID)
}

func (a *App) Search(ctx context.Context, query string) ([]api.SearchResult, error) {
	catalogue, err := a.api.Catalogue(ctx)
	if err != nil {
		return nil, err
	}

	return catalogue.Search(query), nil
}

// Watch mounts the stream view of id over the realtime socket.
func (a *App) Watch(ctx context.Context, id string, hooks stream.Hooks) (*stream.View, error) {
	sess := a.Session()
	username := sess.Name
	if username == "" {
		username = sess.UserID
	}

	p := player.New(player.Config{
		Prober: player.NewHLSProber(a.http),
		Logger: a.logger,
	})

	view, err := stream.Open(ctx, id, stream.Config{
		Session: sess,
		Backend: a.api,
		Dial: func(ctx context.Context, roomID string, isHost bool) (stream.Connection, error) {
			return transport.Connect(ctx, transport.Config{
				URL:      a.cfg.Socket(),
				Token:    sess.Token,
				Username: username,
				Logger:   a.logger,
			}, roomID, isHost)
		},
		Player:     p,
		BackendURL: a.cfg.BackendURL,
		ShareBase:  a.cfg.ShareBase,
		Logger:     a.logger,
		Hooks:      hooks,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	return view, nil
}

func (a *App) Close() error {
	return a.store.Close()
}
