package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/streamhive/watchparty/internal/session"
	"github.com/streamhive/watchparty/pkg/validator"
)

const DefaultBaseURL = "https://backend-streamhive.onrender.com"

var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

type Config struct {
	BaseURL      string
	CatalogueURL string
	HTTP         *http.Client
	Logger       *slog.Logger
	CatalogueTTL time.Duration
	Clock        clock.Clock
}

type Client struct {
	baseURL      string
	catalogueURL string
	http         *http.Client
	logger       *slog.Logger
	validate     *validator.Validator

	mu      sync.RWMutex
	session session.Session

	catalogue *catalogueCache
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CatalogueURL == "" {
		cfg.CatalogueURL = strings.TrimRight(cfg.BaseURL, "/") + "/api/contents"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CatalogueTTL <= 0 {
		cfg.CatalogueTTL = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		catalogueURL: cfg.CatalogueURL,
		http:         cfg.HTTP,
		logger:       cfg.Logger,
		validate:     validator.NewValidator(),
		catalogue:    &catalogueCache{ttl: cfg.CatalogueTTL, clock: cfg.Clock},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetSession sets the credentials attached to every request.
func (c *Client) SetSession(s session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = s
}

func (c *Client) Session() session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.session
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			return err
		}
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := c.Session().AuthHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	return apiErr
}
