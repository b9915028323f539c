package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/streamhive/watchparty/internal/protocol"
)

type StreamDetails struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Host        string `json:"host"`
	HostID      string `json:"host_id"`
	IsPublic    bool   `json:"isPublic"`
	VideoURL    string `json:"videoUrl"`
	Viewers     int    `json:"viewers"`
}

type CreateStreamParams struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"isPublic"`
	VideoURL    string `json:"videoUrl" validate:"required,url"`
}

type postMessageParams struct {
	Text   string `json:"text" validate:"required,max=1000"`
	RoomID string `json:"roomId" validate:"required"`
}

func (c *Client) streamURL(id string, rest ...string) string {
	u := c.baseURL + "/api/streams/" + url.PathEscape(id)
	for _, r := range rest {
		u += "/" + r
	}
	return u
}

func (c *Client) GetStream(ctx context.Context, id string) (StreamDetails, error) {
	var details StreamDetails
	if err := c.do(ctx, http.MethodGet, c.streamURL(id), nil, &details); err != nil {
		return StreamDetails{}, fmt.Errorf("failed to get stream: %w", err)
	}
	if details.ID == "" {
		details.ID = id
	}

	return details, nil
}

func (c *Client) CreateStream(ctx context.Context, params *CreateStreamParams) (StreamDetails, error) {
	var details StreamDetails
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/streams", params, &details); err != nil {
		return StreamDetails{}, fmt.Errorf("failed to create stream: %w", err)
	}

	return details, nil
}

func (c *Client) DeleteStream(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.streamURL(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete stream: %w", err)
	}

	return nil
}

func (c *Client) ListMessages(ctx context.Context, id string) ([]protocol.ChatMessage, error) {
	var messages []protocol.ChatMessage
	if err := c.do(ctx, http.MethodGet, c.streamURL(id, "messages"), nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// PostMessage sends a chat line. It comes back to every viewer, sender included, as chat:new-message.
func (c *Client) PostMessage(ctx context.Context, id, text string) error {
	params := &postMessageParams{Text: text, RoomID: id}
	if err := c.do(ctx, http.MethodPost, c.streamURL(id, "messages"), params, nil); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}

	return nil
}
