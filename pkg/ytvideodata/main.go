package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("not a youtube video url")

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

// Client fetches video metadata. The zero value talks to youtube.com.
type Client struct {
	HTTP      *http.Client
	OEmbedURL string
	PageURL   string
}

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Get fetches metadata for videoId, falling back to the watch page when the video is not embeddable.
func (c Client) Get(ctx context.Context, videoId string) (*VideoData, error) {
	videoData, err := c.getVideoWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}

func Get(ctx context.Context, videoId string) (*VideoData, error) {
	return Client{}.Get(ctx, videoId)
}

// ParseVideoID extracts the video id from watch, short, embed and youtu.be links.
func ParseVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "music.youtube.com":
		switch {
		case segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) > 1 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live"):
			id = segments[1]
		}
	}

	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	return id, nil
}
