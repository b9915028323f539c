package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoSource = errors.New("no media url")

type Kind int

const (
	KindHLS Kind = iota
	KindYouTube
)

func (k Kind) String() string {
	if k == KindYouTube {
		return "youtube"
	}
	return "hls"
}

type Source struct {
	Kind Kind
	// URL is what the player loads; it differs from Original when proxied.
	URL      string
	Original string
}

func (s Source) Proxied() bool { return s.URL != s.Original }

func IsYouTube(raw string) bool {
	return strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be")
}

// Resolve picks the player kind for raw and routes plain http media through
// the backend proxy so it can be loaded from an https origin.
func Resolve(raw, backendURL string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, ErrNoSource
	}

	if IsYouTube(raw) {
		return Source{Kind: KindYouTube, URL: raw, Original: raw}, nil
	}

	src := Source{Kind: KindHLS, URL: raw, Original: raw}
	if strings.HasPrefix(raw, "http://") {
		proxied, err := ProxyURL(backendURL, raw)
		if err != nil {
			return Source{}, err
		}
		src.URL = proxied
	}

	return src, nil
}

func ProxyURL(backendURL, raw string) (string, error) {
	base, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid backend url %q", backendURL)
	}

	base.Path += "/api/proxy"
	base.RawQuery = url.Values{"url": {raw}}.Encode()

	return base.String(), nil
}

// ShareLink is the public page of a stream.
func ShareLink(base, streamID string) string {
	return strings.TrimRight(base, "/") + "/stream/" + url.PathEscape(streamID)
}
