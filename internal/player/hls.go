package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"

	"github.com/streamhive/watchparty/internal/media"
)

var (
	ErrEmptyPlaylist   = errors.New("playlist has no variants")
	ErrManifestRequest = errors.New("manifest request failed")
)

// HLSProber fetches the manifest of an HLS source. A master playlist is
// followed to its first variant. YouTube sources are not probed.
type HLSProber struct {
	HTTP *http.Client
}

func NewHLSProber(c *http.Client) *HLSProber {
	if c == nil {
		c = &http.Client{Timeout: 15 * time.Second}
	}
	return &HLSProber{HTTP: c}
}

func (p *HLSProber) Probe(ctx context.Context, src media.Source) (Media, error) {
	if src.Kind == media.KindYouTube {
		return Media{URL: src.URL}, nil
	}

	pl, listType, err := p.fetch(ctx, src.URL)
	if err != nil {
		return Media{}, err
	}

	manifest := src.URL
	if listType == m3u8.MASTER {
		master := pl.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 || master.Variants[0] == nil {
			return Media{}, ErrEmptyPlaylist
		}

		manifest, err = resolve(src.URL, master.Variants[0].URI)
		if err != nil {
			return Media{}, err
		}

		pl, listType, err = p.fetch(ctx, manifest)
		if err != nil {
			return Media{}, err
		}
		if listType != m3u8.MEDIA {
			return Media{}, fmt.Errorf("failed to probe %s: nested master playlist", manifest)
		}
	}

	mp := pl.(*m3u8.MediaPlaylist)

	var duration float64
	for _, seg := range mp.Segments {
		if seg == nil {
			continue
		}
		duration += seg.Duration
	}

	return Media{URL: manifest, Duration: duration, Live: !mp.Closed}, nil
}

func (p *HLSProber) fetch(ctx context.Context, u string) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, 0, fmt.Errorf("%w: %s responded %d", ErrManifestRequest, u, resp.StatusCode)
	}

	pl, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return pl, listType, nil
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse manifest url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse variant url: %w", err)
	}

	return b.ResolveReference(r).String(), nil
}
