package player

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/internal/media"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1280000,RESOLUTION=1280x720
720/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=640000,RESOLUTION=640x360
360/index.m3u8
`

const vodPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.000,
seg0.ts
#EXTINF:8.500,
seg1.ts
#EXT-X-ENDLIST
`

const livePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:42
#EXTINF:6.000,
seg42.ts
#EXTINF:6.000,
seg43.ts
`

func newHLSServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/hls/master.m3u8", serve(masterPlaylist))
	mux.HandleFunc("/hls/720/index.m3u8", serve(vodPlaylist))
	mux.HandleFunc("/live.m3u8", serve(livePlaylist))
	mux.HandleFunc("/broken.m3u8", serve("not a playlist"))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestHLSProber(t *testing.T) {
	srv := newHLSServer(t)
	p := NewHLSProber(srv.Client())
	ctx := context.Background()

	t.Run("master follows first variant", func(t *testing.T) {
		m, err := p.Probe(ctx, media.Source{Kind: media.KindHLS, URL: srv.URL + "/hls/master.m3u8"})
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/hls/720/index.m3u8", m.URL)
		assert.InDelta(t, 18.5, m.Duration, 1e-9)
		assert.False(t, m.Live)
	})

	t.Run("live media playlist", func(t *testing.T) {
		m, err := p.Probe(ctx, media.Source{Kind: media.KindHLS, URL: srv.URL + "/live.m3u8"})
		require.NoError(t, err)
		assert.True(t, m.Live)
		assert.InDelta(t, 12.0, m.Duration, 1e-9)
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := p.Probe(ctx, media.Source{Kind: media.KindHLS, URL: srv.URL + "/nope.m3u8"})
		assert.ErrorIs(t, err, ErrManifestRequest)
	})

	t.Run("undecodable manifest", func(t *testing.T) {
		_, err := p.Probe(ctx, media.Source{Kind: media.KindHLS, URL: srv.URL + "/broken.m3u8"})
		assert.Error(t, err)
	})

	t.Run("youtube is not fetched", func(t *testing.T) {
		m, err := p.Probe(ctx, media.Source{Kind: media.KindYouTube, URL: "https://youtu.be/abc"})
		require.NoError(t, err)
		assert.Equal(t, "https://youtu.be/abc", m.URL)
		assert.Zero(t, m.Duration)
	})
}
