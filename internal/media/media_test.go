package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backend = "https://backend-streamhive.onrender.com"

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    Kind
		url     string
		proxied bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=abc", KindYouTube, "https://www.youtube.com/watch?v=abc", false},
		{"youtube short link over http is not proxied", "http://youtu.be/abc", KindYouTube, "http://youtu.be/abc", false},
		{"https hls", "https://cdn.example.com/live/index.m3u8", KindHLS, "https://cdn.example.com/live/index.m3u8", false},
		{
			"http hls goes through proxy",
			"http://203.0.113.5/movie.m3u8?token=a b",
			KindHLS,
			backend + "/api/proxy?url=http%3A%2F%2F203.0.113.5%2Fmovie.m3u8%3Ftoken%3Da+b",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Resolve(tt.raw, backend)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, src.Kind)
			assert.Equal(t, tt.url, src.URL)
			assert.Equal(t, tt.proxied, src.Proxied())
			assert.Equal(t, tt.raw, src.Original)
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	_, err := Resolve("  ", backend)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestResolveBadBackend(t *testing.T) {
	_, err := Resolve("http://example.com/a.m3u8", "::")
	assert.Error(t, err)
}

func TestShareLink(t *testing.T) {
	assert.Equal(t, "https://streamhivex.vercel.app/stream/abc123", ShareLink("https://streamhivex.vercel.app/", "abc123"))
}
