package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	volume := 0.5
	var muted *bool
	playing := true
	pp := &playing

	got := OmitNilPointers(map[string]any{
		"time":    12.5,
		"volume":  &volume,
		"muted":   muted,
		"nothing": nil,
		"nested":  &pp,
	})

	assert.Equal(t, map[string]any{
		"time":   12.5,
		"volume": 0.5,
		"nested": true,
	}, got)
}
