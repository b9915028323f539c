package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name" validate:"required"`
	State string  `json:"state,omitempty" validate:"omitempty,oneof=playing paused"`
	Ratio float64 `json:"ratio" validate:"gte=0,lte=1"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(sample{Name: "a", State: "paused", Ratio: 0.5})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(sample{State: "rewinding", Ratio: 2})
	require.False(t, ok)
	require.Len(t, errs, 3)
	assert.Equal(t, "sample.name", errs[0].Field)
	assert.Equal(t, "REQUIRED", errs[0].Code)
	assert.Equal(t, "name is required", errs[0].Message)
	assert.Equal(t, "ONEOF", errs[1].Code)
	assert.Equal(t, "LTE", errs[2].Code)
}

func TestStruct(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Struct(sample{Name: "a"}))

	err := v.Struct(sample{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 1)
}
