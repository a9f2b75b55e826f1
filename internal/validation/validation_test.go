package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/validation"
)

func TestFieldErrors(t *testing.T) {
	t.Parallel()

	t.Run("add accumulates per field", func(t *testing.T) {
		t.Parallel()

		fe := validation.FieldErrors{}
		fe.Add("text", "must not be empty")
		fe.Add("text", "too long")
		fe.Add("format", "unsupported")

		assert.Equal(t, []string{"must not be empty", "too long"}, fe["text"])
		assert.False(t, fe.Empty())
	})

	t.Run("empty map yields nil error", func(t *testing.T) {
		t.Parallel()

		fe := validation.FieldErrors{}
		assert.True(t, fe.Empty())
		assert.NoError(t, fe.AsError())
	})

	t.Run("non-empty map yields a typed error", func(t *testing.T) {
		t.Parallel()

		fe := validation.FieldErrors{"format": {"unsupported"}}
		err := fe.AsError()
		require.Error(t, err)

		var verr *validation.Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, fe, verr.Fields)
	})
}

func TestError_StableRendering(t *testing.T) {
	t.Parallel()

	err := &validation.Error{Fields: validation.FieldErrors{
		"b_field": {"second"},
		"a_field": {"first", "also first"},
	}}

	want := "validation failed; a_field: first, also first; b_field: second"
	assert.Equal(t, want, err.Error())
	assert.Equal(t, want, err.Error(), "rendering does not depend on map iteration order")
}
