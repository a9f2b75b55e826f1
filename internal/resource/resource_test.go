package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/resource"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, kind := range resource.Kinds() {
		parsed, err := resource.ParseKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := resource.ParseKind("invoice")
	assert.ErrorIs(t, err, resource.ErrUnknownKind)

	_, err = resource.ParseKind("")
	assert.ErrorIs(t, err, resource.ErrUnknownKind)

	_, err = resource.ParseKind("Post")
	assert.ErrorIs(t, err, resource.ErrUnknownKind, "kinds are case-sensitive")
}

func TestKey(t *testing.T) {
	t.Parallel()

	key := resource.NewKey(resource.KindPost, 42)
	assert.Equal(t, "post.42", key.String())
	assert.False(t, key.Zero())
	assert.True(t, resource.Key{}.Zero())

	t.Run("keys are comparable", func(t *testing.T) {
		t.Parallel()

		same := resource.NewKey(resource.KindPost, 42)
		other := resource.NewKey(resource.KindUser, 42)
		assert.Equal(t, key, same)
		assert.NotEqual(t, key, other)
	})
}
