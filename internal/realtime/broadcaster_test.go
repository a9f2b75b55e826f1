package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/resource"
)

func TestNewBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("nil registry", func(t *testing.T) {
		t.Parallel()

		b, err := NewBroadcaster(nil)
		assert.ErrorIs(t, err, ErrRegistryNil)
		assert.Nil(t, b)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		b, err := NewBroadcaster(NewRegistry())
		require.NoError(t, err)
		assert.NotNil(t, b)
	})
}

func TestBroadcaster_Publish(t *testing.T) {
	t.Parallel()

	key := resource.NewKey(resource.KindPost, 42)

	t.Run("delivers to every subscriber of the key", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		b, err := NewBroadcaster(reg)
		require.NoError(t, err)

		first, firstSock := newTestConn()
		second, secondSock := newTestConn()
		bystander, bystanderSock := newTestConn()

		reg.Add(key, first)
		reg.Add(key, second)
		reg.Add(resource.NewKey(resource.KindPost, 43), bystander)

		require.NoError(t, b.Publish(context.Background(), key, map[string]any{"text": "hi"}))

		for _, sock := range []*fakeSocket{firstSock, secondSock} {
			frames := sock.writtenFrames()
			require.Len(t, frames, 1)

			var event Event
			require.NoError(t, json.Unmarshal(frames[0], &event))
			assert.Equal(t, EventTypeObjectUpdated, event.Type)
			assert.Equal(t, resource.KindPost, event.ResourceType)
			assert.Equal(t, int64(42), event.ResourceID)
		}

		assert.Empty(t, bystanderSock.writtenFrames(), "subscribers of other keys see nothing")
	})

	t.Run("zero subscribers is a successful no-op", func(t *testing.T) {
		t.Parallel()

		b, err := NewBroadcaster(NewRegistry())
		require.NoError(t, err)

		assert.NoError(t, b.Publish(context.Background(), key, "data"))
	})

	t.Run("unserializable payload fails without deliveries", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		b, err := NewBroadcaster(reg)
		require.NoError(t, err)

		conn, sock := newTestConn()
		reg.Add(key, conn)

		err = b.Publish(context.Background(), key, make(chan int))
		assert.Error(t, err)
		assert.Empty(t, sock.writtenFrames())
	})

	t.Run("one failing connection does not block the others", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		b, err := NewBroadcaster(reg)
		require.NoError(t, err)

		broken, brokenSock := newTestConn()
		brokenSock.writeErr = errors.New("socket gone")
		healthy, healthySock := newTestConn()

		reg.Add(key, broken)
		reg.Add(key, healthy)

		require.NoError(t, b.Publish(context.Background(), key, "data"))

		assert.Len(t, healthySock.writtenFrames(), 1)
		assert.Equal(t, StateClosed, broken.State(), "failing connection is closed")
	})

	t.Run("subscriber added after snapshot misses the event", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		b, err := NewBroadcaster(reg)
		require.NoError(t, err)

		require.NoError(t, b.Publish(context.Background(), key, "early"))

		late, lateSock := newTestConn()
		reg.Add(key, late)
		assert.Empty(t, lateSock.writtenFrames())

		require.NoError(t, b.Publish(context.Background(), key, "on time"))
		assert.Len(t, lateSock.writtenFrames(), 1)
	})
}

func TestConn_Send(t *testing.T) {
	t.Parallel()

	t.Run("deliver after close returns ErrConnClosed", func(t *testing.T) {
		t.Parallel()

		conn, _ := newTestConn()
		conn.Close()

		err := conn.Deliver(NewEvent(resource.NewKey(resource.KindPost, 1), "x"))
		assert.ErrorIs(t, err, ErrConnClosed)
	})

	t.Run("write failure closes the connection", func(t *testing.T) {
		t.Parallel()

		conn, sock := newTestConn()
		sock.writeErr = errors.New("broken pipe")

		err := conn.SendJSON(map[string]string{"k": "v"})
		require.Error(t, err)
		assert.Equal(t, StateClosed, conn.State())
		assert.True(t, sock.closed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		conn, _ := newTestConn()
		conn.Close()
		conn.Close()
		assert.Equal(t, StateClosed, conn.State())
	})
}
