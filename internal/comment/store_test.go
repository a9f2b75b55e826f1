package comment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/comment"
	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

func seedStore(t *testing.T) (*comment.MemoryStore, *comment.User, *comment.Post) {
	t.Helper()

	store := comment.NewMemoryStore()
	user := store.AddUser("alice")
	post := store.AddPost("hello world")
	return store, user, post
}

func addComment(t *testing.T, store *comment.MemoryStore, userID int64, key resource.Key, text string, parent *int64, createdAt time.Time) *comment.Comment {
	t.Helper()

	c := &comment.Comment{
		UserID:    userID,
		Text:      text,
		ParentID:  parent,
		Resource:  key,
		CreatedAt: createdAt,
	}
	require.NoError(t, store.CreateComment(context.Background(), c))
	return c
}

func TestMemoryStore_Resolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, user, post := seedStore(t)

	assert.NoError(t, store.Resolve(ctx, resource.NewKey(resource.KindUser, user.ID)))
	assert.NoError(t, store.Resolve(ctx, resource.NewKey(resource.KindPost, post.ID)))

	err := store.Resolve(ctx, resource.NewKey(resource.KindPost, 999))
	assert.ErrorIs(t, err, resource.ErrNotFound)

	err = store.Resolve(ctx, resource.Key{Kind: "invoice", ID: 1})
	assert.ErrorIs(t, err, resource.ErrUnknownKind)
}

func TestMemoryStore_CreateComment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("root comment gets level zero", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		key := resource.NewKey(resource.KindPost, post.ID)

		c := addComment(t, store, user.ID, key, "root", nil, time.Time{})
		assert.NotZero(t, c.ID)
		assert.Equal(t, 0, c.Level)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("reply level is parent plus one", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		key := resource.NewKey(resource.KindPost, post.ID)

		root := addComment(t, store, user.ID, key, "root", nil, time.Time{})
		reply := addComment(t, store, user.ID, key, "reply", &root.ID, time.Time{})
		deeper := addComment(t, store, user.ID, key, "deeper", &reply.ID, time.Time{})

		assert.Equal(t, 1, reply.Level)
		assert.Equal(t, 2, deeper.Level)
	})

	t.Run("parent on a different resource is rejected", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		otherPost := store.AddPost("second post")

		root := addComment(t, store, user.ID, resource.NewKey(resource.KindPost, post.ID), "root", nil, time.Time{})

		c := &comment.Comment{
			UserID:   user.ID,
			Text:     "stray reply",
			ParentID: &root.ID,
			Resource: resource.NewKey(resource.KindPost, otherPost.ID),
		}
		assert.ErrorIs(t, store.CreateComment(ctx, c), comment.ErrParentMismatch)
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		missing := int64(404)
		c := &comment.Comment{
			UserID:   user.ID,
			Text:     "orphan",
			ParentID: &missing,
			Resource: resource.NewKey(resource.KindPost, post.ID),
		}
		assert.ErrorIs(t, store.CreateComment(ctx, c), resource.ErrNotFound)
	})
}

func TestMemoryStore_IsLeaf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, user, post := seedStore(t)
	key := resource.NewKey(resource.KindPost, post.ID)

	root := addComment(t, store, user.ID, key, "root", nil, time.Time{})
	reply := addComment(t, store, user.ID, key, "reply", &root.ID, time.Time{})

	leaf, err := store.IsLeaf(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, leaf)

	leaf, err = store.IsLeaf(ctx, reply.ID)
	require.NoError(t, err)
	assert.True(t, leaf)

	_, err = store.IsLeaf(ctx, 999)
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestMemoryStore_History(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	collect := func(t *testing.T, it export.RecordIterator) []export.Record {
		t.Helper()
		var records []export.Record
		for it.Next() {
			records = append(records, it.Record())
		}
		require.NoError(t, it.Err())
		return records
	}

	t.Run("scoped to owner and resource, ordered by creation", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		other := store.AddUser("bob")
		key := resource.NewKey(resource.KindPost, post.ID)
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		second := addComment(t, store, user.ID, key, "second", nil, base.Add(time.Hour))
		first := addComment(t, store, user.ID, key, "first", nil, base)
		addComment(t, store, other.ID, key, "not mine", nil, base.Add(2*time.Hour))

		it, err := store.History(ctx, comment.HistoryQuery{OwnerID: user.ID, Resource: key})
		require.NoError(t, err)

		records := collect(t, it)
		require.Len(t, records, 2)
		assert.Equal(t, first.ID, records[0]["id"])
		assert.Equal(t, second.ID, records[1]["id"])
		assert.Equal(t, "post", records[0]["content_type"])
		assert.Equal(t, post.ID, records[0]["object_id"])
	})

	t.Run("date window bounds are inclusive", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		key := resource.NewKey(resource.KindPost, post.ID)
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		before := addComment(t, store, user.ID, key, "before", nil, base.Add(-time.Hour))
		inside := addComment(t, store, user.ID, key, "inside", nil, base)
		after := addComment(t, store, user.ID, key, "after", nil, base.Add(time.Hour))
		_ = before
		_ = after

		from, to := base, base
		it, err := store.History(ctx, comment.HistoryQuery{
			OwnerID:  user.ID,
			Resource: key,
			DateFrom: &from,
			DateTo:   &to,
		})
		require.NoError(t, err)

		records := collect(t, it)
		require.Len(t, records, 1)
		assert.Equal(t, inside.ID, records[0]["id"])
	})

	t.Run("no matches yields an empty iterator", func(t *testing.T) {
		t.Parallel()

		store, user, post := seedStore(t)
		key := resource.NewKey(resource.KindPost, post.ID)

		it, err := store.History(ctx, comment.HistoryQuery{OwnerID: user.ID, Resource: key})
		require.NoError(t, err)
		assert.Empty(t, collect(t, it))
	})
}

func TestComment_Record(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	parentID := int64(3)
	c := comment.Comment{
		ID:        10,
		UserID:    7,
		Text:      "hello",
		CreatedAt: created,
		ParentID:  &parentID,
		Level:     1,
		Resource:  resource.NewKey(resource.KindPost, 5),
	}

	record := c.Record()
	assert.Equal(t, int64(10), record["id"])
	assert.Equal(t, int64(7), record["user"])
	assert.Equal(t, "hello", record["text"])
	assert.Equal(t, created, record["created"])
	assert.Equal(t, int64(3), record["parent"])
	assert.Equal(t, "post", record["content_type"])
	assert.Equal(t, int64(5), record["object_id"])
	assert.Equal(t, 1, record["level"])

	t.Run("nil parent stays nil", func(t *testing.T) {
		t.Parallel()

		c := comment.Comment{ID: 1}
		assert.Nil(t, c.Record()["parent"])
	})
}
