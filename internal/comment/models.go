package comment

import (
	"time"

	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// User is an authenticated account that writes comments.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Post is a commentable document.
type Post struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Comment is one node of a comment tree attached to an arbitrary entity
// through its resource key. Level is the nesting depth, 0 for roots.
type Comment struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"created"`
	ParentID  *int64       `json:"parent"`
	Level     int          `json:"level"`
	Resource  resource.Key `json:"-"`
}

// Key returns the resource key addressing this comment itself, which is
// what live subscribers to the comment watch.
func (c Comment) Key() resource.Key {
	return resource.NewKey(resource.KindComment, c.ID)
}

// Record renders the comment in the canonical exported field set. The same
// shape is used for history exports and for update broadcasts.
func (c Comment) Record() export.Record {
	var parent any
	if c.ParentID != nil {
		parent = *c.ParentID
	}
	return export.Record{
		"id":           c.ID,
		"user":         c.UserID,
		"text":         c.Text,
		"created":      c.CreatedAt.UTC(),
		"parent":       parent,
		"content_type": string(c.Resource.Kind),
		"object_id":    c.Resource.ID,
		"level":        c.Level,
	}
}
