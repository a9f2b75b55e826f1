package comment

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

var (
	// ErrHasChildren rejects update/delete of a comment with replies.
	ErrHasChildren = errors.New("comment: comment has children")

	// ErrParentMismatch rejects a reply attached to a different resource
	// than its parent.
	ErrParentMismatch = errors.New("comment: parent belongs to a different resource")
)

// HistoryQuery scopes a comment history read: the owner's comments under
// one resource key, optionally restricted to a creation-time window. A nil
// bound means unbounded on that side.
type HistoryQuery struct {
	OwnerID  int64
	Resource resource.Key
	DateFrom *time.Time
	DateTo   *time.Time
}

// Matches reports whether the comment satisfies the query. DateFrom and
// DateTo are inclusive bounds on the creation time.
func (q HistoryQuery) Matches(c Comment) bool {
	if c.UserID != q.OwnerID || c.Resource != q.Resource {
		return false
	}
	if q.DateFrom != nil && c.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && c.CreatedAt.After(*q.DateTo) {
		return false
	}
	return true
}

// Store is the persistence boundary for users, posts and comments. It
// doubles as the resource.Resolver the gateway and export service validate
// references against.
type Store interface {
	resource.Resolver

	// GetComment returns a comment by id, or resource.ErrNotFound.
	GetComment(ctx context.Context, id int64) (*Comment, error)

	// CreateComment persists a new comment, assigning its id, creation time
	// and nesting level (parent level + 1, or 0 for roots).
	CreateComment(ctx context.Context, c *Comment) error

	// UpdateCommentText replaces the comment's text and returns the updated
	// comment.
	UpdateCommentText(ctx context.Context, id int64, text string) (*Comment, error)

	// DeleteComment removes a comment by id.
	DeleteComment(ctx context.Context, id int64) error

	// IsLeaf reports whether the comment has no children. The tree's
	// structure stays behind this boolean capability.
	IsLeaf(ctx context.Context, id int64) (bool, error)

	// History streams the comments matching the query, ordered by creation
	// time, as lazy export records.
	History(ctx context.Context, q HistoryQuery) (export.RecordIterator, error)

	// GetPost and UpdatePostText back the post mutation path.
	GetPost(ctx context.Context, id int64) (*Post, error)
	UpdatePostText(ctx context.Context, id int64, text string) (*Post, error)
}
