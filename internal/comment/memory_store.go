package comment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// MemoryStore implements Store in memory for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]*User
	posts    map[int64]*Post
	comments map[int64]*Comment
	nextID   int64
}

// NewMemoryStore creates an empty in-memory entity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*User),
		posts:    make(map[int64]*Post),
		comments: make(map[int64]*Comment),
		nextID:   1,
	}
}

// AddUser seeds a user and returns it with an assigned id.
func (s *MemoryStore) AddUser(username string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &User{ID: s.nextID, Username: username}
	s.nextID++
	s.users[u.ID] = u
	return u
}

// AddPost seeds a post and returns it with an assigned id.
func (s *MemoryStore) AddPost(text string) *Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Post{ID: s.nextID, Text: text}
	s.nextID++
	s.posts[p.ID] = p
	return p
}

// Resolve implements resource.Resolver.
func (s *MemoryStore) Resolve(ctx context.Context, key resource.Key) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ok bool
	switch key.Kind {
	case resource.KindUser:
		_, ok = s.users[key.ID]
	case resource.KindPost:
		_, ok = s.posts[key.ID]
	case resource.KindComment:
		_, ok = s.comments[key.ID]
	default:
		return fmt.Errorf("%w: %q", resource.ErrUnknownKind, key.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: %q", resource.ErrNotFound, key)
	}
	return nil
}

// GetComment returns a copy of the comment by id.
func (s *MemoryStore) GetComment(ctx context.Context, id int64) (*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

// CreateComment persists a new comment.
func (s *MemoryStore) CreateComment(ctx context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Level = 0
	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok {
			return fmt.Errorf("%w: comment %d", resource.ErrNotFound, *c.ParentID)
		}
		if parent.Resource != c.Resource {
			return ErrParentMismatch
		}
		c.Level = parent.Level + 1
	}

	c.ID = s.nextID
	s.nextID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

// UpdateCommentText replaces the comment's text.
func (s *MemoryStore) UpdateCommentText(ctx context.Context, id int64, text string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	c.Text = text

	cp := *c
	return &cp, nil
}

// DeleteComment removes the comment by id.
func (s *MemoryStore) DeleteComment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	delete(s.comments, id)
	return nil
}

// IsLeaf reports whether the comment has no children.
func (s *MemoryStore) IsLeaf(ctx context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.comments[id]; !ok {
		return false, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			return false, nil
		}
	}
	return true, nil
}

// History streams the matching comments ordered by creation time.
func (s *MemoryStore) History(ctx context.Context, q HistoryQuery) (export.RecordIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Comment, 0)
	for _, c := range s.comments {
		if q.Matches(*c) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	records := make([]export.Record, len(matched))
	for i, c := range matched {
		records[i] = c.Record()
	}
	return export.NewSliceIterator(records), nil
}

// GetPost returns a copy of the post by id.
func (s *MemoryStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: post %d", resource.ErrNotFound, id)
	}
	pp := *p
	return &pp, nil
}

// UpdatePostText replaces the post's text.
func (s *MemoryStore) UpdatePostText(ctx context.Context, id int64, text string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: post %d", resource.ErrNotFound, id)
	}
	p.Text = text

	pp := *p
	return &pp, nil
}
