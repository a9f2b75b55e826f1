package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
	"github.com/dmitrymomot/commenthub/internal/validation"
)

var (
	// ErrStoreNil is returned by NewService without a store.
	ErrStoreNil = errors.New("comment: store cannot be nil")

	// ErrPublisherNil is returned by NewService without a publisher.
	ErrPublisherNil = errors.New("comment: publisher cannot be nil")
)

// Publisher is the broadcast capability the mutation path depends on. It is
// satisfied by realtime.Broadcaster and realtime.RedisRelay.
type Publisher interface {
	Publish(ctx context.Context, key resource.Key, data any) error
}

// Service performs entity mutations and notifies live subscribers of the
// mutated entity. The IsLeaf gate runs before anything is written, so no
// broadcast ever goes out for a rejected mutation.
type Service struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for mutation events.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a mutation service over the store, publishing updates
// through the given publisher.
func NewService(store Store, publisher Publisher, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if publisher == nil {
		return nil, ErrPublisherNil
	}

	s := &Service{
		store:     store,
		publisher: publisher,
		log:       logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CreateCommentInput is the client input for a new comment.
type CreateCommentInput struct {
	UserID       int64
	Text         string
	ParentID     *int64
	ResourceType string
	ResourceID   int64
}

// CreateComment validates the input and persists a new comment. A reply
// must reference a parent attached to the same resource.
func (s *Service) CreateComment(ctx context.Context, in CreateCommentInput) (*Comment, error) {
	fieldErrs := validation.FieldErrors{}

	kind, err := resource.ParseKind(in.ResourceType)
	if err != nil {
		fieldErrs.Add("resource_type", "must be a known resource kind")
	}
	if in.ResourceID <= 0 {
		fieldErrs.Add("resource_id", "must be a positive integer")
	}
	if in.Text == "" {
		fieldErrs.Add("text", "must not be empty")
	}
	if in.UserID <= 0 {
		fieldErrs.Add("user", "must be a positive integer")
	}
	if !fieldErrs.Empty() {
		return nil, fieldErrs.AsError()
	}

	key := resource.NewKey(kind, in.ResourceID)
	if err := s.store.Resolve(ctx, key); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			fieldErrs.Add("resource_id", fmt.Sprintf("object %q does not exist", key))
			return nil, fieldErrs.AsError()
		}
		return nil, fmt.Errorf("comment: failed to resolve %q: %w", key, err)
	}

	if in.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, resource.ErrNotFound) {
				fieldErrs.Add("parent", fmt.Sprintf("comment %d does not exist", *in.ParentID))
				return nil, fieldErrs.AsError()
			}
			return nil, err
		}
		if parent.Resource != key {
			fieldErrs.Add("resource_id", "must be the same as the parent comment's resource")
			return nil, fieldErrs.AsError()
		}
	}

	c := &Comment{
		UserID:   in.UserID,
		Text:     in.Text,
		ParentID: in.ParentID,
		Resource: key,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("comment: failed to create comment: %w", err)
	}

	s.log.InfoContext(ctx, "comment created",
		logger.ID("comment_id", c.ID),
		logger.UserID(c.UserID),
		logger.ID("resource", key.String()))

	// Subscribers of the commented entity see the new comment.
	s.notify(ctx, key, c.Record())
	return c, nil
}

// GetComment returns the comment by id.
func (s *Service) GetComment(ctx context.Context, id int64) (*Comment, error) {
	return s.store.GetComment(ctx, id)
}

// UpdateComment replaces a leaf comment's text and notifies subscribers of
// that comment. A comment with children cannot be updated.
func (s *Service) UpdateComment(ctx context.Context, id int64, text string) (*Comment, error) {
	if text == "" {
		return nil, validation.FieldErrors{"text": {"must not be empty"}}.AsError()
	}

	if err := s.requireLeaf(ctx, id); err != nil {
		return nil, err
	}

	c, err := s.store.UpdateCommentText(ctx, id, text)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, c.Key(), c.Record())
	return c, nil
}

// DeleteComment removes a leaf comment. A comment with children cannot be
// deleted.
func (s *Service) DeleteComment(ctx context.Context, id int64) error {
	if err := s.requireLeaf(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, id)
}

// UpdatePost replaces a post's text and notifies subscribers of the post.
func (s *Service) UpdatePost(ctx context.Context, id int64, text string) (*Post, error) {
	if text == "" {
		return nil, validation.FieldErrors{"text": {"must not be empty"}}.AsError()
	}

	p, err := s.store.UpdatePostText(ctx, id, text)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, resource.NewKey(resource.KindPost, p.ID), p)
	return p, nil
}

// requireLeaf enforces the tree precondition on mutations. The tree's
// internals stay opaque here; only the boolean capability is consulted.
func (s *Service) requireLeaf(ctx context.Context, id int64) error {
	leaf, err := s.store.IsLeaf(ctx, id)
	if err != nil {
		return err
	}
	if !leaf {
		return ErrHasChildren
	}
	return nil
}

// notify publishes an update event. Delivery is best-effort: a broadcast
// fault is logged, never propagated to the mutation caller.
func (s *Service) notify(ctx context.Context, key resource.Key, data any) {
	if err := s.publisher.Publish(ctx, key, data); err != nil {
		s.log.ErrorContext(ctx, "failed to publish update",
			logger.ID("resource", key.String()),
			logger.Error(err))
	}
}
