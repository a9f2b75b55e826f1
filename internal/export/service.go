package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
	"github.com/dmitrymomot/commenthub/internal/validation"
)

// CreateRequest is the client input for a new export job.
type CreateRequest struct {
	OwnerID      int64
	ResourceType string
	ResourceID   int64
	DateFrom     *time.Time
	DateTo       *time.Time
	Format       string
}

// Service owns job creation and reads. Creation is synchronous and fast: it
// validates the request, writes the job with status new and returns; the
// actual export runs on the Worker, and the requester polls GetJob.
type Service struct {
	storage  Storage
	resolver resource.Resolver
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for job creation events.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an export Service.
func NewService(storage Storage, resolver resource.Resolver, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	s := &Service{
		storage:  storage,
		resolver: resolver,
		log:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CreateJob validates the request and persists a new job. Invalid input
// comes back as a *validation.Error with per-field messages and mutates
// nothing.
func (s *Service) CreateJob(ctx context.Context, req CreateRequest) (*Job, error) {
	fieldErrs := validation.FieldErrors{}

	kind, err := resource.ParseKind(req.ResourceType)
	if err != nil {
		fieldErrs.Add("resource_type", "must be a known resource kind")
	}
	if req.ResourceID <= 0 {
		fieldErrs.Add("resource_id", "must be a positive integer")
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		fieldErrs.Add("format", fmt.Sprintf("must be one of: %s, %s", FormatJSON, FormatXML))
	}
	if req.OwnerID <= 0 {
		fieldErrs.Add("owner", "must be a positive integer")
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		fieldErrs.Add("date_from", "must not be after date_to")
	}
	if !fieldErrs.Empty() {
		return nil, fieldErrs.AsError()
	}

	key := resource.NewKey(kind, req.ResourceID)
	if err := s.resolver.Resolve(ctx, key); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			fieldErrs.Add("resource_id", fmt.Sprintf("object %q does not exist", key))
			return nil, fieldErrs.AsError()
		}
		return nil, fmt.Errorf("export: failed to resolve %q: %w", key, err)
	}

	job := &Job{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		Resource:  key,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Format:    format,
		Status:    StatusNew,
		CreatedAt: time.Now(),
	}

	if err := s.storage.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("export: failed to create job: %w", err)
	}

	s.log.InfoContext(ctx, "export job created",
		logger.JobID(job.ID.String()),
		logger.UserID(job.OwnerID),
		logger.ID("resource", key.String()),
		logger.ID("format", string(format)))

	jobCopy := *job
	return &jobCopy, nil
}

// GetJob returns the current job record by id.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.storage.GetJob(ctx, id)
}
