package export

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage for tests and local development. A single
// mutex makes every transition atomic, including the claim.
type MemoryStorage struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryStorage creates an empty in-memory job storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{jobs: make(map[uuid.UUID]*Job)}
}

// CreateJob stores a new job.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return ErrJobExists
	}

	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy
	return nil
}

// GetJob returns a copy of the job by id.
func (ms *MemoryStorage) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ClaimJob transitions the oldest new job to pending. FIFO by creation time:
// exports are homogeneous, so there is no priority dimension.
func (ms *MemoryStorage) ClaimJob(ctx context.Context) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var oldest *Job
	for _, job := range ms.jobs {
		if job.Status != StatusNew {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, ErrNoJobToClaim
	}

	oldest.Status = StatusPending

	jobCopy := *oldest
	return &jobCopy, nil
}

// CompleteJob transitions a pending job to success with its file reference.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, id uuid.UUID, fileRef string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return ErrJobNotPending
	}

	now := time.Now()
	job.Status = StatusSuccess
	job.FileRef = &fileRef
	job.ProcessedAt = &now
	return nil
}

// FailJob transitions a pending job to error, recording the fault.
func (ms *MemoryStorage) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return ErrJobNotPending
	}

	now := time.Now()
	job.Status = StatusError
	job.Error = &errMsg
	job.ProcessedAt = &now
	return nil
}
