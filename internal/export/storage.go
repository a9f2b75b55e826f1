package export

import (
	"context"

	"github.com/google/uuid"
)

// Storage persists export jobs and owns the atomicity of the claim
// transition. Implementations must guarantee that ClaimJob moves exactly one
// job from new to pending per call, and that no two callers ever claim the
// same job.
type Storage interface {
	// CreateJob stores a new job. The job arrives with status new.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns the job by id, or ErrJobNotFound.
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)

	// ClaimJob atomically transitions the oldest new job to pending and
	// returns it. Returns ErrNoJobToClaim when the backlog is empty.
	ClaimJob(ctx context.Context) (*Job, error)

	// CompleteJob transitions a pending job to success and records the file
	// reference. Returns ErrJobNotPending for any other current status.
	CompleteJob(ctx context.Context, id uuid.UUID, fileRef string) error

	// FailJob transitions a pending job to error and records the fault for
	// operators. Returns ErrJobNotPending for any other current status.
	FailJob(ctx context.Context, id uuid.UUID, errMsg string) error
}
