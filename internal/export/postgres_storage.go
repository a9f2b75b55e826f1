package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/commenthub/internal/resource"
)

// PostgresStorage implements Storage on a pgx connection pool. The claim
// uses FOR UPDATE SKIP LOCKED so concurrent workers on separate instances
// never execute the same job twice.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed job storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const jobColumns = `id, owner_id, resource_kind, resource_id, date_from, date_to,
	format, status, file_ref, error, created_at, processed_at`

// CreateJob stores a new job.
func (ps *PostgresStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNotFound
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO export_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.OwnerID, string(job.Resource.Kind), job.Resource.ID,
		job.DateFrom, job.DateTo, string(job.Format), string(job.Status),
		job.FileRef, job.Error, job.CreatedAt, job.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("export: failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns the job by id.
func (ps *PostgresStorage) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM export_jobs
		WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("export: failed to read job %s: %w", id, err)
	}
	return job, nil
}

// ClaimJob atomically transitions the oldest new job to pending.
func (ps *PostgresStorage) ClaimJob(ctx context.Context) (*Job, error) {
	row := ps.pool.QueryRow(ctx, `
		UPDATE export_jobs
		SET status = $1
		WHERE id = (
			SELECT id FROM export_jobs
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		string(StatusPending), string(StatusNew))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobToClaim
		}
		return nil, fmt.Errorf("export: failed to claim job: %w", err)
	}
	return job, nil
}

// CompleteJob transitions a pending job to success with its file reference.
func (ps *PostgresStorage) CompleteJob(ctx context.Context, id uuid.UUID, fileRef string) error {
	return ps.finalize(ctx, id, StatusSuccess, &fileRef, nil)
}

// FailJob transitions a pending job to error, recording the fault.
func (ps *PostgresStorage) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	return ps.finalize(ctx, id, StatusError, nil, &errMsg)
}

// finalize applies a terminal transition guarded on the pending status, so a
// job that is not pending (already finalized, or never claimed) is rejected.
func (ps *PostgresStorage) finalize(ctx context.Context, id uuid.UUID, status Status, fileRef, errMsg *string) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE export_jobs
		SET status = $2, file_ref = $3, error = $4, processed_at = now()
		WHERE id = $1 AND status = $5`,
		id, string(status), fileRef, errMsg, string(StatusPending))
	if err != nil {
		return fmt.Errorf("export: failed to finalize job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := ps.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return ErrJobNotPending
	}
	return nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job  Job
		kind string
	)
	err := row.Scan(
		&job.ID, &job.OwnerID, &kind, &job.Resource.ID,
		&job.DateFrom, &job.DateTo, &job.Format, &job.Status,
		&job.FileRef, &job.Error, &job.CreatedAt, &job.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Resource.Kind = resource.Kind(kind)
	return &job, nil
}
