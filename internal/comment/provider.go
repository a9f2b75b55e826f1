package comment

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/commenthub/internal/export"
)

// HistoryProvider feeds the export worker from the comment store. Each job
// maps to one history query scoped to the job's owner and resource.
type HistoryProvider struct {
	store Store
}

// NewHistoryProvider creates the provider backing export jobs.
func NewHistoryProvider(store Store) (*HistoryProvider, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	return &HistoryProvider{store: store}, nil
}

// Records returns the comment history matching the job's filters.
func (p *HistoryProvider) Records(ctx context.Context, job export.Job) (export.RecordIterator, error) {
	it, err := p.store.History(ctx, HistoryQuery{
		OwnerID:  job.OwnerID,
		Resource: job.Resource,
		DateFrom: job.DateFrom,
		DateTo:   job.DateTo,
	})
	if err != nil {
		return nil, fmt.Errorf("comment: history query for job %s: %w", job.ID, err)
	}
	return it, nil
}

var _ export.RecordProvider = (*HistoryProvider)(nil)
