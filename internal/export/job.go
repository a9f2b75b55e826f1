package export

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/commenthub/internal/resource"
)

// Status tracks an export job through its lifecycle. The only legal path is
// new → pending → success | error; terminal states are final and nothing
// transitions a job automatically after that.
type Status string

const (
	StatusNew     Status = "new"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Job is a persistent export request. Created by a client with status new;
// mutated only by the single worker that claimed it. FileRef is set together
// with the success status and never before, so a job is never readable with
// a file reference while not successful. Error holds the fault detail for
// operators; it is not surfaced verbatim to the requester.
type Job struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     int64        `json:"owner_id"`
	Resource    resource.Key `json:"-"`
	DateFrom    *time.Time   `json:"date_from,omitempty"`
	DateTo      *time.Time   `json:"date_to,omitempty"`
	Format      Format       `json:"format"`
	Status      Status       `json:"status"`
	FileRef     *string      `json:"file,omitempty"`
	Error       *string      `json:"-"`
	CreatedAt   time.Time    `json:"created"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

// FileName is the name the exported document is stored under. Reusing the
// job id keeps names collision-free and resubmissions independent.
func (j Job) FileName() string {
	return j.ID.String() + "." + string(j.Format)
}
