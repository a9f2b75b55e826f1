package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/commenthub/internal/auth"
	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/filestore"
	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/validation"
)

// createExportRequest is the POST /exports body.
type createExportRequest struct {
	ResourceType string     `json:"resource_type"`
	ResourceID   int64      `json:"resource_id"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Format       string     `json:"format"`
}

// exportResponse is the job representation returned to clients. The nested
// resource key is flattened and the internal error detail stays hidden.
type exportResponse struct {
	ID           uuid.UUID     `json:"id"`
	ResourceType string        `json:"resource_type"`
	ResourceID   int64         `json:"resource_id"`
	DateFrom     *time.Time    `json:"date_from,omitempty"`
	DateTo       *time.Time    `json:"date_to,omitempty"`
	Format       export.Format `json:"format"`
	Status       export.Status `json:"status"`
	File         *string       `json:"file,omitempty"`
	Created      time.Time     `json:"created"`
	ProcessedAt  *time.Time    `json:"processed_at,omitempty"`
}

func newExportResponse(job *export.Job) exportResponse {
	return exportResponse{
		ID:           job.ID,
		ResourceType: string(job.Resource.Kind),
		ResourceID:   job.Resource.ID,
		DateFrom:     job.DateFrom,
		DateTo:       job.DateTo,
		Format:       job.Format,
		Status:       job.Status,
		File:         job.FileRef,
		Created:      job.CreatedAt,
		ProcessedAt:  job.ProcessedAt,
	}
}

// handleCreateExport accepts a new export request for the calling user.
func (h *Handler) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var body createExportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	job, err := h.exports.CreateJob(r.Context(), export.CreateRequest{
		OwnerID:      principal.UserID,
		ResourceType: body.ResourceType,
		ResourceID:   body.ResourceID,
		DateFrom:     body.DateFrom,
		DateTo:       body.DateTo,
		Format:       body.Format,
	})
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeFieldErrors(w, http.StatusBadRequest, verr.Fields)
			return
		}
		h.log.ErrorContext(r.Context(), "export creation failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, newExportResponse(job))
}

// handleGetExport returns the current state of the caller's job. Jobs owned
// by other users are indistinguishable from missing ones.
func (h *Handler) handleGetExport(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	job, ok := h.lookupJob(w, r, principal)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newExportResponse(job))
}

// handleGetExportFile streams the finished document. Until the job reaches
// the success status there is no file to serve and the route answers 404.
func (h *Handler) handleGetExportFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	job, ok := h.lookupJob(w, r, principal)
	if !ok {
		return
	}

	if job.Status != export.StatusSuccess || job.FileRef == nil {
		writeError(w, http.StatusNotFound, "export file is not ready")
		return
	}

	file, err := h.files.Open(r.Context(), *job.FileRef)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "export file is not ready")
			return
		}
		h.log.ErrorContext(r.Context(), "export file open failed",
			logger.JobID(job.ID.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer file.Close() //nolint:errcheck

	w.Header().Set("Content-Type", job.Format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", job.FileName()))
	if _, err := io.Copy(w, file); err != nil {
		h.log.WarnContext(r.Context(), "export file stream interrupted",
			logger.JobID(job.ID.String()), logger.Error(err))
	}
}

// lookupJob resolves the path id to a job owned by the principal, writing
// the error response itself when it cannot.
func (h *Handler) lookupJob(w http.ResponseWriter, r *http.Request, principal auth.Principal) (*export.Job, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "export job not found")
		return nil, false
	}

	job, err := h.exports.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, export.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "export job not found")
			return nil, false
		}
		h.log.ErrorContext(r.Context(), "export lookup failed",
			logger.JobID(id.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if job.OwnerID != principal.UserID {
		writeError(w, http.StatusNotFound, "export job not found")
		return nil, false
	}
	return job, true
}
