package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/commenthub/internal/comment"
	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
	"github.com/dmitrymomot/commenthub/internal/validation"
)

// createCommentRequest is the POST /comments body.
type createCommentRequest struct {
	Text         string `json:"text"`
	ParentID     *int64 `json:"parent"`
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
}

// updateTextRequest is the PATCH body for comments and posts.
type updateTextRequest struct {
	Text string `json:"text"`
}

// handleCreateComment creates a comment (or a reply) as the calling user.
func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var body createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	c, err := h.comments.CreateComment(r.Context(), comment.CreateCommentInput{
		UserID:       principal.UserID,
		Text:         body.Text,
		ParentID:     body.ParentID,
		ResourceType: body.ResourceType,
		ResourceID:   body.ResourceID,
	})
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateComment replaces the text of the caller's leaf comment.
func (h *Handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !h.requireCommentOwner(w, r, id, principal.UserID) {
		return
	}

	var body updateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	c, err := h.comments.UpdateComment(r.Context(), id, body.Text)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteComment removes the caller's leaf comment.
func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !h.requireCommentOwner(w, r, id, principal.UserID) {
		return
	}

	if err := h.comments.DeleteComment(r.Context(), id); err != nil {
		h.writeMutationError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUpdatePost replaces a post's text.
func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePrincipal(w, r); !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body updateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	p, err := h.comments.UpdatePost(r.Context(), id, body.Text)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// requireCommentOwner loads the comment and rejects callers that do not own
// it. Missing and foreign comments answer identically.
func (h *Handler) requireCommentOwner(w http.ResponseWriter, r *http.Request, id, userID int64) bool {
	c, err := h.comments.GetComment(r.Context(), id)
	if err != nil {
		h.writeMutationError(w, r, err)
		return false
	}
	if c.UserID != userID {
		writeError(w, http.StatusNotFound, "comment not found")
		return false
	}
	return true
}

// writeMutationError maps service errors to HTTP answers.
func (h *Handler) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeFieldErrors(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, resource.ErrNotFound):
		writeError(w, http.StatusNotFound, "comment not found")
	case errors.Is(err, comment.ErrHasChildren):
		writeError(w, http.StatusConflict, "comment with replies cannot be changed")
	default:
		h.log.ErrorContext(r.Context(), "comment mutation failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses the {id} path segment, answering 404 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}
