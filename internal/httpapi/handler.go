package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/commenthub/internal/auth"
	"github.com/dmitrymomot/commenthub/internal/comment"
	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/filestore"
	"github.com/dmitrymomot/commenthub/internal/logger"
)

var (
	// ErrExportServiceNil is returned when constructing a Handler without
	// an export service.
	ErrExportServiceNil = errors.New("httpapi: export service cannot be nil")

	// ErrFileStoreNil is returned when constructing a Handler without a
	// file store.
	ErrFileStoreNil = errors.New("httpapi: file store cannot be nil")

	// ErrGatewayNil is returned when constructing a Handler without the
	// websocket gateway.
	ErrGatewayNil = errors.New("httpapi: gateway cannot be nil")

	// ErrAuthenticatorNil is returned when constructing a Handler without
	// an authenticator.
	ErrAuthenticatorNil = errors.New("httpapi: authenticator cannot be nil")

	// ErrCommentServiceNil is returned when constructing a Handler without
	// a comment service.
	ErrCommentServiceNil = errors.New("httpapi: comment service cannot be nil")
)

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(context.Context) error

// Handler bundles the HTTP routes of the service.
type Handler struct {
	exports  *export.Service
	comments *comment.Service
	files    filestore.FileStore
	gateway  http.Handler
	auth     auth.Authenticator
	checks   map[string]HealthCheck
	log      *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger used for request failures.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHealthCheck registers a named dependency probe for GET /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// NewHandler builds the HTTP surface over the given components.
func NewHandler(exports *export.Service, comments *comment.Service, files filestore.FileStore, gateway http.Handler, authn auth.Authenticator, opts ...HandlerOption) (*Handler, error) {
	if exports == nil {
		return nil, ErrExportServiceNil
	}
	if comments == nil {
		return nil, ErrCommentServiceNil
	}
	if files == nil {
		return nil, ErrFileStoreNil
	}
	if gateway == nil {
		return nil, ErrGatewayNil
	}
	if authn == nil {
		return nil, ErrAuthenticatorNil
	}

	h := &Handler{
		exports:  exports,
		comments: comments,
		files:    files,
		gateway:  gateway,
		auth:     authn,
		checks:   make(map[string]HealthCheck),
		log:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Routes returns the route table as a ready-to-serve mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /exports", h.handleCreateExport)
	mux.HandleFunc("GET /exports/{id}", h.handleGetExport)
	mux.HandleFunc("GET /exports/{id}/file", h.handleGetExportFile)
	mux.HandleFunc("POST /comments", h.handleCreateComment)
	mux.HandleFunc("PATCH /comments/{id}", h.handleUpdateComment)
	mux.HandleFunc("DELETE /comments/{id}", h.handleDeleteComment)
	mux.HandleFunc("PATCH /posts/{id}", h.handleUpdatePost)
	mux.Handle("GET /ws", h.gateway)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	return mux
}

// requirePrincipal authenticates the request, answering 401 itself when the
// caller cannot be identified.
func (h *Handler) requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

// handleHealthz runs every registered probe and reports per-dependency
// status. Any failing probe makes the whole endpoint answer 503.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.log.WarnContext(r.Context(), "health check failed",
				logger.ID("dependency", name), logger.Error(err))
			result[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}
	writeJSON(w, status, result)
}
