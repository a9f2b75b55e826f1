package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/commenthub/internal/validation"
)

// writeJSON encodes v with the given status. Encoding failures are ignored:
// the status line is already on the wire and there is nothing left to do.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFieldErrors renders a per-field validation failure.
func writeFieldErrors(w http.ResponseWriter, status int, fields validation.FieldErrors) {
	writeJSON(w, status, map[string]validation.FieldErrors{"error": fields})
}

// writeError renders a single-message error under the same envelope, keyed
// by the non-field slot so clients parse one error shape everywhere.
func writeError(w http.ResponseWriter, status int, message string) {
	writeFieldErrors(w, status, validation.FieldErrors{"detail": {message}})
}
