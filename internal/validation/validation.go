// Package validation carries per-field validation results across component
// boundaries. Both the live gateway and the export API answer bad input with
// the same shape: a map of field name to messages, reported to the caller
// without mutating any state.
package validation

import (
	"sort"
	"strings"
)

// FieldErrors maps a failing input field to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for the given field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Empty reports whether any field collected an error.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// AsError returns nil when empty, otherwise an *Error wrapping the fields.
func (fe FieldErrors) AsError() error {
	if fe.Empty() {
		return nil
	}
	return &Error{Fields: fe}
}

// Error is a validation failure carrying per-field detail. The session or
// connection that produced it remains usable.
type Error struct {
	Fields FieldErrors
}

// Error implements the error interface with a stable, sorted rendering.
func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, field := range fields {
		b.WriteString("; ")
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[field], ", "))
	}
	return b.String()
}
