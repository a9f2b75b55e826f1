package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/commenthub/internal/resource"
	"github.com/dmitrymomot/commenthub/internal/validation"
)

// Action is the operation a client requests for a resource key.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
)

// EventTypeObjectUpdated is the type tag on every outbound broadcast message.
const EventTypeObjectUpdated = "object.updated"

// Request is the inbound subscribe/unsubscribe message schema.
type Request struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	Action       Action `json:"action"`
}

// Event is the outbound broadcast message pushed to subscribed connections.
type Event struct {
	Type         string        `json:"type"`
	ResourceType resource.Kind `json:"resource_type"`
	ResourceID   int64         `json:"resource_id"`
	Data         any           `json:"data"`
}

// NewEvent builds an object.updated event for the given resource key.
func NewEvent(key resource.Key, data any) Event {
	return Event{
		Type:         EventTypeObjectUpdated,
		ResourceType: key.Kind,
		ResourceID:   key.ID,
		Data:         data,
	}
}

// Key returns the resource key the event refers to.
func (e Event) Key() resource.Key {
	return resource.NewKey(e.ResourceType, e.ResourceID)
}

// FieldErrors is the per-field validation result reported to the client
// inside an errorResponse. Validation failures never close the connection.
type FieldErrors = validation.FieldErrors

type errorResponse struct {
	Error FieldErrors `json:"error"`
}

// validate checks the request schema and resolves the referenced entity.
// Schema problems and dangling references both come back as field errors;
// only entity-store faults (not "missing") are returned as a real error.
func (r Request) validate(ctx context.Context, resolver resource.Resolver) (resource.Key, FieldErrors, error) {
	fieldErrs := FieldErrors{}

	kind, err := resource.ParseKind(r.ResourceType)
	if err != nil {
		fieldErrs.Add("resource_type", fmt.Sprintf("must be one of: %s", kindList()))
	}
	if r.ResourceID <= 0 {
		fieldErrs.Add("resource_id", "must be a positive integer")
	}
	if r.Action != ActionSubscribe && r.Action != ActionUnsubscribe {
		fieldErrs.Add("action", fmt.Sprintf("must be %q or %q", ActionSubscribe, ActionUnsubscribe))
	}
	if !fieldErrs.Empty() {
		return resource.Key{}, fieldErrs, nil
	}

	key := resource.NewKey(kind, r.ResourceID)
	if err := resolver.Resolve(ctx, key); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			fieldErrs.Add("resource_id", fmt.Sprintf("object %q does not exist", key))
			return resource.Key{}, fieldErrs, nil
		}
		return resource.Key{}, nil, fmt.Errorf("realtime: failed to resolve %q: %w", key, err)
	}

	return key, nil, nil
}

func kindList() string {
	kinds := resource.Kinds()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// decodeRequest parses raw JSON into a Request, reporting malformed framing
// as a field error on the synthetic "message" field.
func decodeRequest(data []byte) (Request, FieldErrors) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, FieldErrors{"message": {"invalid JSON payload"}}
	}
	return req, nil
}
