package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// Publisher pushes an update notification for a resource key to whoever is
// currently interested. Collaborators that mutate entities depend on this
// interface, not on a concrete broadcaster.
type Publisher interface {
	Publish(ctx context.Context, key resource.Key, data any) error
}

// Broadcaster fans update events out to the registry's current members.
//
// Membership is snapshotted once per publish; a subscription completed after
// the snapshot misses the event (at-most-once, no replay). Deliveries run
// concurrently and a failure on one connection is logged and swallowed so it
// can never fail or stall the publish as a whole.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for delivery failures.
func WithBroadcasterLogger(log *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBroadcaster creates a Broadcaster bound to the given registry.
func NewBroadcaster(registry *Registry, opts ...BroadcasterOption) (*Broadcaster, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}

	b := &Broadcaster{
		registry: registry,
		log:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Publish delivers an object.updated event for key to every currently
// subscribed connection. A publish to a key with zero subscribers is a
// successful no-op. The returned error only reflects event serialization;
// per-connection delivery failures are logged, never returned.
func (b *Broadcaster) Publish(ctx context.Context, key resource.Key, data any) error {
	event := NewEvent(key, data)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: failed to marshal event for %q: %w", key, err)
	}

	members := b.registry.MembersOf(key)
	if len(members) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, conn := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := conn.send(payload); err != nil {
				b.log.WarnContext(ctx, "event delivery failed",
					logger.ID("resource", key.String()),
					logger.ID("conn_id", conn.ID().String()),
					logger.Error(err))
			}
		}()
	}
	wg.Wait()

	b.log.DebugContext(ctx, "event published",
		logger.ID("resource", key.String()),
		logger.ID("subscribers", len(members)))

	return nil
}
