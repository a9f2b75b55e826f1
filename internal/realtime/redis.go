package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// DefaultRelayChannel is the Redis pub/sub channel updates travel on.
const DefaultRelayChannel = "commenthub:updates"

// relayEnvelope is the wire format between instances. The instance tag lets
// a relay skip its own publications when they echo back from Redis.
type relayEnvelope struct {
	Instance     string          `json:"instance"`
	ResourceType resource.Kind   `json:"resource_type"`
	ResourceID   int64           `json:"resource_id"`
	Data         json.RawMessage `json:"data"`
}

// RedisRelay bridges local broadcasters on separate instances through a
// Redis pub/sub channel, so a mutation handled anywhere reaches subscribers
// connected everywhere. It implements Publisher and wraps a local
// Broadcaster: publishes go to local subscribers immediately and to Redis
// for everyone else.
type RedisRelay struct {
	local    *Broadcaster
	client   redis.UniversalClient
	channel  string
	instance string
	log      *slog.Logger
	closed   atomic.Bool
}

// RedisRelayOption configures a RedisRelay.
type RedisRelayOption func(*RedisRelay)

// WithRelayChannel overrides the Redis channel name.
func WithRelayChannel(channel string) RedisRelayOption {
	return func(r *RedisRelay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithRelayLogger sets the logger for relay traffic and faults.
func WithRelayLogger(log *slog.Logger) RedisRelayOption {
	return func(r *RedisRelay) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRedisRelay creates a relay around the local broadcaster.
func NewRedisRelay(local *Broadcaster, client redis.UniversalClient, opts ...RedisRelayOption) (*RedisRelay, error) {
	if local == nil {
		return nil, fmt.Errorf("realtime: local broadcaster cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("realtime: redis client cannot be nil")
	}

	r := &RedisRelay{
		local:    local,
		client:   client,
		channel:  DefaultRelayChannel,
		instance: uuid.NewString(),
		log:      logger.Discard(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Publish implements Publisher: deliver locally, then relay to the other
// instances. A Redis fault does not undo local delivery; it degrades the
// system to single-instance behavior and is reported to the caller.
func (r *RedisRelay) Publish(ctx context.Context, key resource.Key, data any) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}

	if err := r.local.Publish(ctx, key, data); err != nil {
		return err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("realtime: failed to marshal relay payload for %q: %w", key, err)
	}
	envelope, err := json.Marshal(relayEnvelope{
		Instance:     r.instance,
		ResourceType: key.Kind,
		ResourceID:   key.ID,
		Data:         raw,
	})
	if err != nil {
		return fmt.Errorf("realtime: failed to marshal relay envelope: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, envelope).Err(); err != nil {
		return fmt.Errorf("realtime: failed to relay event for %q: %w", key, err)
	}
	return nil
}

// Run subscribes to the relay channel and re-broadcasts remote events to the
// local registry until the context is cancelled. Intended for errgroup use.
func (r *RedisRelay) Run(ctx context.Context) func() error {
	return func() error {
		sub := r.client.Subscribe(ctx, r.channel)
		defer func() {
			r.closed.Store(true)
			_ = sub.Close()
		}()

		// Fail fast if the subscription could not be established.
		if _, err := sub.Receive(ctx); err != nil {
			return fmt.Errorf("realtime: failed to subscribe to relay channel %q: %w", r.channel, err)
		}

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				r.handleRemote(ctx, []byte(msg.Payload))
			}
		}
	}
}

func (r *RedisRelay) handleRemote(ctx context.Context, payload []byte) {
	var envelope relayEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		r.log.WarnContext(ctx, "malformed relay message", logger.Error(err))
		return
	}
	if envelope.Instance == r.instance {
		return
	}

	key := resource.NewKey(envelope.ResourceType, envelope.ResourceID)
	if err := r.local.Publish(ctx, key, envelope.Data); err != nil {
		r.log.WarnContext(ctx, "failed to re-broadcast relayed event",
			logger.ID("resource", key.String()),
			logger.Error(err))
	}
}
