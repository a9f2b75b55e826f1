// Package realtime delivers live update notifications to WebSocket clients.
//
// Three pieces cooperate:
//
//   - Registry maps a resource key to the set of connections currently
//     subscribed to it. It is the only shared mutable state between
//     connection goroutines and is safe for concurrent use.
//   - Gateway owns the per-connection protocol: it authenticates the
//     principal at connect time, validates subscribe/unsubscribe requests in
//     arrival order, and mutates the Registry on the connection's behalf.
//   - Broadcaster fans an update event out to the Registry's current members
//     for the event's resource key. Deliveries run concurrently and each
//     failure is isolated to its own connection.
//
// Delivery is at-most-once and best-effort. A subscription completed after
// the Broadcaster took its membership snapshot may miss that event, and
// nothing is buffered for disconnected clients.
//
// The Registry/Broadcaster pair is constructed once at process start and
// injected into the Gateway and into whichever collaborator performs entity
// mutations; there is no ambient global broadcast channel.
//
// For multi-instance deployments, RedisRelay bridges local broadcasters
// through a Redis pub/sub channel so every instance sees every publish.
package realtime
