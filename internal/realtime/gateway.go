package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/commenthub/internal/auth"
	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// Gateway upgrades HTTP requests to live connections and runs the
// per-connection protocol. Inbound requests on one connection are handled
// strictly in arrival order; no ordering exists across connections.
type Gateway struct {
	registry *Registry
	authn    auth.Authenticator
	resolver resource.Resolver
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	readLimit    int64
	log          *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger for connection lifecycle events.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithWriteTimeout bounds every outbound write. A consumer slower than this
// is treated as dead and its connection is closed.
func WithWriteTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if timeout > 0 {
			g.writeTimeout = timeout
		}
	}
}

// WithReadLimit caps the size of inbound messages in bytes.
func WithReadLimit(limit int64) GatewayOption {
	return func(g *Gateway) {
		if limit > 0 {
			g.readLimit = limit
		}
	}
}

// WithCheckOrigin overrides the upgrade origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) GatewayOption {
	return func(g *Gateway) {
		g.upgrader.CheckOrigin = fn
	}
}

// NewGateway creates a Gateway bound to the given registry, authenticator
// and entity resolver.
func NewGateway(registry *Registry, authn auth.Authenticator, resolver resource.Resolver, opts ...GatewayOption) (*Gateway, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if authn == nil {
		return nil, ErrAuthenticatorNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	g := &Gateway{
		registry: registry,
		authn:    authn,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeTimeout: 10 * time.Second,
		readLimit:    4 << 10,
		log:          logger.Discard(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// ServeHTTP implements http.Handler. Unauthenticated principals are rejected
// before the upgrade, so they never reach the Open state.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := g.authn.Authenticate(r)
	if err != nil {
		g.log.InfoContext(r.Context(), "connection rejected", logger.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		g.log.WarnContext(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	sock.SetReadLimit(g.readLimit)

	conn := newConn(sock, principal, g.writeTimeout)
	g.serve(r, conn)
}

// serve runs the read loop for one connection. The deferred teardown is the
// single place RemoveAll runs, so it executes exactly once per connection
// whether the peer closed gracefully or the socket died mid-write.
func (g *Gateway) serve(r *http.Request, conn *Conn) {
	ctx := r.Context()

	defer func() {
		conn.Close()
		g.registry.RemoveAll(conn)
		g.log.InfoContext(ctx, "connection closed",
			logger.ID("conn_id", conn.ID().String()),
			logger.UserID(conn.Principal().UserID))
	}()

	conn.markOpen()
	g.log.InfoContext(ctx, "connection open",
		logger.ID("conn_id", conn.ID().String()),
		logger.UserID(conn.Principal().UserID))

	for {
		msgType, data, err := conn.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.WarnContext(ctx, "read failed",
					logger.ID("conn_id", conn.ID().String()),
					logger.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := g.handleRequest(ctx, conn, data); err != nil {
			g.log.ErrorContext(ctx, "request handling failed",
				logger.ID("conn_id", conn.ID().String()),
				logger.Error(err))
			return
		}
	}
}

// handleRequest validates one inbound message and applies it to the
// registry. Validation failures are answered on the same connection and are
// not fatal; only transport or entity-store faults end the session.
func (g *Gateway) handleRequest(ctx context.Context, conn *Conn, data []byte) error {
	req, fieldErrs := decodeRequest(data)
	if fieldErrs == nil {
		var key resource.Key
		var err error
		key, fieldErrs, err = req.validate(ctx, g.resolver)
		if err != nil {
			return err
		}
		if fieldErrs == nil {
			switch req.Action {
			case ActionSubscribe:
				g.registry.Add(key, conn)
			case ActionUnsubscribe:
				g.registry.Remove(key, conn)
			}
			g.log.DebugContext(ctx, "subscription updated",
				logger.ID("conn_id", conn.ID().String()),
				logger.ID("resource", key.String()),
				logger.ID("action", string(req.Action)))
			return nil
		}
	}

	if err := conn.SendJSON(errorResponse{Error: fieldErrs}); err != nil {
		return err
	}
	return nil
}
