package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/commenthub/internal/auth"
)

// State is the lifecycle phase of a live connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// socket is the subset of *websocket.Conn the connection needs. Narrowed to
// an interface so tests can exercise delivery without a network socket.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing gorilla here.
const textMessage = 1

// Conn is one live duplex channel to one authenticated principal. It is
// owned by the Gateway; every other component holds it as an opaque routing
// reference and must never manage its lifetime.
type Conn struct {
	id        uuid.UUID
	principal auth.Principal
	sock      socket

	// writeMu serializes writes: broadcast deliveries and validation error
	// responses may race on the same socket.
	writeMu      sync.Mutex
	writeTimeout time.Duration

	state     atomic.Int32
	closeOnce sync.Once
}

func newConn(sock socket, principal auth.Principal, writeTimeout time.Duration) *Conn {
	c := &Conn{
		id:           uuid.New(),
		principal:    principal,
		sock:         sock,
		writeTimeout: writeTimeout,
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Principal returns the authenticated identity behind the connection.
func (c *Conn) Principal() auth.Principal {
	return c.principal
}

// State returns the connection's current lifecycle phase.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Deliver serializes the event and writes it to the connection. A write
// failure closes the connection and is reported to the caller; the caller
// decides whether that failure matters (the Broadcaster swallows it).
func (c *Conn) Deliver(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: failed to marshal event: %w", err)
	}
	return c.send(data)
}

// SendJSON writes an arbitrary JSON payload, used for validation error
// responses on the same connection.
func (c *Conn) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: failed to marshal response: %w", err)
	}
	return c.send(data)
}

func (c *Conn) send(data []byte) error {
	if c.State() == StateClosed {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.sock.WriteMessage(textMessage, data); err != nil {
		// A half-closed or stalled socket is dead for our purposes; close it
		// so the read loop unblocks and runs teardown.
		c.Close()
		return fmt.Errorf("realtime: write to connection %s failed: %w", c.id, err)
	}
	return nil
}

// Close transitions the connection to Closed and closes the underlying
// socket. Safe to call multiple times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		_ = c.sock.Close()
	})
}

func (c *Conn) markOpen() {
	c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateOpen))
}
