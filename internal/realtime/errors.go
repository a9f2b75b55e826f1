package realtime

import "errors"

var (
	// ErrConnClosed is returned by Deliver when the connection has already
	// transitioned to the Closed state.
	ErrConnClosed = errors.New("realtime: connection closed")

	// ErrRegistryNil is returned by constructors that require a registry.
	ErrRegistryNil = errors.New("realtime: registry cannot be nil")

	// ErrAuthenticatorNil is returned by NewGateway without an authenticator.
	ErrAuthenticatorNil = errors.New("realtime: authenticator cannot be nil")

	// ErrResolverNil is returned by NewGateway without an entity resolver.
	ErrResolverNil = errors.New("realtime: resolver cannot be nil")

	// ErrRelayClosed is returned by RedisRelay operations after Close.
	ErrRelayClosed = errors.New("realtime: relay closed")
)
