package resource

import "context"

// Resolver checks that a referenced entity exists in the entity store.
// Implementations return ErrNotFound for dangling references and wrap any
// storage fault so callers can distinguish "missing" from "unavailable".
type Resolver interface {
	Resolve(ctx context.Context, key Key) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, key Key) error

func (f ResolverFunc) Resolve(ctx context.Context, key Key) error {
	return f(ctx, key)
}
