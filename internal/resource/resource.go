// Package resource defines the polymorphic reference used to address any
// subscribable or exportable entity: a (kind, id) pair plus a resolver
// capability backed by the entity store.
package resource

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind names one of the entity types clients may reference. The set is a
// closed whitelist; anything else is rejected at the validation boundary.
type Kind string

const (
	KindPost    Kind = "post"
	KindUser    Kind = "user"
	KindComment Kind = "comment"
)

// Kinds returns the whitelist of referencable entity kinds.
func Kinds() []Kind {
	return []Kind{KindPost, KindUser, KindComment}
}

// Valid reports whether k names a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindUser, KindComment:
		return true
	}
	return false
}

// ParseKind converts a wire string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Key is a composite identifier naming one entity instance.
type Key struct {
	Kind Kind
	ID   int64
}

// NewKey builds a Key without validating existence; use a Resolver for that.
func NewKey(kind Kind, id int64) Key {
	return Key{Kind: kind, ID: id}
}

// String renders the key in "kind.id" form. This is also the broadcast group
// name, so it must stay stable across releases.
func (k Key) String() string {
	return string(k.Kind) + "." + strconv.FormatInt(k.ID, 10)
}

// Zero reports whether the key is the zero value.
func (k Key) Zero() bool {
	return k.Kind == "" && k.ID == 0
}

// Validation errors returned by ParseKind and Resolver implementations.
var (
	ErrUnknownKind = errors.New("unknown resource kind")
	ErrNotFound    = errors.New("resource not found")
)
