// Package kv defines the key-value backends the local store persists to.
package kv

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a flat string-keyed blob store.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set creates or replaces the value of key. A full store returns an error wrapping ErrQuotaExceeded.
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op when key is absent.
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
