package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is a small durable key-value contract. Values are JSON encoded by
// the implementation.
type Store interface {
	// Get unmarshals the stored value into dest.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set marshals and stores value, replacing any previous value.
	Set(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Close() error
}
