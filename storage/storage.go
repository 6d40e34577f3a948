// Package storage defines the key/value contract the session manager
// persists OAuth session records through. Implementations are supplied by
// the host application; memstore and boltstore provide ready-made adapters.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Store is a key/value store with optional per-key TTL.
//
// Get returns (nil, nil) when the key is absent or expired — absence is not
// an error. A ttl of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionKey returns the storage key for a DID's OAuth session record.
func SessionKey(did string) string {
	return "session:" + did
}

// RefreshLockKey returns the storage key for a DID's refresh lock lease.
func RefreshLockKey(did string) string {
	return "refreshlock:" + did
}

// StorageError reports an adapter-level persistence failure. The manager
// propagates these unchanged where relevant so callers can distinguish a
// broken backend from a missing record.
type StorageError struct {
	Op  string // "get", "set" or "delete"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps an adapter failure for the given operation and key.
func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}
