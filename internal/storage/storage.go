// Package storage abstracts the object store backing the module registry.
//
// The ObjectStore interface is the only path to physical storage; every
// other component depends on it. Implementations report "key absent" with
// ErrKeyNotFound and conditional-write conflicts with ErrKeyAlreadyExists;
// all other store-side failures are wrapped in a StoreError carrying the
// underlying cause.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks -source=storage.go ObjectStore

// DefaultURLTTL is the validity window of pre-signed URLs when the caller
// does not specify one.
const DefaultURLTTL = 15 * time.Minute

var (
	// ErrKeyNotFound is returned when an operation requires a key that
	// does not exist in the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyAlreadyExists is returned by Upload when the store's
	// conditional write detects the key is already populated.
	ErrKeyAlreadyExists = errors.New("key already exists")
)

// StoreError wraps an unexpected store-side failure (network, auth,
// throttling) with the operation and key it occurred on.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ObjectInfo describes one stored object as seen during enumeration.
// Tags carry the identity metadata attached at upload time, so listing
// endpoints can materialize module views without per-key round trips.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	Tags         map[string]string
}

// ObjectStore is the capability interface over a flat key-value blob
// store with prefix enumeration.
type ObjectStore interface {
	// Exists reports whether the key currently holds data.
	Exists(ctx context.Context, key string) (bool, error)

	// GetDownloadURL returns a time-bounded, read-only pre-signed URL for
	// the key. Fails with ErrKeyNotFound if the key does not exist.
	GetDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// GetUploadURL returns a time-bounded, write-only pre-signed URL for
	// direct client upload to the key. It does not check whether the key
	// already holds data; immutability is enforced above this layer.
	GetUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Upload streams bytes into the key, attaching optional metadata tags.
	// The write is conditional on the key being absent; a populated key
	// fails with ErrKeyAlreadyExists.
	Upload(ctx context.Context, key string, body io.Reader, metadata map[string]string) error

	// Delete removes the key. Deleting a non-existent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys enumerates all objects under the prefix. The enumeration is
	// finite and safe to re-run; ordering follows the store's native
	// enumeration order. Tags are not populated during enumeration; use
	// GetObjectInfo to read them back for a specific key.
	ListKeys(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// GetObjectInfo reads back the metadata of one object, including the
	// tags attached at upload. Fails with ErrKeyNotFound if absent.
	GetObjectInfo(ctx context.Context, key string) (*ObjectInfo, error)

	// CheckConnectivity probes the store with the configured credentials.
	// Intended to run once at process start so a misconfigured deployment
	// fails fast instead of failing per request.
	CheckConnectivity(ctx context.Context) error
}
