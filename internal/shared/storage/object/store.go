package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no blob exists at a storage key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, addressing and removing blobs.
type ObjectStore interface {
	// Put writes size bytes from r at key. It returns only once the blob is durable.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// PresignGet returns a URL granting read access to key for ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes the blob at key. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// Open streams the blob at key, or returns ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
