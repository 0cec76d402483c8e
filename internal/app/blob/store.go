// Package blob provides the object-storage backends and the repository
// tree adapter built on top of them.
//
// A Store is a flat key space with one-level prefix listing; it knows
// nothing about folders or metadata. All providers (MinIO, local disk)
// implement the same interface so callers never depend on a specific
// backend package.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key has no object behind it.
var ErrNotFound = errors.New("object not found")

// PutOptions carries optional attributes for an upload.
type PutOptions struct {
	ContentType string
	// Metadata is attached to the stored object verbatim (uploader,
	// classification, etc.). Backends that cannot store metadata drop it.
	Metadata map[string]string
}

// ObjectInfo describes one stored object. ContentType and Metadata are
// filled by Stat; listings leave them empty.
type ObjectInfo struct {
	Key         string // full key
	Name        string // last key segment
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Listing is the result of a one-level prefix listing.
type Listing struct {
	Objects  []ObjectInfo // objects directly under the prefix
	Prefixes []string     // immediate sub-prefixes (no trailing slash)
}

// Store is the single interface all object storage providers implement.
//
// Delete is idempotent: deleting an absent key is a no-op, not an error.
// Cascading deletes may race with a partially failed earlier attempt, so
// "already gone" must not abort the cascade.
type Store interface {
	// Put uploads the object at key, overwriting any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error

	// Get opens a streaming handle to the object at key.
	// Returns ErrNotFound if there is no object.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns metadata for the object at key without reading it.
	// Returns ErrNotFound if there is no object.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes the object at key. Absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// List returns the objects and sub-prefixes one level under prefix.
	List(ctx context.Context, prefix string) (Listing, error)

	// URL returns a fetchable reference for the object at key. It does
	// not verify existence; pair with Stat when the caller needs a live
	// reference.
	URL(key string) string
}
