// Package docstore is the storage boundary for shared match documents.
// It exposes only the primitives the sync protocol needs: create, read,
// conditional update, enumeration and a change feed. Every document carries a
// monotonic version and updates are compare-and-swap on it, so a write
// based on a stale read fails instead of silently clobbering the newer
// state.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no document exists under the key.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrExists is returned by Create when the key is already taken.
	ErrExists = errors.New("docstore: document already exists")
	// ErrVersionConflict is returned by Update when the stored version no
	// longer matches the expected one.
	ErrVersionConflict = errors.New("docstore: version conflict")
)

// Document is one stored JSON record plus its version.
type Document struct {
	ID        string
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

// deliver pushes a snapshot onto a feed channel, coalescing onto the newest
// state when the consumer is slow. The feed contract is at-least-once
// delivery of the current document, not of every intermediate one.
func deliver(ch chan Document, d Document) {
	for {
		select {
		case ch <- d:
			return
		default:
		}
		select {
		case <-ch: // drop the oldest queued snapshot
		default:
		}
	}
}

// Store is a keyed JSON document store with conditional writes and a
// per-document change feed.
type Store interface {
	// Create writes a new document at version 1. Fails with ErrExists.
	Create(ctx context.Context, collection, id string, data []byte) (Document, error)

	// Get reads the current document. Fails with ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Update replaces the document body iff the stored version equals
	// expectedVersion, and bumps the version. Fails with
	// ErrVersionConflict or ErrNotFound.
	Update(ctx context.Context, collection, id string, expectedVersion int64, data []byte) (Document, error)

	// Delete removes the document. Deleting a missing document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error

	// List enumerates the ids of every document in the collection. Order
	// is unspecified.
	List(ctx context.Context, collection string) ([]string, error)

	// Watch subscribes to the document's change feed. Every committed
	// write, including the caller's own, is delivered as a full snapshot.
	// The release func must be called exactly once when done; it closes
	// the channel. Cancelling ctx also releases the subscription.
	Watch(ctx context.Context, collection, id string) (<-chan Document, func(), error)
}
