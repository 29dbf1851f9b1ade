// Package remote defines the capability contract for the cloud document
// store the sync layer replays against, plus an in-memory implementation
// used by tests and the demo daemon.
//
// The contract mirrors a managed document database: per group, one
// sub-collection per entity type, each a map of document id to JSON
// document. Mutations are full-document overwrites (Set), partial field
// updates (Update), or deletes; reads are point gets, and live snapshot
// subscriptions deliver the full collection on every change.
package remote

import (
	"context"
	"errors"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// ErrUnreachable is returned when the remote store cannot be contacted.
var ErrUnreachable = errors.New("remote: unreachable")

// ErrDocumentNotFound is returned by Get for a missing document id.
var ErrDocumentNotFound = errors.New("remote: document not found")

// Document is a remote record: a stable id and its JSON payload.
type Document struct {
	ID   string
	Data []byte
}

// Subscription is a live snapshot listener registration.
// Cancel is idempotent and stops all further callbacks.
type Subscription interface {
	Cancel()
}

// Tx is the read-then-write view inside RunTransaction.
// All staged writes commit atomically when the transaction func returns
// nil, and are discarded when it returns an error.
type Tx interface {
	Get(id string) ([]byte, error)
	Set(id string, doc []byte)
}

// Collection is one group's sub-collection for a single entity type.
type Collection interface {
	// Set stores the full document at id, overwriting any previous
	// version. Replaying the same Set twice yields the same final state.
	Set(ctx context.Context, id string, doc []byte) error

	// Update applies a partial field update to an existing document.
	// Fields not named in the update are left untouched.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete removes the document at id. Deleting a missing id succeeds.
	Delete(ctx context.Context, id string) error

	// Get returns the document at id, or ErrDocumentNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Snapshots registers a listener that receives the full collection
	// (sorted by document id) immediately and after every subsequent
	// change, until the subscription is cancelled.
	Snapshots(ctx context.Context, fn func([]Document)) (Subscription, error)

	// RunTransaction executes a read-then-write transaction against the
	// collection. Used for read-modify-write operations (mastery level,
	// vote toggle) in pure-remote mode.
	RunTransaction(ctx context.Context, fn func(Tx) error) error
}

// Store is the remote document store capability the repositories and the
// sync worker consume. Implementations must be safe for concurrent use.
type Store interface {
	Collection(groupID string, entity model.EntityType) Collection
}
