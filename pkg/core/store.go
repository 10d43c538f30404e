package core

import "context"

// Store defines the contract the mapping layer requires from a document
// store. Adhering to this interface keeps the model layer independent of
// the underlying storage mechanism (memory, filesystem, a remote database).
//
// All methods are synchronous, point-in-time calls. Retries, timeouts and
// backpressure are the adapter's concern, not the caller's.
type Store interface {
	// Insert persists a new document and returns the store-assigned key.
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update applies a partial document to an existing one. Only the keys
	// present in partial are touched. Returns ErrNotFound if no document
	// with that key exists.
	Update(ctx context.Context, collection, key string, partial map[string]any) error

	// Delete removes a document by key. Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection, key string) error

	// Get retrieves a single document by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Find returns a cursor over the documents matching the filter. The
	// sequence is finite; re-issuing Find restarts it against current state.
	Find(ctx context.Context, collection string, filter Filter) (Cursor, error)
}

// Cursor iterates a finite result set lazily.
//
//	cur, err := store.Find(ctx, "persons", filter)
//	...
//	defer cur.Close()
//	for cur.Next() {
//	    doc := cur.Document()
//	    ...
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor interface {
	// Next advances to the next document, returning false when exhausted
	// or on error (check Err).
	Next() bool

	// Document returns the current document. Only valid after Next
	// returned true.
	Document() Document

	// Err reports the first error encountered during iteration.
	Err() error

	// Close releases resources held by the cursor.
	Close() error
}

// Watchable is an optional capability for stores that can observe
// out-of-band changes to their documents.
type Watchable interface {
	// Watch emits events for changes to the given collection until ctx is
	// cancelled. Pass an empty collection to watch everything.
	Watch(ctx context.Context, collection string) (<-chan Event, error)
}

// SliceCursor adapts an in-memory snapshot to the Cursor interface. It is
// shared by adapters whose Find evaluates eagerly.
type SliceCursor struct {
	docs []Document
	pos  int
}

// NewSliceCursor wraps a document snapshot in a Cursor.
func NewSliceCursor(docs []Document) *SliceCursor {
	return &SliceCursor{docs: docs, pos: -1}
}

func (c *SliceCursor) Next() bool {
	if c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Document() Document { return c.docs[c.pos] }

func (c *SliceCursor) Err() error { return nil }

func (c *SliceCursor) Close() error { return nil }
