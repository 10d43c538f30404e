// Package memstore implements core.Store in memory. It is the reference
// adapter: suitable as an embedded backend, a test double, and the
// executable definition of filter semantics (via core.Match).
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"

	"github.com/marlkit/marl/pkg/core"
)

// Store is an in-memory document store. Unlike instances, the store itself
// is safe for concurrent use; documents are deep-copied on the way in and
// out so callers can never alias internal state.
type Store struct {
	mu     sync.RWMutex
	data   map[string]map[string]core.Document // collection -> key -> document
	logger *slog.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger enables debug logging of store operations.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.logger = log }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string]map[string]core.Document)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores a new document under a fresh UUID key.
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	key := uuid.NewString()
	doc := core.Document{Key: key, Fields: prune(fields)}.Clone()

	s.mu.Lock()
	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]core.Document)
		s.data[collection] = coll
	}
	coll[key] = doc
	s.mu.Unlock()

	s.log(ctx, "insert", collection, key)
	return key, nil
}

// Update applies a partial document. Keys present in partial replace the
// stored value; a nil value removes the field entirely.
func (s *Store) Update(ctx context.Context, collection, key string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][key]
	if !ok {
		return fmt.Errorf("%s[%s]: %w", collection, key, core.ErrNotFound)
	}
	doc = doc.Clone()
	for k, v := range partial {
		if v == nil {
			delete(doc.Fields, k)
			continue
		}
		doc.Fields[k] = v
	}
	// Clone again so values assigned from the partial are not aliased.
	s.data[collection][key] = doc.Clone()

	s.log(ctx, "update", collection, key)
	return nil
}

// Delete removes a document by key.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][key]; !ok {
		return fmt.Errorf("%s[%s]: %w", collection, key, core.ErrNotFound)
	}
	delete(s.data[collection], key)

	s.log(ctx, "delete", collection, key)
	return nil
}

// Get retrieves a document by key.
func (s *Store) Get(ctx context.Context, collection, key string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][key]
	if !ok {
		return core.Document{}, fmt.Errorf("%s[%s]: %w", collection, key, core.ErrNotFound)
	}
	return doc.Clone(), nil
}

// Find snapshots the matching documents. The cursor iterates the snapshot;
// re-issuing Find observes later writes.
func (s *Store) Find(ctx context.Context, collection string, filter core.Filter) (core.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data[collection]))
	for key := range s.data[collection] {
		keys = append(keys, key)
	}
	sort.Strings(keys) // deterministic iteration

	var docs []core.Document
	for _, key := range keys {
		doc := s.data[collection][key]
		if core.Match(doc, filter) {
			docs = append(docs, doc.Clone())
		}
	}
	return core.NewSliceCursor(docs), nil
}

// Len reports the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

func (s *Store) log(ctx context.Context, op, collection, key string) {
	if s.logger != nil {
		s.logger.DebugContext(ctx, "memstore "+op, "collection", collection, "key", key)
	}
}

// prune drops nil values from an insert payload; nil only means something
// for updates (field removal).
func prune(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Collections map[string]int `json:"collections"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(s.data))
	for name, coll := range s.data {
		counts[name] = len(coll)
	}
	return StoreState{Collections: counts}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "memstore" }

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
