package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/introspection"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/schema"
)

// RelPolicy decides when a relationship mutation reaches the store.
type RelPolicy int

const (
	// PolicyStaged records relationship changes in memory as dirty
	// attributes, flushed when each side saves. This matches how plain
	// attribute mutations behave.
	PolicyStaged RelPolicy = iota

	// PolicyImmediate additionally writes both sides of a relationship
	// mutation to the store at mutation time.
	PolicyImmediate
)

func (p RelPolicy) String() string {
	if p == PolicyImmediate {
		return "immediate"
	}
	return "staged"
}

// DB binds a schema registry to a document store. It is the factory for
// instances and the entry point for loading them back.
type DB struct {
	store  core.Store
	reg    *schema.Registry
	log    *slog.Logger
	policy RelPolicy
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. Without one the DB is silent.
func WithLogger(log *slog.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithRelationshipPolicy selects when relationship mutations persist.
func WithRelationshipPolicy(p RelPolicy) Option {
	return func(db *DB) { db.policy = p }
}

// New creates a DB over the given store and registry.
func New(store core.Store, reg *schema.Registry, opts ...Option) *DB {
	db := &DB{store: store, reg: reg}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Registry returns the schema registry backing this DB.
func (db *DB) Registry() *schema.Registry { return db.reg }

// New creates an unsaved instance of the named model with all attributes
// unset. Referencing an unregistered model is a hard failure.
func (db *DB) New(model string) (*Instance, error) {
	s, err := db.reg.Lookup(model)
	if err != nil {
		return nil, err
	}
	return newInstance(db, s), nil
}

// Get loads one instance by identity. Returns core.ErrNotFound if absent.
func (db *DB) Get(ctx context.Context, model, key string) (*Instance, error) {
	s, err := db.reg.Lookup(model)
	if err != nil {
		return nil, err
	}
	doc, err := db.store.Get(ctx, s.Collection(), key)
	if err != nil {
		return nil, err
	}
	return decodeInstance(db, s, doc)
}

// Find returns a cursor over instances matching the filter. The sequence is
// lazy and finite; calling Find again re-executes the query.
func (db *DB) Find(ctx context.Context, model string, filter core.Filter) (*Cursor, error) {
	s, err := db.reg.Lookup(model)
	if err != nil {
		return nil, err
	}
	inner, err := db.store.Find(ctx, s.Collection(), filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", model, err)
	}
	return &Cursor{db: db, schema: s, inner: inner}, nil
}

// FindOne returns the first instance matching the filter, or
// core.ErrNotFound when nothing matches.
func (db *DB) FindOne(ctx context.Context, model string, filter core.Filter) (*Instance, error) {
	cur, err := db.Find(ctx, model, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("model %q: %w", model, core.ErrNotFound)
	}
	return cur.Instance(), nil
}

func (db *DB) logger() *slog.Logger {
	return db.log
}

// DBState exposes internal state for observability.
type DBState struct {
	Models    []string `json:"models"`
	Policy    string   `json:"relationship_policy"`
	StoreType string   `json:"store_type"`
}

// State implements introspection.Introspectable.
func (db *DB) State() any {
	storeType := "store"
	if comp, ok := db.store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}
	return DBState{
		Models:    db.reg.Models(),
		Policy:    db.policy.String(),
		StoreType: storeType,
	}
}

// ComponentType implements introspection.Component.
func (db *DB) ComponentType() string { return "db" }

var _ introspection.Introspectable = (*DB)(nil)
var _ introspection.Component = (*DB)(nil)
