package marl

import (
	"context"
	"log/slog"
	"os"

	"github.com/marlkit/marl/internal/schemafile"
	"github.com/marlkit/marl/pkg/adapters/fsstore"
	"github.com/marlkit/marl/pkg/adapters/memstore"
	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/model"
	"github.com/marlkit/marl/pkg/schema"
)

// Version exposes the version of the library.
const Version = "0.1.0"

// --- Types ---

// DB is the public alias for the model database handle.
type DB = model.DB

// Instance is the public alias for a model instance.
type Instance = model.Instance

// Cursor is the public alias for a model cursor.
type Cursor = model.Cursor

// ValidationError is the public alias for a failed-save error.
type ValidationError = model.ValidationError

// Filter is the public alias for a store query filter.
type Filter = core.Filter

// Registry is the public alias for a schema registry.
type Registry = schema.Registry

// Relationship write policies.
const (
	PolicyStaged    = model.PolicyStaged
	PolicyImmediate = model.PolicyImmediate
)

// --- Configuration ---

type config struct {
	logger    *slog.Logger
	autoInit  bool
	mustExist bool
	policy    model.RelPolicy
	store     core.Store
}

// Option defines a functional option for opening a database.
type Option func(*config)

// WithLogger sets the logger for the database and its store.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithAutoInit creates the store directory if it is missing.
func WithAutoInit(auto bool) Option {
	return func(c *config) { c.autoInit = auto }
}

// WithMustExist refuses to open a directory that does not exist.
func WithMustExist(must bool) Option {
	return func(c *config) { c.mustExist = must }
}

// WithRelationshipPolicy selects when relationship link writes reach the
// store: staged until Save (the default) or immediately on Add/Remove.
func WithRelationshipPolicy(p model.RelPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithStore injects a custom storage adapter; OpenDir ignores its path
// argument when one is set.
func WithStore(store core.Store) Option {
	return func(c *config) { c.store = store }
}

// --- Factories ---

// New assembles a database from an explicit store and registry.
func New(store core.Store, reg *schema.Registry, opts ...Option) *DB {
	c := applyOptions(opts)
	return model.New(store, reg, modelOptions(c)...)
}

// OpenDir opens a filesystem-backed database rooted at path.
func OpenDir(ctx context.Context, path string, reg *schema.Registry, opts ...Option) (*DB, error) {
	c := applyOptions(opts)
	store := c.store
	if store == nil {
		fss := fsstore.New(fsstore.Config{
			Path:      path,
			Logger:    c.logger,
			AutoInit:  c.autoInit,
			MustExist: c.mustExist,
		})
		if err := fss.Initialize(ctx); err != nil {
			return nil, err
		}
		store = fss
	}
	return model.New(store, reg, modelOptions(c)...), nil
}

// OpenMemory opens a database over an in-memory store, useful for tests
// and scratch work.
func OpenMemory(reg *schema.Registry, opts ...Option) *DB {
	c := applyOptions(opts)
	store := c.store
	if store == nil {
		var mopts []memstore.Option
		if c.logger != nil {
			mopts = append(mopts, memstore.WithLogger(c.logger))
		}
		store = memstore.New(mopts...)
	}
	return model.New(store, reg, modelOptions(c)...)
}

// LoadSchema builds a checked registry from a YAML schema file.
func LoadSchema(path string) (*schema.Registry, error) {
	return schemafile.Load(path)
}

// ParseSchema builds a checked registry from YAML schema file contents.
func ParseSchema(data []byte) (*schema.Registry, error) {
	return schemafile.Parse(data)
}

func applyOptions(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func modelOptions(c *config) []model.Option {
	out := []model.Option{model.WithRelationshipPolicy(c.policy)}
	if c.logger != nil {
		out = append(out, model.WithLogger(c.logger))
	}
	return out
}

// DefaultLogger builds the text logger the CLI uses, writing to stderr.
func DefaultLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
