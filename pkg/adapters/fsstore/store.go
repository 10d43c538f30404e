// Package fsstore implements core.Store on the filesystem: one directory
// per collection, one YAML file per document. Writes are atomic
// (temp file + rename) and the store can watch for out-of-band changes.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/introspection"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/marlkit/marl/pkg/core"
)

const docExt = ".yaml"

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	Logger    *slog.Logger
	AutoInit  bool        // create the root directory if missing
	MustExist bool        // refuse to run against a missing directory
	FileMode  os.FileMode // document file permissions; 0 means 0644
}

// Store is a filesystem-backed document store.
type Store struct {
	path   string
	config Config
}

// New creates a filesystem store rooted at config.Path.
func New(config Config) *Store {
	return &Store{path: config.Path, config: config}
}

// Initialize ensures the root directory is usable.
func (s *Store) Initialize(ctx context.Context) error {
	info, err := os.Stat(s.path)
	switch {
	case os.IsNotExist(err):
		if s.config.MustExist || !s.config.AutoInit {
			return fmt.Errorf("store path does not exist: %s", s.path)
		}
		if err := os.MkdirAll(s.path, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat store path: %w", err)
	case !info.IsDir():
		return fmt.Errorf("store path is not a directory: %s", s.path)
	}
	return nil
}

// Insert writes a new document under a fresh UUID key.
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	key := uuid.NewString()

	dir := filepath.Join(s.path, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create collection directory: %w", err)
	}

	pruned := make(map[string]any, len(fields))
	for k, v := range fields {
		if v != nil {
			pruned[k] = v
		}
	}
	if err := s.writeDoc(collection, key, pruned); err != nil {
		return "", err
	}
	s.log(ctx, "insert", collection, key)
	return key, nil
}

// Update applies a partial document: keys present in partial replace the
// stored value, a nil value removes the field.
func (s *Store) Update(ctx context.Context, collection, key string, partial map[string]any) error {
	fields, err := s.readDoc(collection, key)
	if err != nil {
		return err
	}
	for k, v := range partial {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	if err := s.writeDoc(collection, key, fields); err != nil {
		return err
	}
	s.log(ctx, "update", collection, key)
	return nil
}

// Delete removes a document file.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	err := os.Remove(s.docPath(collection, key))
	if os.IsNotExist(err) {
		return fmt.Errorf("%s[%s]: %w", collection, key, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.log(ctx, "delete", collection, key)
	return nil
}

// Get reads one document by key.
func (s *Store) Get(ctx context.Context, collection, key string) (core.Document, error) {
	fields, err := s.readDoc(collection, key)
	if err != nil {
		return core.Document{}, err
	}
	return core.Document{Key: key, Fields: fields}, nil
}

// Find enumerates the collection's document files and returns a lazy
// cursor: files are read and filtered one by one as the caller iterates.
// Re-issuing Find re-enumerates, observing later writes.
func (s *Store) Find(ctx context.Context, collection string, filter core.Filter) (core.Cursor, error) {
	dir := filepath.Join(s.path, collection)
	matches, err := doublestar.Glob(os.DirFS(dir), "*"+docExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.NewSliceCursor(nil), nil
		}
		return nil, fmt.Errorf("failed to enumerate %s: %w", collection, err)
	}
	sort.Strings(matches) // deterministic iteration

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, strings.TrimSuffix(filepath.Base(m), docExt))
	}
	return &fileCursor{store: s, collection: collection, filter: filter, keys: keys}, nil
}

// fileCursor reads documents lazily during iteration.
type fileCursor struct {
	store      *Store
	collection string
	filter     core.Filter
	keys       []string
	pos        int
	cur        core.Document
	err        error
}

func (c *fileCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.pos < len(c.keys) {
		key := c.keys[c.pos]
		c.pos++
		fields, err := c.store.readDoc(c.collection, key)
		if err != nil {
			// A file removed between enumeration and read is not an error;
			// the document simply no longer matches.
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			c.err = err
			return false
		}
		doc := core.Document{Key: key, Fields: fields}
		if core.Match(doc, c.filter) {
			c.cur = doc
			return true
		}
	}
	return false
}

func (c *fileCursor) Document() core.Document { return c.cur }

func (c *fileCursor) Err() error { return c.err }

func (c *fileCursor) Close() error { return nil }

func (s *Store) docPath(collection, key string) string {
	return filepath.Join(s.path, collection, key+docExt)
}

func (s *Store) readDoc(collection, key string) (map[string]any, error) {
	data, err := os.ReadFile(s.docPath(collection, key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s[%s]: %w", collection, key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	fields := make(map[string]any)
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid document %s/%s: %w", collection, key, err)
	}
	return fields, nil
}

func (s *Store) writeDoc(collection, key string, fields map[string]any) error {
	data, err := yaml.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	mode := s.config.FileMode
	if mode == 0 {
		mode = 0o644
	}
	if err := writeDocAtomic(s.docPath(collection, key), data, mode); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (s *Store) log(ctx context.Context, op, collection, key string) {
	if s.config.Logger != nil {
		s.config.Logger.DebugContext(ctx, "fsstore "+op, "collection", collection, "key", key)
	}
}

// collections lists the collection directories currently on disk.
func (s *Store) collections() []string {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Path        string   `json:"path"`
	Collections []string `json:"collections"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return StoreState{Path: s.path, Collections: s.collections()}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "fsstore" }

var _ core.Store = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
