package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marlkit/marl/pkg/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Config{Path: t.TempDir()})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Insert(ctx, "people", map[string]any{"name": "Ada", "age": 36, "nick": nil})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if key == "" {
		t.Fatal("expected a generated key")
	}

	doc, err := s.Get(ctx, "people", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Fields["name"] != "Ada" {
		t.Errorf("name = %v, want Ada", doc.Fields["name"])
	}
	if _, ok := doc.Fields["nick"]; ok {
		t.Error("nil field should have been pruned on insert")
	}

	// The document lands as a YAML file under the collection directory.
	if _, err := os.Stat(filepath.Join(s.path, "people", key+docExt)); err != nil {
		t.Errorf("document file missing: %v", err)
	}
}

func TestUpdateMergesAndRemoves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Insert(ctx, "people", map[string]any{"name": "Ada", "age": 36})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := s.Update(ctx, "people", key, map[string]any{"name": "Grace", "age": nil}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, err := s.Get(ctx, "people", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Fields["name"] != "Grace" {
		t.Errorf("name = %v, want Grace", doc.Fields["name"])
	}
	if _, ok := doc.Fields["age"]; ok {
		t.Error("nil in partial should remove the stored field")
	}
}

func TestNotFoundSentinels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "people", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Update(ctx, "people", "missing", map[string]any{"a": 1}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "people", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete missing: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Insert(ctx, "people", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete(ctx, "people", key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "people", key); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestFindFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Ada", "role": "eng"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Grace", "role": "eng"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Linus", "role": "ops"}); err != nil {
		t.Fatal(err)
	}

	cur, err := s.Find(ctx, "people", core.Filter{"role": "eng"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	defer cur.Close()

	count := 0
	for cur.Next() {
		count++
		if cur.Document().Fields["role"] != "eng" {
			t.Errorf("unexpected document: %v", cur.Document())
		}
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	if count != 2 {
		t.Errorf("matched %d documents, want 2", count)
	}
}

func TestFindMissingCollection(t *testing.T) {
	s := newTestStore(t)

	cur, err := s.Find(context.Background(), "nothing", nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if cur.Next() {
		t.Error("expected an empty cursor for a missing collection")
	}
}

func TestFindSeesLaterWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}

	cur, _ := s.Find(ctx, "people", nil)
	n := 0
	for cur.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("first pass matched %d, want 1", n)
	}

	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Grace"}); err != nil {
		t.Fatal(err)
	}

	cur, _ = s.Find(ctx, "people", nil)
	n = 0
	for cur.Next() {
		n++
	}
	if n != 2 {
		t.Errorf("second pass matched %d, want 2", n)
	}
}

func TestInitializeMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	s := New(Config{Path: missing, MustExist: true})
	if err := s.Initialize(context.Background()); err == nil {
		t.Error("expected an error for a missing store path with MustExist")
	}

	s = New(Config{Path: missing, AutoInit: true})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize with AutoInit: %v", err)
	}
	if info, err := os.Stat(missing); err != nil || !info.IsDir() {
		t.Error("AutoInit should have created the root directory")
	}
}

func TestIntrospection(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Insert(context.Background(), "people", map[string]any{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}

	if s.ComponentType() != "fsstore" {
		t.Errorf("ComponentType = %q", s.ComponentType())
	}
	state, ok := s.State().(StoreState)
	if !ok {
		t.Fatalf("State() returned %T", s.State())
	}
	if len(state.Collections) != 1 || state.Collections[0] != "people" {
		t.Errorf("collections = %v, want [people]", state.Collections)
	}
}
