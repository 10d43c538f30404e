package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/marlkit/marl/pkg/adapters/memstore"
	"github.com/marlkit/marl/pkg/core"
)

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	key, err := s.Insert(ctx, "persons", map[string]any{"name": "Bob"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if key == "" {
		t.Fatal("expected a store-assigned key")
	}

	doc, err := s.Get(ctx, "persons", key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Fields["name"] != "Bob" {
		t.Errorf("unexpected fields: %v", doc.Fields)
	}

	if err := s.Update(ctx, "persons", key, map[string]any{"name": "Robert", "age": 40}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = s.Get(ctx, "persons", key)
	if doc.Fields["name"] != "Robert" || doc.Fields["age"] != 40 {
		t.Errorf("partial update not applied: %v", doc.Fields)
	}

	if err := s.Delete(ctx, "persons", key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "persons", key); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdate_NilRemovesField(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	key, _ := s.Insert(ctx, "persons", map[string]any{"name": "Bob", "nickname": "Bobby"})
	if err := s.Update(ctx, "persons", key, map[string]any{"nickname": nil}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ := s.Get(ctx, "persons", key)
	if _, ok := doc.Fields["nickname"]; ok {
		t.Error("expected nil update to remove the field")
	}
}

func TestNotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	if err := s.Update(ctx, "persons", "ghost", map[string]any{"x": 1}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "persons", "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestFind_SnapshotAndRestart(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.Insert(ctx, "persons", map[string]any{"name": name, "active": name != "c"}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	cur, err := s.Find(ctx, "persons", core.Filter{"active": true})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	defer cur.Close()

	count := 0
	for cur.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 active docs, got %d", count)
	}

	// A new Find observes later writes; the sequence restarts by re-issuing.
	if _, err := s.Insert(ctx, "persons", map[string]any{"name": "d", "active": true}); err != nil {
		t.Fatal(err)
	}
	cur2, _ := s.Find(ctx, "persons", core.Filter{"active": true})
	defer cur2.Close()
	count = 0
	for cur2.Next() {
		count++
	}
	if count != 3 {
		t.Errorf("expected restarted query to see 3 docs, got %d", count)
	}
}

func TestIsolation(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	fields := map[string]any{"keys": []any{"a"}}
	key, _ := s.Insert(ctx, "posts", fields)

	// Mutating the caller's map after insert must not affect the store.
	fields["keys"] = []any{"z"}
	doc, _ := s.Get(ctx, "posts", key)
	got := doc.Fields["keys"].([]any)
	if got[0] != "a" {
		t.Error("insert did not copy the payload")
	}

	// Mutating a returned document must not affect the store either.
	got[0] = "z"
	doc2, _ := s.Get(ctx, "posts", key)
	if doc2.Fields["keys"].([]any)[0] != "a" {
		t.Error("get did not copy the document")
	}
}
