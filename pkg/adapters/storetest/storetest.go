// Package storetest holds the conformance suite every core.Store adapter
// must pass. Adapter packages call Run from their own tests with a factory
// producing a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/marlkit/marl/pkg/core"
)

// Factory produces a fresh, empty store for one subtest.
type Factory func(t *testing.T) core.Store

// Run exercises the core.Store contract against the factory's stores.
func Run(t *testing.T, factory Factory) {
	t.Run("InsertAssignsDistinctKeys", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		k1, err := s.Insert(ctx, "docs", map[string]any{"n": "a"})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		k2, err := s.Insert(ctx, "docs", map[string]any{"n": "b"})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if k1 == "" || k2 == "" || k1 == k2 {
			t.Errorf("keys = %q, %q; want distinct non-empty", k1, k2)
		}
	})

	t.Run("GetReturnsWhatWasInserted", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		key, err := s.Insert(ctx, "docs", map[string]any{"n": "a", "gone": nil})
		if err != nil {
			t.Fatal(err)
		}
		doc, err := s.Get(ctx, "docs", key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.Key != key || doc.Fields["n"] != "a" {
			t.Errorf("doc = %+v", doc)
		}
		if _, ok := doc.Fields["gone"]; ok {
			t.Error("nil fields must be pruned on insert")
		}
	})

	t.Run("UpdateMergesAndNilRemoves", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		key, err := s.Insert(ctx, "docs", map[string]any{"a": "1", "b": "2"})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Update(ctx, "docs", key, map[string]any{"a": "x", "b": nil}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		doc, err := s.Get(ctx, "docs", key)
		if err != nil {
			t.Fatal(err)
		}
		if doc.Fields["a"] != "x" {
			t.Errorf("a = %v", doc.Fields["a"])
		}
		if _, ok := doc.Fields["b"]; ok {
			t.Error("nil in partial must remove the field")
		}
	})

	t.Run("MissingDocumentsReportNotFound", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		if _, err := s.Get(ctx, "docs", "nope"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get: err = %v", err)
		}
		if err := s.Update(ctx, "docs", "nope", map[string]any{"a": 1}); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Update: err = %v", err)
		}
		if err := s.Delete(ctx, "docs", "nope"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Delete: err = %v", err)
		}
	})

	t.Run("DeleteIsTerminal", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		key, err := s.Insert(ctx, "docs", map[string]any{"n": "a"})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "docs", key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "docs", key); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get after delete: err = %v", err)
		}
	})

	t.Run("FindMatchesFilter", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		keep, err := s.Insert(ctx, "docs", map[string]any{"role": "eng"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Insert(ctx, "docs", map[string]any{"role": "ops"}); err != nil {
			t.Fatal(err)
		}

		cur, err := s.Find(ctx, "docs", core.Filter{"role": "eng"})
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		defer cur.Close()
		var keys []string
		for cur.Next() {
			keys = append(keys, cur.Document().Key)
		}
		if err := cur.Err(); err != nil {
			t.Fatalf("cursor: %v", err)
		}
		if len(keys) != 1 || keys[0] != keep {
			t.Errorf("keys = %v, want [%s]", keys, keep)
		}
	})

	t.Run("FindInKeys", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		k1, _ := s.Insert(ctx, "docs", map[string]any{"n": "a"})
		k2, _ := s.Insert(ctx, "docs", map[string]any{"n": "b"})
		if _, err := s.Insert(ctx, "docs", map[string]any{"n": "c"}); err != nil {
			t.Fatal(err)
		}

		cur, err := s.Find(ctx, "docs", core.Filter{core.KeyField: core.In(k1, k2)})
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		defer cur.Close()
		n := 0
		for cur.Next() {
			n++
		}
		if n != 2 {
			t.Errorf("matched %d, want 2", n)
		}
	})

	t.Run("FindEmptyCollection", func(t *testing.T) {
		s := factory(t)
		cur, err := s.Find(context.Background(), "empty", nil)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if cur.Next() {
			t.Error("expected no documents")
		}
	})
}
