package model

import (
	"context"
	"fmt"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/schema"
)

// Related is the handle for a filter-defined collection attribute: the
// target documents whose via attribute holds the owner's key. The owner
// document stores nothing; every read is a query against the target
// collection, so the sequence restarts on each call by construction.
type Related struct {
	owner *Instance
	attr  string
	field schema.Field
}

// Find returns a lazy cursor over related instances, optionally narrowed by
// an extra filter. Iterating twice means calling Find twice.
func (r *Related) Find(ctx context.Context, filter core.Filter) (*Cursor, error) {
	merged, err := r.filter(filter)
	if err != nil {
		return nil, err
	}
	return r.owner.db.Find(ctx, r.field.Target(), merged)
}

// FindOne returns the first related instance matching the filter, or
// core.ErrNotFound.
func (r *Related) FindOne(ctx context.Context, filter core.Filter) (*Instance, error) {
	merged, err := r.filter(filter)
	if err != nil {
		return nil, err
	}
	return r.owner.db.FindOne(ctx, r.field.Target(), merged)
}

// All materializes the full related set.
func (r *Related) All(ctx context.Context) ([]*Instance, error) {
	cur, err := r.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	return cur.All()
}

// Add makes other a member by stamping the owner's key into other's via
// attribute. The change is a normal attribute mutation on other: staged
// until other saves, unless the DB runs PolicyImmediate and other is
// already persisted, in which case the stamp is written through now.
func (r *Related) Add(ctx context.Context, other *Instance) error {
	if other == nil {
		return fmt.Errorf("%s.%s: cannot link a nil instance", r.owner.Model(), r.attr)
	}
	if other.Model() != r.field.Target() {
		return fmt.Errorf("%s.%s expects model %q, got %q: %w",
			r.owner.Model(), r.attr, r.field.Target(), other.Model(), core.ErrWrongModel)
	}
	if !r.owner.Saved() {
		return fmt.Errorf("%s.%s: owner %w", r.owner.Model(), r.attr, core.ErrNotPersisted)
	}

	if err := other.SetOne(r.field.Inverse(), r.owner); err != nil {
		return err
	}

	if r.owner.db.policy == PolicyImmediate && other.Saved() {
		via := r.field.Inverse()
		partial := map[string]any{via: r.owner.Key()}
		if err := other.db.store.Update(ctx, other.schema.Collection(), other.Key(), partial); err != nil {
			return fmt.Errorf("update %s[%s].%s: %w", other.Model(), other.Key(), via, err)
		}
		delete(other.dirty, via)
	}
	return nil
}

// Remove unlinks other by clearing its via attribute. Like Add, the change
// is a normal attribute mutation on other, written through immediately only
// under PolicyImmediate.
func (r *Related) Remove(ctx context.Context, other *Instance) error {
	if other == nil {
		return fmt.Errorf("%s.%s: cannot unlink a nil instance", r.owner.Model(), r.attr)
	}
	if other.Model() != r.field.Target() {
		return fmt.Errorf("%s.%s expects model %q, got %q: %w",
			r.owner.Model(), r.attr, r.field.Target(), other.Model(), core.ErrWrongModel)
	}
	if !r.owner.Saved() {
		return fmt.Errorf("%s.%s: owner %w", r.owner.Model(), r.attr, core.ErrNotPersisted)
	}

	via := r.field.Inverse()
	ref, err := other.Get(via)
	if err != nil {
		return err
	}
	if key, ok := ref.Ref(); !ok || key != r.owner.Key() {
		return fmt.Errorf("%s[%s] is not a member of %s.%s",
			other.Model(), other.Key(), r.owner.Model(), r.attr)
	}

	if err := other.SetOne(via, nil); err != nil {
		return err
	}

	if r.owner.db.policy == PolicyImmediate && other.Saved() {
		partial := map[string]any{via: nil}
		if err := other.db.store.Update(ctx, other.schema.Collection(), other.Key(), partial); err != nil {
			return fmt.Errorf("update %s[%s].%s: %w", other.Model(), other.Key(), via, err)
		}
		delete(other.dirty, via)
	}
	return nil
}

func (r *Related) filter(extra core.Filter) (core.Filter, error) {
	if !r.owner.Saved() {
		return nil, fmt.Errorf("%s.%s: owner %w", r.owner.Model(), r.attr, core.ErrNotPersisted)
	}
	merged := core.Filter{r.field.Inverse(): r.owner.Key()}
	for k, v := range extra {
		merged[k] = v
	}
	return merged, nil
}
