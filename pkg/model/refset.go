package model

import (
	"context"
	"fmt"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/schema"
)

// refState tracks a multi-valued handle's resolution lifecycle.
type refState int

const (
	stateUnresolved refState = iota // only keys known
	stateResolving                  // lookup in flight
	stateResolved                   // instances materialized, reads hit cache
)

// RefSet is the handle for a many-to-many attribute. It owns this side's
// key set and performs every mutation bidirectionally: Add and Remove always
// update the declared inverse attribute on the other instance as well, so
// the two sides of the association are never independently true.
//
// Resolution is lazy and cached per handle. A mutation on a resolved handle
// updates the cache in place rather than discarding it.
type RefSet struct {
	owner *Instance
	attr  string
	field schema.Field

	state refState
	cache []*Instance
}

// Attr returns the attribute this handle serves.
func (r *RefSet) Attr() string { return r.attr }

// Keys returns this side's current key set, in insertion order.
func (r *RefSet) Keys() []string {
	keys, _ := r.owner.values[r.attr].RefList()
	return keys
}

// Len returns the number of related keys without resolving anything.
func (r *RefSet) Len() int { return len(r.Keys()) }

// Contains reports membership by key, without resolving.
func (r *RefSet) Contains(key string) bool {
	for _, k := range r.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Add links other into the set and records the back-reference on other's
// inverse attribute in the same step — one direction is never applied
// silently without the other. Both instances must be persisted, since the
// link is a pair of keys. Under PolicyStaged the change stays in memory as
// dirty state on both sides until each saves; under PolicyImmediate both
// documents are updated now.
func (r *RefSet) Add(ctx context.Context, other *Instance) error {
	if err := r.vet(other); err != nil {
		return err
	}

	changed := r.insertKey(other.Key())
	if changed && r.state == stateResolved {
		r.cache = append(r.cache, other)
	}

	// Inverse side: mutate the live instance so the back-reference is
	// observable immediately, whether or not that side ever resolved.
	inv, err := other.Refs(r.field.Inverse())
	if err != nil {
		return fmt.Errorf("inverse of %s.%s: %w", r.owner.Model(), r.attr, err)
	}
	invChanged := inv.insertKey(r.owner.Key())
	if invChanged && inv.state == stateResolved {
		inv.cache = append(inv.cache, r.owner)
	}

	if r.owner.db.policy == PolicyImmediate {
		return r.flushBoth(ctx, other, inv)
	}
	return nil
}

// Remove unlinks other from the set and clears the back-reference on other's
// inverse attribute.
func (r *RefSet) Remove(ctx context.Context, other *Instance) error {
	if err := r.vet(other); err != nil {
		return err
	}

	if r.removeKey(other.Key()) && r.state == stateResolved {
		r.cache = dropInstance(r.cache, other.Key())
	}

	inv, err := other.Refs(r.field.Inverse())
	if err != nil {
		return fmt.Errorf("inverse of %s.%s: %w", r.owner.Model(), r.attr, err)
	}
	if inv.removeKey(r.owner.Key()) && inv.state == stateResolved {
		inv.cache = dropInstance(inv.cache, r.owner.Key())
	}

	if r.owner.db.policy == PolicyImmediate {
		return r.flushBoth(ctx, other, inv)
	}
	return nil
}

// All resolves the set: one batched lookup by key, materialized in key
// order, then served from cache until the handle is invalidated. A key with
// no backing document reports core.ErrDanglingReference rather than being
// silently skipped.
func (r *RefSet) All(ctx context.Context) ([]*Instance, error) {
	if r.state == stateResolved {
		return append([]*Instance(nil), r.cache...), nil
	}

	keys := r.Keys()
	if len(keys) == 0 {
		r.state = stateResolved
		r.cache = nil
		return nil, nil
	}

	target, err := r.owner.db.reg.Lookup(r.field.Target())
	if err != nil {
		return nil, err
	}

	r.state = stateResolving
	cur, err := r.owner.db.Find(ctx, r.field.Target(), core.Filter{
		core.KeyField: core.InKeys(keys),
	})
	if err != nil {
		r.state = stateUnresolved
		return nil, err
	}
	found, err := cur.All()
	if err != nil {
		r.state = stateUnresolved
		return nil, err
	}

	byKey := make(map[string]*Instance, len(found))
	for _, inst := range found {
		byKey[inst.Key()] = inst
	}
	out := make([]*Instance, 0, len(keys))
	for _, key := range keys {
		inst, ok := byKey[key]
		if !ok {
			r.state = stateUnresolved
			return nil, fmt.Errorf("%s.%s -> %s[%s]: %w",
				r.owner.Model(), r.attr, target.Name(), key, core.ErrDanglingReference)
		}
		out = append(out, inst)
	}

	r.state = stateResolved
	r.cache = out
	return append([]*Instance(nil), out...), nil
}

// Find queries within the set: the given filter restricted to members'
// keys. Results are not cached; each call re-executes the lookup.
func (r *RefSet) Find(ctx context.Context, filter core.Filter) (*Cursor, error) {
	merged := core.Filter{core.KeyField: core.InKeys(r.Keys())}
	for k, v := range filter {
		merged[k] = v
	}
	return r.owner.db.Find(ctx, r.field.Target(), merged)
}

// FindOne returns the first member matching the filter, or core.ErrNotFound.
func (r *RefSet) FindOne(ctx context.Context, filter core.Filter) (*Instance, error) {
	merged := core.Filter{core.KeyField: core.InKeys(r.Keys())}
	for k, v := range filter {
		merged[k] = v
	}
	return r.owner.db.FindOne(ctx, r.field.Target(), merged)
}

// Invalidate drops the resolution cache; the next All re-fetches.
func (r *RefSet) Invalidate() {
	r.state = stateUnresolved
	r.cache = nil
}

// vet checks a mutation argument: right model, both sides persisted.
func (r *RefSet) vet(other *Instance) error {
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
	if !other.Saved() {
		return fmt.Errorf("%s.%s: target %w", r.owner.Model(), r.attr, core.ErrNotPersisted)
	}
	return nil
}

// insertKey adds a key to this side's set if absent, marking the attribute
// dirty. Reports whether the set changed.
func (r *RefSet) insertKey(key string) bool {
	keys := r.Keys()
	for _, k := range keys {
		if k == key {
			return false
		}
	}
	r.owner.setValue(r.attr, schema.Refs(append(keys, key)))
	return true
}

// removeKey drops a key from this side's set. Reports whether it was present.
func (r *RefSet) removeKey(key string) bool {
	keys := r.Keys()
	for idx, k := range keys {
		if k == key {
			r.owner.setValue(r.attr, schema.Refs(append(keys[:idx], keys[idx+1:]...)))
			return true
		}
	}
	return false
}

// flushBoth writes both sides' key sets to the store (PolicyImmediate).
func (r *RefSet) flushBoth(ctx context.Context, other *Instance, inv *RefSet) error {
	if err := r.flush(ctx); err != nil {
		return err
	}
	return inv.flush(ctx)
}

// flush writes just this attribute's key set as a partial update and clears
// its dirty mark.
func (r *RefSet) flush(ctx context.Context) error {
	owner := r.owner
	partial := map[string]any{r.attr: r.field.Encode(owner.values[r.attr])}
	if err := owner.db.store.Update(ctx, owner.schema.Collection(), owner.key, partial); err != nil {
		return fmt.Errorf("update %s[%s].%s: %w", owner.Model(), owner.key, r.attr, err)
	}
	delete(owner.dirty, r.attr)
	return nil
}

func dropInstance(list []*Instance, key string) []*Instance {
	out := list[:0]
	for _, inst := range list {
		if inst.Key() != key {
			out = append(out, inst)
		}
	}
	return out
}
