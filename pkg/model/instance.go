package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/schema"
)

// Instance is one live record of a declared model. It owns its attribute
// values, dirty set and validation-error state exclusively; relationship
// handles hold related instances by key only.
type Instance struct {
	db      *DB
	schema  *schema.Schema
	key     string // store identity; empty until first successful save
	deleted bool

	values map[string]schema.Value
	dirty  map[string]struct{}
	errs   schema.ErrorMap

	ones map[string]*Instance // resolved One cache, per attribute
	sets map[string]*RefSet   // many-to-many handles, per attribute
}

func newInstance(db *DB, s *schema.Schema) *Instance {
	return &Instance{
		db:     db,
		schema: s,
		values: make(map[string]schema.Value),
		dirty:  make(map[string]struct{}),
	}
}

// Model returns the model name.
func (i *Instance) Model() string { return i.schema.Name() }

// Schema returns the model schema.
func (i *Instance) Schema() *schema.Schema { return i.schema }

// Key returns the store identity, empty until the first successful save.
func (i *Instance) Key() string { return i.key }

// Saved reports whether the instance has a store identity.
func (i *Instance) Saved() bool { return i.key != "" }

// Deleted reports whether the instance was removed from the store.
func (i *Instance) Deleted() bool { return i.deleted }

// Get returns the current value of an attribute. Reading an undeclared
// attribute is a hard failure.
func (i *Instance) Get(attr string) (schema.Value, error) {
	if _, ok := i.schema.Field(attr); !ok {
		return schema.Value{}, i.unknownAttr(attr)
	}
	return i.values[attr], nil
}

// Set assigns an attribute value, marks it dirty and records nothing in the
// store. Validation happens at save time, not here. Reference attributes go
// through their handles instead: SetOne for single references, Refs for
// many-to-many sets, Related for filter-defined collections.
func (i *Instance) Set(attr string, v schema.Value) error {
	f, ok := i.schema.Field(attr)
	if !ok {
		return i.unknownAttr(attr)
	}
	switch f.Kind() {
	case schema.ManyKind:
		return fmt.Errorf("attribute %q is derived from %q documents; use Related",
			attr, f.Target())
	case schema.ManyToManyKind:
		return fmt.Errorf("attribute %q is a many-to-many set; use Refs(%q).Add",
			attr, attr)
	case schema.OneKind:
		// A raw key is acceptable; a live instance goes through SetOne.
		if _, ok := v.Ref(); !ok && !v.IsAbsent() {
			return fmt.Errorf("attribute %q expects a reference value", attr)
		}
		delete(i.ones, attr)
	}
	i.setValue(attr, v)
	return nil
}

// Unset clears an attribute.
func (i *Instance) Unset(attr string) error {
	return i.Set(attr, schema.Value{})
}

// setValue writes without shape checks; callers have already vetted attr.
func (i *Instance) setValue(attr string, v schema.Value) {
	if v.IsAbsent() {
		delete(i.values, attr)
	} else {
		i.values[attr] = v
	}
	i.dirty[attr] = struct{}{}
}

// SetOne points a single-reference attribute at a live instance. The target
// must belong to the declared model and must already be persisted (a handle
// is a key). A nil target clears the reference.
func (i *Instance) SetOne(attr string, target *Instance) error {
	f, ok := i.schema.Field(attr)
	if !ok {
		return i.unknownAttr(attr)
	}
	if f.Kind() != schema.OneKind {
		return fmt.Errorf("attribute %q is not a one reference", attr)
	}
	if target == nil {
		delete(i.ones, attr)
		i.setValue(attr, schema.Value{})
		return nil
	}
	if target.Model() != f.Target() {
		return fmt.Errorf("attribute %q expects model %q, got %q: %w",
			attr, f.Target(), target.Model(), core.ErrWrongModel)
	}
	if !target.Saved() {
		return fmt.Errorf("attribute %q: target %q %w",
			attr, f.Target(), core.ErrNotPersisted)
	}
	i.setValue(attr, schema.Ref(target.Key()))
	if i.ones == nil {
		i.ones = make(map[string]*Instance)
	}
	i.ones[attr] = target
	return nil
}

// One resolves a single-reference attribute, lazily. The first call issues
// a point lookup; later calls return the cached instance for the lifetime
// of this instance. An absent optional reference resolves to (nil, nil); a
// key that resolves to nothing reports core.ErrDanglingReference — absent
// and dangling are never conflated.
func (i *Instance) One(ctx context.Context, attr string) (*Instance, error) {
	f, ok := i.schema.Field(attr)
	if !ok {
		return nil, i.unknownAttr(attr)
	}
	if f.Kind() != schema.OneKind {
		return nil, fmt.Errorf("attribute %q is not a one reference", attr)
	}
	if cached, ok := i.ones[attr]; ok {
		return cached, nil
	}
	key, ok := i.values[attr].Ref()
	if !ok {
		return nil, nil
	}
	target, err := i.db.Get(ctx, f.Target(), key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s.%s -> %s[%s]: %w",
				i.Model(), attr, f.Target(), key, core.ErrDanglingReference)
		}
		return nil, err
	}
	if i.ones == nil {
		i.ones = make(map[string]*Instance)
	}
	i.ones[attr] = target
	return target, nil
}

// Refs returns the many-to-many handle for an attribute. The handle is
// created once per instance and caches its resolution.
func (i *Instance) Refs(attr string) (*RefSet, error) {
	f, ok := i.schema.Field(attr)
	if !ok {
		return nil, i.unknownAttr(attr)
	}
	if f.Kind() != schema.ManyToManyKind {
		return nil, fmt.Errorf("attribute %q is not a many-to-many set", attr)
	}
	if set, ok := i.sets[attr]; ok {
		return set, nil
	}
	if i.sets == nil {
		i.sets = make(map[string]*RefSet)
	}
	set := &RefSet{owner: i, attr: attr, field: f}
	i.sets[attr] = set
	return set, nil
}

// Related returns the handle for a filter-defined collection attribute:
// target documents whose via attribute carries this instance's key.
func (i *Instance) Related(attr string) (*Related, error) {
	f, ok := i.schema.Field(attr)
	if !ok {
		return nil, i.unknownAttr(attr)
	}
	if f.Kind() != schema.ManyKind {
		return nil, fmt.Errorf("attribute %q is not a related collection", attr)
	}
	return &Related{owner: i, attr: attr, field: f}, nil
}

// Errors returns the error map from the last failed validation run. It is
// cleared at the start of every validation attempt and on success.
func (i *Instance) Errors() schema.ErrorMap { return i.errs }

// Dirty returns the attributes changed since the last save or load, in
// declaration order.
func (i *Instance) Dirty() []string {
	var out []string
	for _, attr := range i.schema.Attrs() {
		if _, ok := i.dirty[attr]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// Save validates and persists the instance. A validation failure returns a
// *ValidationError and performs no store interaction at all. On success a
// new instance adopts the store-assigned key; a persisted instance writes
// only its dirty attributes, and writes nothing when none are dirty.
func (i *Instance) Save(ctx context.Context) error {
	if i.deleted {
		return fmt.Errorf("model %q: %w", i.Model(), core.ErrAlreadyDeleted)
	}

	if errs := i.runValidation(); len(errs) > 0 {
		return &ValidationError{Model: i.Model(), Fields: errs}
	}

	if !i.Saved() {
		key, err := i.db.store.Insert(ctx, i.schema.Collection(), i.encode(nil))
		if err != nil {
			return fmt.Errorf("insert %s: %w", i.Model(), err)
		}
		i.key = key
		i.clearDirty()
		i.logSaved(ctx, "inserted")
		return nil
	}

	attrs := i.Dirty()
	if len(attrs) == 0 {
		return nil
	}
	if err := i.db.store.Update(ctx, i.schema.Collection(), i.key, i.encode(attrs)); err != nil {
		return fmt.Errorf("update %s[%s]: %w", i.Model(), i.key, err)
	}
	i.clearDirty()
	i.logSaved(ctx, "updated")
	return nil
}

// Delete removes the instance's document. Deleting an instance that was
// never saved is programmer misuse. Reference fields declared with Cascade
// take their targets with them; other links are left to dangle and are
// reported on resolution.
func (i *Instance) Delete(ctx context.Context) error {
	if i.deleted {
		return fmt.Errorf("model %q: %w", i.Model(), core.ErrAlreadyDeleted)
	}
	if !i.Saved() {
		return fmt.Errorf("model %q: %w", i.Model(), core.ErrNotPersisted)
	}

	if err := i.cascade(ctx); err != nil {
		return err
	}

	if err := i.db.store.Delete(ctx, i.schema.Collection(), i.key); err != nil {
		return fmt.Errorf("delete %s[%s]: %w", i.Model(), i.key, err)
	}
	if log := i.db.logger(); log != nil {
		log.DebugContext(ctx, "instance deleted", "model", i.Model(), "key", i.key)
	}
	i.deleted = true
	i.key = ""
	i.ones = nil
	i.sets = nil
	return nil
}

// cascade removes documents referenced through Cascade fields.
func (i *Instance) cascade(ctx context.Context) error {
	for _, attr := range i.schema.Attrs() {
		f, _ := i.schema.Field(attr)
		if !f.Cascades() || !f.Kind().IsReference() {
			continue
		}
		target, err := i.db.reg.Lookup(f.Target())
		if err != nil {
			return err
		}
		switch f.Kind() {
		case schema.OneKind:
			if key, ok := i.values[attr].Ref(); ok {
				if err := i.cascadeDelete(ctx, target.Collection(), key); err != nil {
					return err
				}
			}
		case schema.ManyToManyKind:
			if keys, ok := i.values[attr].RefList(); ok {
				for _, key := range keys {
					if err := i.cascadeDelete(ctx, target.Collection(), key); err != nil {
						return err
					}
				}
			}
		case schema.ManyKind:
			cur, err := i.db.store.Find(ctx, target.Collection(), core.Filter{f.Inverse(): i.key})
			if err != nil {
				return fmt.Errorf("cascade %s.%s: %w", i.Model(), attr, err)
			}
			var keys []string
			for cur.Next() {
				keys = append(keys, cur.Document().Key)
			}
			err = cur.Err()
			cur.Close()
			if err != nil {
				return fmt.Errorf("cascade %s.%s: %w", i.Model(), attr, err)
			}
			for _, key := range keys {
				if err := i.cascadeDelete(ctx, target.Collection(), key); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (i *Instance) cascadeDelete(ctx context.Context, collection, key string) error {
	err := i.db.store.Delete(ctx, collection, key)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("cascade delete %s[%s]: %w", collection, key, err)
	}
	return nil
}

func (i *Instance) clearDirty() {
	i.dirty = make(map[string]struct{})
}

func (i *Instance) unknownAttr(attr string) error {
	return fmt.Errorf("model %q has no attribute %q", i.Model(), attr)
}

func (i *Instance) logSaved(ctx context.Context, op string) {
	if log := i.db.logger(); log != nil {
		log.DebugContext(ctx, "instance "+op,
			slog.String("model", i.Model()), slog.String("key", i.key))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
