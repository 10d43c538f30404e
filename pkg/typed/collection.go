// Package typed provides a generic, struct-based view over one model of a
// database. It converts between Go structs and model instances so callers
// can work with their own types while keeping schema validation, dirty
// tracking, and relationship storage underneath.
//
// Struct fields map to model attributes through their json tags. Reference
// attributes round-trip as raw keys (a string for one, a []string for
// many_to_many); query-defined many attributes are skipped since the owner
// document stores nothing for them.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/model"
	"github.com/marlkit/marl/pkg/schema"
)

// Record pairs a typed value with its document key.
type Record[T any] struct {
	Key  string
	Data T

	coll *Collection[T]
}

// Save writes the record's current Data back through the model layer,
// validating against the schema first.
func (r *Record[T]) Save(ctx context.Context) error {
	if r.coll == nil {
		return fmt.Errorf("record is detached")
	}
	return r.coll.save(ctx, r)
}

// Collection is a type-safe handle on one model.
type Collection[T any] struct {
	db    *model.DB
	model string
}

// NewCollection binds T to the named model. The model must be registered
// on the database.
func NewCollection[T any](db *model.DB, name string) (*Collection[T], error) {
	if _, err := db.Registry().Lookup(name); err != nil {
		return nil, err
	}
	return &Collection[T]{db: db, model: name}, nil
}

// Insert validates and stores a new document built from data.
func (c *Collection[T]) Insert(ctx context.Context, data T) (*Record[T], error) {
	inst, err := c.db.New(c.model)
	if err != nil {
		return nil, err
	}
	if err := c.apply(inst, data); err != nil {
		return nil, err
	}
	if err := inst.Save(ctx); err != nil {
		return nil, err
	}
	return &Record[T]{Key: inst.Key(), Data: data, coll: c}, nil
}

// Get loads one record by key.
func (c *Collection[T]) Get(ctx context.Context, key string) (*Record[T], error) {
	inst, err := c.db.Get(ctx, c.model, key)
	if err != nil {
		return nil, err
	}
	return c.fromInstance(inst)
}

// Find returns every record matching the filter.
func (c *Collection[T]) Find(ctx context.Context, filter core.Filter) ([]*Record[T], error) {
	cur, err := c.db.Find(ctx, c.model, filter)
	if err != nil {
		return nil, err
	}
	insts, err := cur.All()
	if err != nil {
		return nil, err
	}
	out := make([]*Record[T], 0, len(insts))
	for _, inst := range insts {
		rec, err := c.fromInstance(inst)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", inst.Key(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes one document by key.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	inst, err := c.db.Get(ctx, c.model, key)
	if err != nil {
		return err
	}
	return inst.Delete(ctx)
}

func (c *Collection[T]) save(ctx context.Context, r *Record[T]) error {
	inst, err := c.db.Get(ctx, c.model, r.Key)
	if err != nil {
		return err
	}
	if err := c.apply(inst, r.Data); err != nil {
		return err
	}
	return inst.Save(ctx)
}

// apply overwrites the instance's attributes from data. An attribute the
// struct does not carry (or carries as JSON null) is unset, so a record
// save replaces the whole document, not a diff.
func (c *Collection[T]) apply(inst *model.Instance, data T) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert %s data: %w", c.model, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%s data is not an object: %w", c.model, err)
	}

	s := inst.Schema()
	for _, attr := range s.Attrs() {
		field, _ := s.Field(attr)
		if skipKind(field.Kind()) {
			continue
		}
		rv, ok := fields[attr]
		if !ok || rv == nil {
			if err := inst.Unset(attr); err != nil {
				return err
			}
			continue
		}
		v, err := field.Decode(rv)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", attr, err)
		}
		if err := inst.Set(attr, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection[T]) fromInstance(inst *model.Instance) (*Record[T], error) {
	fields := make(map[string]any)
	s := inst.Schema()
	for _, attr := range s.Attrs() {
		field, _ := s.Field(attr)
		if skipKind(field.Kind()) {
			continue
		}
		v, err := inst.Get(attr)
		if err != nil {
			return nil, err
		}
		if v.IsAbsent() {
			continue
		}
		fields[attr] = field.Encode(v)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s document: %w", c.model, err)
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("document does not fit %T: %w", data, err)
	}
	return &Record[T]{Key: inst.Key(), Data: data, coll: c}, nil
}

// skipKind reports whether the typed bridge leaves an attribute to the
// model layer. many_to_many key sets are managed through RefSet and would
// be clobbered by a struct overwrite.
func skipKind(k schema.Kind) bool {
	return k == schema.ManyKind || k == schema.ManyToManyKind
}
