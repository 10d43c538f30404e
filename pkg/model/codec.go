package model

import (
	"fmt"

	"github.com/marlkit/marl/pkg/core"
	"github.com/marlkit/marl/pkg/schema"
)

// encode translates instance state to stored document shape. With a nil
// attribute list every present value is encoded (insert); otherwise only
// the listed attributes are, with absent values encoded as nil so a partial
// update removes them; attributes outside the list are never touched.
func (i *Instance) encode(attrs []string) map[string]any {
	if attrs == nil {
		attrs = i.schema.Attrs()
	}
	fields := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		f, ok := i.schema.Field(attr)
		if !ok || f.Kind() == schema.ManyKind {
			continue
		}
		v, present := i.values[attr]
		if !present {
			if _, wasDirty := i.dirty[attr]; wasDirty {
				fields[attr] = nil // explicit unset
			}
			continue
		}
		fields[attr] = f.Encode(v)
	}
	return fields
}

// decodeInstance materializes an instance from a raw document by applying
// each field's inverse coercion. Validation does not run: stored documents
// are trusted to satisfy the schema that wrote them. Document fields with
// no declared attribute are ignored, tolerating schema evolution. The
// dirty set starts empty.
func decodeInstance(db *DB, s *schema.Schema, doc core.Document) (*Instance, error) {
	i := newInstance(db, s)
	i.key = doc.Key
	for _, attr := range s.Attrs() {
		f, _ := s.Field(attr)
		if f.Kind() == schema.ManyKind {
			continue
		}
		raw, ok := doc.Fields[attr]
		if !ok || raw == nil {
			continue
		}
		v, err := f.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s[%s].%s: %w", s.Name(), doc.Key, attr, err)
		}
		i.values[attr] = v
	}
	return i, nil
}

// Cursor materializes instances from a store cursor lazily. Iterating it a
// second time requires re-issuing the query that produced it.
type Cursor struct {
	db     *DB
	schema *schema.Schema
	inner  core.Cursor
	cur    *Instance
	err    error
}

// Next advances, decoding the next document. Returns false on exhaustion
// or error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.inner.Next() {
		return false
	}
	inst, err := decodeInstance(c.db, c.schema, c.inner.Document())
	if err != nil {
		c.err = err
		return false
	}
	c.cur = inst
	return true
}

// Instance returns the current instance; valid only after Next returned true.
func (c *Cursor) Instance() *Instance { return c.cur }

// Err reports the first iteration or decode error.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.inner.Err()
}

// Close releases the underlying store cursor.
func (c *Cursor) Close() error { return c.inner.Close() }

// All drains the cursor into a slice and closes it.
func (c *Cursor) All() ([]*Instance, error) {
	defer c.Close()
	var out []*Instance
	for c.Next() {
		out = append(out, c.Instance())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
