package schema

import (
	"fmt"
	"strings"
)

// InvariantFunc is an object-level cross-field check. It runs only after
// every per-field check passed, against the normalized attribute values.
// Returned errors are filed under ObjectAttr.
type InvariantFunc func(values map[string]Value) []FieldError

// Schema is a named, ordered mapping of attribute name to Field. Schemas
// are immutable once built; composition happens through Extend.
type Schema struct {
	name       string
	collection string
	order      []string
	fields     map[string]Field
	invariant  InvariantFunc
}

// Option configures a Schema at build time.
type Option func(*Schema) error

// WithAttr appends an attribute. Declaration order is preserved; it decides
// error-report order, nothing else.
func WithAttr(name string, f Field) Option {
	return func(s *Schema) error {
		if name == "" {
			return fmt.Errorf("attribute name cannot be empty")
		}
		if name == ObjectAttr {
			return fmt.Errorf("attribute name %q is reserved", ObjectAttr)
		}
		if strings.HasPrefix(name, "_") {
			return fmt.Errorf("attribute name %q: leading underscore is reserved", name)
		}
		if _, dup := s.fields[name]; dup {
			return fmt.Errorf("duplicate attribute %q", name)
		}
		// A many attribute stores nothing on the owner, so validation never
		// sees it; required would silently mean nothing.
		if f.Kind() == ManyKind && f.IsRequired() {
			return fmt.Errorf("attribute %q: a many reference cannot be required", name)
		}
		s.order = append(s.order, name)
		s.fields[name] = f
		return nil
	}
}

// WithCollection overrides the default (pluralized model name) collection.
func WithCollection(name string) Option {
	return func(s *Schema) error {
		s.collection = name
		return nil
	}
}

// WithInvariant installs the object-level cross-field check.
func WithInvariant(fn InvariantFunc) Option {
	return func(s *Schema) error {
		s.invariant = fn
		return nil
	}
}

// New builds a schema for the named model.
func New(name string, opts ...Option) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	s := &Schema{
		name:   name,
		fields: make(map[string]Field),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
	}
	if s.collection == "" {
		s.collection = pluralize(name)
	}
	return s, nil
}

// MustNew is New for package-level schema declarations, where a malformed
// declaration is a programming error.
func MustNew(name string, opts ...Option) *Schema {
	s, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Extend builds a schema for a new model from a base schema: base attributes
// are copied in order, then the options apply. An option may override a base
// attribute, but never with a field of a different kind — silent shadowing
// with an incompatible shape is refused.
func Extend(base *Schema, name string, opts ...Option) (*Schema, error) {
	if base == nil {
		return nil, fmt.Errorf("model %q: base schema is nil", name)
	}
	s := &Schema{
		name:      name,
		order:     append([]string(nil), base.order...),
		fields:    make(map[string]Field, len(base.fields)),
		invariant: base.invariant,
	}
	for k, v := range base.fields {
		s.fields[k] = v
	}
	for _, opt := range opts {
		if err := applyExtension(s, opt); err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if s.collection == "" {
		s.collection = pluralize(name)
	}
	return s, nil
}

// applyExtension runs an option against a scratch schema so overrides can be
// detected and kind-checked instead of rejected as duplicates.
func applyExtension(s *Schema, opt Option) error {
	scratch := &Schema{name: s.name, fields: make(map[string]Field)}
	if err := opt(scratch); err != nil {
		return err
	}
	if scratch.collection != "" {
		s.collection = scratch.collection
	}
	if scratch.invariant != nil {
		s.invariant = scratch.invariant
	}
	for _, attr := range scratch.order {
		f := scratch.fields[attr]
		if prev, exists := s.fields[attr]; exists {
			if prev.Kind() != f.Kind() {
				return fmt.Errorf("attribute %q: cannot override %s field with %s",
					attr, prev.Kind(), f.Kind())
			}
			s.fields[attr] = f
			continue
		}
		s.order = append(s.order, attr)
		s.fields[attr] = f
	}
	return nil
}

// Name returns the model name.
func (s *Schema) Name() string { return s.name }

// Collection returns the backing collection name.
func (s *Schema) Collection() string { return s.collection }

// Attrs returns the attribute names in declaration order.
func (s *Schema) Attrs() []string {
	return append([]string(nil), s.order...)
}

// Field looks up an attribute's field.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// CheckInvariant runs the object-level check, if any.
func (s *Schema) CheckInvariant(values map[string]Value) []FieldError {
	if s.invariant == nil {
		return nil
	}
	return s.invariant(values)
}

// pluralize derives the default collection name from a model name:
// names ending in "s" gain "es", others gain "s".
func pluralize(name string) string {
	if strings.HasSuffix(name, "s") {
		return name + "es"
	}
	return name + "s"
}
