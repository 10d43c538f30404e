package schema

import (
	"fmt"
	"regexp"
	"time"
)

// Kind tags what shape of attribute a Field describes.
type Kind int

const (
	TextKind Kind = iota
	EmailKind
	NumberKind
	BoolKind
	TimeKind
	OneKind
	ManyKind
	ManyToManyKind
)

func (k Kind) String() string {
	switch k {
	case TextKind:
		return "text"
	case EmailKind:
		return "email"
	case NumberKind:
		return "numeric"
	case BoolKind:
		return "boolean"
	case TimeKind:
		return "datetime"
	case OneKind:
		return "one"
	case ManyKind:
		return "many"
	case ManyToManyKind:
		return "many_to_many"
	}
	return "unknown"
}

// IsReference reports whether the kind refers to other model instances.
func (k Kind) IsReference() bool {
	return k == OneKind || k == ManyKind || k == ManyToManyKind
}

// Field describes one attribute: its kind, its constraints and, for
// reference kinds, the target model. Fields are immutable once built.
type Field struct {
	kind     Kind
	required bool
	cascade  bool
	minLen   int // -1 = unset
	maxLen   int // -1 = unset
	min      *float64
	max      *float64
	pattern  *regexp.Regexp
	target   string // reference kinds: target model name (resolved lazily)
	inverse  string // ManyToMany: inverse attr on target; Many: owner-key attr on target
}

// FieldOption configures a Field at declaration time.
type FieldOption func(*Field)

// Required makes absence a validation failure.
func Required() FieldOption { return func(f *Field) { f.required = true } }

// MaxLength bounds text length from above.
func MaxLength(n int) FieldOption { return func(f *Field) { f.maxLen = n } }

// MinLength bounds text length from below.
func MinLength(n int) FieldOption { return func(f *Field) { f.minLen = n } }

// Min bounds a numeric field from below (inclusive).
func Min(v float64) FieldOption { return func(f *Field) { x := v; f.min = &x } }

// Max bounds a numeric field from above (inclusive).
func Max(v float64) FieldOption { return func(f *Field) { x := v; f.max = &x } }

// Pattern constrains a text field to a regular expression. A malformed
// expression is a programming error and panics at declaration time.
func Pattern(expr string) FieldOption {
	re := regexp.MustCompile(expr)
	return func(f *Field) { f.pattern = re }
}

// Cascade makes deleting the owner also delete the referenced document(s).
func Cascade() FieldOption { return func(f *Field) { f.cascade = true } }

func newField(kind Kind, opts ...FieldOption) Field {
	f := Field{kind: kind, minLen: -1, maxLen: -1}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Text declares a text attribute.
func Text(opts ...FieldOption) Field { return newField(TextKind, opts...) }

// Email declares a text attribute that must look like an email address.
func Email(opts ...FieldOption) Field { return newField(EmailKind, opts...) }

// Number declares a numeric attribute.
func Number(opts ...FieldOption) Field { return newField(NumberKind, opts...) }

// Bool declares a boolean attribute.
func Bool(opts ...FieldOption) Field { return newField(BoolKind, opts...) }

// DateTime declares a datetime attribute. Document values round-trip as
// RFC 3339 strings.
func DateTime(opts ...FieldOption) Field { return newField(TimeKind, opts...) }

// One declares a single reference to the named target model. The target is
// a name so that mutually referencing models can be declared in any order;
// it is resolved against the registry on first use.
func One(target string, opts ...FieldOption) Field {
	f := newField(OneKind, opts...)
	f.target = target
	return f
}

// Many declares a multi-valued reference defined by a filter over the
// target collection: documents of target whose via attribute holds the
// owner's key. The owner document stores nothing for this attribute.
func Many(target, via string, opts ...FieldOption) Field {
	f := newField(ManyKind, opts...)
	f.target = target
	f.inverse = via
	return f
}

// ManyToMany declares a bidirectional association with the named target
// model. Each side stores its own key set; inverse names the attribute on
// the target that mirrors this one.
func ManyToMany(target, inverse string, opts ...FieldOption) Field {
	f := newField(ManyToManyKind, opts...)
	f.target = target
	f.inverse = inverse
	return f
}

// Kind returns the field's kind tag.
func (f Field) Kind() Kind { return f.kind }

// IsRequired reports whether absence fails validation.
func (f Field) IsRequired() bool { return f.required }

// Cascades reports whether deletes propagate through this reference.
func (f Field) Cascades() bool { return f.cascade }

// Target returns the referenced model name for reference kinds.
func (f Field) Target() string { return f.target }

// Inverse returns the mirror attribute name: the inverse field for
// ManyToMany, or the owner-key attribute on the target for Many.
func (f Field) Inverse() string { return f.inverse }

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)

// Validate checks one value against the field's rules and returns the
// normalized value. The required check runs first and alone; when the value
// is present, the kind check runs next and alone; constraint checks are
// then all collected so a caller sees every violated constraint at once.
func (f Field) Validate(v Value) (Value, []FieldError) {
	if v.IsAbsent() {
		if f.required {
			return v, []FieldError{requiredErr()}
		}
		return v, nil
	}

	switch f.kind {
	case TextKind, EmailKind:
		s, ok := v.Text()
		if !ok {
			return v, []FieldError{mismatchErr("expected text, got %s", v.Kind())}
		}
		if f.kind == EmailKind && !emailPattern.MatchString(s) {
			return v, []FieldError{mismatchErr("%q is not a valid email address", s)}
		}
		var errs []FieldError
		if f.minLen >= 0 && len(s) < f.minLen {
			errs = append(errs, constraintErr(fmt.Sprintf("minlength:%d", f.minLen),
				"must be at least %d characters", f.minLen))
		}
		if f.maxLen >= 0 && len(s) > f.maxLen {
			errs = append(errs, constraintErr(fmt.Sprintf("maxlength:%d", f.maxLen),
				"must be at most %d characters", f.maxLen))
		}
		if f.pattern != nil && !f.pattern.MatchString(s) {
			errs = append(errs, constraintErr("pattern:"+f.pattern.String(),
				"does not match the required pattern"))
		}
		return v, errs

	case NumberKind:
		n, ok := v.Number()
		if !ok {
			return v, []FieldError{mismatchErr("expected a number, got %s", v.Kind())}
		}
		var errs []FieldError
		if f.min != nil && n < *f.min {
			errs = append(errs, constraintErr(fmt.Sprintf("min:%g", *f.min),
				"must be at least %g", *f.min))
		}
		if f.max != nil && n > *f.max {
			errs = append(errs, constraintErr(fmt.Sprintf("max:%g", *f.max),
				"must be at most %g", *f.max))
		}
		return v, errs

	case BoolKind:
		if _, ok := v.Bool(); !ok {
			return v, []FieldError{mismatchErr("expected a boolean, got %s", v.Kind())}
		}
		return v, nil

	case TimeKind:
		if _, ok := v.AsTime(); !ok {
			return v, []FieldError{mismatchErr("expected a datetime, got %s", v.Kind())}
		}
		return v, nil

	case OneKind:
		// Only the handle shape is validated here. Whether the key actually
		// resolves is reported at resolution time, not save time.
		if _, ok := v.Ref(); !ok {
			return v, []FieldError{mismatchErr("expected a reference, got %s", v.Kind())}
		}
		return v, nil

	case ManyKind, ManyToManyKind:
		if _, ok := v.RefList(); !ok {
			return v, []FieldError{mismatchErr("expected a reference list, got %s", v.Kind())}
		}
		return v, nil
	}

	return v, []FieldError{mismatchErr("unsupported field kind")}
}

// Encode translates an in-memory value to its stored document form.
func (f Field) Encode(v Value) any {
	switch v.Kind() {
	case KindText:
		s, _ := v.Text()
		return s
	case KindNumber:
		n, _ := v.Number()
		return n
	case KindBool:
		b, _ := v.Bool()
		return b
	case KindTime:
		t, _ := v.AsTime()
		return t.Format(time.RFC3339Nano)
	case KindRef:
		k, _ := v.Ref()
		return k
	case KindRefList:
		keys, _ := v.RefList()
		return keys
	}
	return nil
}

// Decode translates a stored document value back to an in-memory value.
// Stored documents are trusted to satisfy the schema that wrote them, so no
// validation runs here; only structural mismatches produce an error.
func (f Field) Decode(raw any) (Value, error) {
	if raw == nil {
		return Value{}, nil
	}

	switch f.kind {
	case TextKind, EmailKind:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return String(s), nil

	case NumberKind:
		switch n := raw.(type) {
		case int:
			return Float(float64(n)), nil
		case int32:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		case float32:
			return Float(float64(n)), nil
		case float64:
			return Float(n), nil
		}
		return Value{}, fmt.Errorf("expected number, got %T", raw)

	case BoolKind:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return Boolean(b), nil

	case TimeKind:
		switch t := raw.(type) {
		case time.Time:
			return Time(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return Value{}, fmt.Errorf("invalid datetime %q: %w", t, err)
			}
			return Time(parsed), nil
		}
		return Value{}, fmt.Errorf("expected datetime, got %T", raw)

	case OneKind:
		k, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected reference key, got %T", raw)
		}
		return Ref(k), nil

	case ManyKind, ManyToManyKind:
		switch keys := raw.(type) {
		case []string:
			return Refs(keys), nil
		case []any:
			out := make([]string, 0, len(keys))
			for _, k := range keys {
				s, ok := k.(string)
				if !ok {
					return Value{}, fmt.Errorf("expected reference key, got %T", k)
				}
				out = append(out, s)
			}
			return Refs(out), nil
		}
		return Value{}, fmt.Errorf("expected reference key list, got %T", raw)
	}

	return Value{}, fmt.Errorf("unsupported field kind %s", f.kind)
}
