package schema

import (
	"testing"
	"time"
)

func TestText_Required(t *testing.T) {
	f := Text(Required())

	_, errs := f.Validate(Value{})
	if len(errs) != 1 || errs[0].Code != CodeRequired {
		t.Fatalf("expected a single required error, got %v", errs)
	}

	// Optional text accepts absence silently.
	g := Text()
	if _, errs := g.Validate(Value{}); len(errs) != 0 {
		t.Errorf("expected optional field to accept absence, got %v", errs)
	}
}

func TestText_MaxLength(t *testing.T) {
	f := Text(Required(), MaxLength(100))

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	_, errs := f.Validate(String(string(long)))
	if len(errs) != 1 || errs[0].Code != CodeConstraint {
		t.Fatalf("expected constraint violation, got %v", errs)
	}
	if errs[0].Constraint != "maxlength:100" {
		t.Errorf("expected constraint name maxlength:100, got %q", errs[0].Constraint)
	}

	// Exactly at the bound passes.
	if _, errs := f.Validate(String(string(long[:100]))); len(errs) != 0 {
		t.Errorf("expected length 100 to pass, got %v", errs)
	}
}

func TestText_CollectsAllConstraints(t *testing.T) {
	f := Text(MinLength(5), Pattern(`^[a-z]+$`))

	_, errs := f.Validate(String("A1"))
	if len(errs) != 2 {
		t.Fatalf("expected both constraint failures reported, got %v", errs)
	}
}

func TestText_TypeMismatchShortCircuits(t *testing.T) {
	f := Text(MaxLength(3))

	_, errs := f.Validate(Int(42))
	if len(errs) != 1 || errs[0].Code != CodeTypeMismatch {
		t.Fatalf("expected only a type mismatch, got %v", errs)
	}
}

func TestEmail(t *testing.T) {
	f := Email(Required())

	if _, errs := f.Validate(String("a@b.com")); len(errs) != 0 {
		t.Errorf("expected a@b.com to pass, got %v", errs)
	}

	_, errs := f.Validate(String("not-an-email"))
	if len(errs) != 1 || errs[0].Code != CodeTypeMismatch {
		t.Errorf("expected type mismatch for not-an-email, got %v", errs)
	}
}

func TestNumber_Bounds(t *testing.T) {
	f := Number(Min(1), Max(10))

	if _, errs := f.Validate(Float(5)); len(errs) != 0 {
		t.Errorf("expected in-range number to pass, got %v", errs)
	}
	if _, errs := f.Validate(Float(0)); len(errs) != 1 || errs[0].Constraint != "min:1" {
		t.Errorf("expected min violation, got %v", errs)
	}
	if _, errs := f.Validate(Float(11)); len(errs) != 1 || errs[0].Constraint != "max:10" {
		t.Errorf("expected max violation, got %v", errs)
	}
	if _, errs := f.Validate(String("3")); len(errs) != 1 || errs[0].Code != CodeTypeMismatch {
		t.Errorf("expected type mismatch for text, got %v", errs)
	}
}

func TestReferenceFields_ShapeOnly(t *testing.T) {
	one := One("person", Required())
	if _, errs := one.Validate(Ref("some-key")); len(errs) != 0 {
		t.Errorf("expected reference value to pass, got %v", errs)
	}
	if _, errs := one.Validate(String("some-key")); len(errs) != 1 || errs[0].Code != CodeTypeMismatch {
		t.Errorf("expected mismatch for non-handle value, got %v", errs)
	}

	m2m := ManyToMany("tag", "posts")
	if _, errs := m2m.Validate(Refs([]string{"a", "b"})); len(errs) != 0 {
		t.Errorf("expected reference list to pass, got %v", errs)
	}
	if _, errs := m2m.Validate(Ref("a")); len(errs) != 1 || errs[0].Code != CodeTypeMismatch {
		t.Errorf("expected mismatch for single ref, got %v", errs)
	}
}

func TestFieldCodec_RoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		value Value
	}{
		{"text", Text(), String("hello")},
		{"number", Number(), Float(23.7)},
		{"bool", Bool(), Boolean(true)},
		{"time", DateTime(), Time(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))},
		{"one", One("person"), Ref("k1")},
		{"m2m", ManyToMany("tag", "posts"), Refs([]string{"k1", "k2"})},
	}

	for _, tc := range cases {
		raw := tc.field.Encode(tc.value)
		got, err := tc.field.Decode(raw)
		if err != nil {
			t.Errorf("%s: decode failed: %v", tc.name, err)
			continue
		}
		if !got.Equal(tc.value) {
			t.Errorf("%s: round trip changed value: %#v != %#v", tc.name, got, tc.value)
		}
	}
}

func TestFieldDecode_Tolerance(t *testing.T) {
	// Numbers widen to float64 regardless of how a document codec decoded them.
	got, err := Number().Decode(int64(42))
	if err != nil {
		t.Fatalf("decode int64: %v", err)
	}
	if n, _ := got.Number(); n != 42 {
		t.Errorf("expected 42, got %g", n)
	}

	// Key lists arrive as []any from generic codecs.
	got, err = ManyToMany("tag", "posts").Decode([]any{"a", "b"})
	if err != nil {
		t.Fatalf("decode []any: %v", err)
	}
	keys, _ := got.RefList()
	if len(keys) != 2 || keys[0] != "a" {
		t.Errorf("unexpected keys: %v", keys)
	}

	// nil means absent, not an error.
	got, err = Text().Decode(nil)
	if err != nil || !got.IsAbsent() {
		t.Errorf("expected absent for nil, got %#v err %v", got, err)
	}

	// A structurally wrong value errors instead of panicking.
	if _, err := Number().Decode("nope"); err == nil {
		t.Error("expected error for wrong raw type")
	}
}
