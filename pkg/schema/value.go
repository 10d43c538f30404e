package schema

import (
	"fmt"
	"strconv"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindTime
	KindRef
	KindRefList
)

func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime"
	case KindRef:
		return "reference"
	case KindRefList:
		return "reference list"
	}
	return "unknown"
}

// Value is the closed set of shapes an attribute can hold. The zero Value
// is absent. Consumers switch on Kind and read the matching accessor; there
// is no way to smuggle an arbitrary Go value into an instance.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	t    time.Time
	keys []string // KindRef uses keys[0]; KindRefList uses all
}

// String builds a text value.
func String(s string) Value { return Value{kind: KindText, str: s} }

// Float builds a numeric value.
func Float(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int builds a numeric value from an integer.
func Int(n int) Value { return Value{kind: KindNumber, num: float64(n)} }

// Boolean builds a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBool, b: b} }

// Time builds a datetime value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Ref builds a single-reference value from a store key.
func Ref(key string) Value { return Value{kind: KindRef, keys: []string{key}} }

// Refs builds a reference-list value from store keys.
func Refs(keys []string) Value {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return Value{kind: KindRefList, keys: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the value is unset.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Text returns the text variant.
func (v Value) Text() (string, bool) { return v.str, v.kind == KindText }

// Number returns the numeric variant.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean variant.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the datetime variant.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// Ref returns the single-reference key.
func (v Value) Ref() (string, bool) {
	if v.kind != KindRef || len(v.keys) == 0 {
		return "", false
	}
	return v.keys[0], true
}

// RefList returns a copy of the reference-list keys.
func (v Value) RefList() ([]string, bool) {
	if v.kind != KindRefList {
		return nil, false
	}
	cp := make([]string, len(v.keys))
	copy(cp, v.keys)
	return cp, true
}

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindText:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindRef, KindRefList:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for i := range v.keys {
			if v.keys[i] != o.keys[i] {
				return false
			}
		}
		return true
	}
	return false
}

// GoString renders the value for logs and CLI output.
func (v Value) GoString() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindText:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindRef:
		return "ref(" + v.keys[0] + ")"
	case KindRefList:
		return fmt.Sprintf("refs(%v)", v.keys)
	}
	return "<invalid>"
}
