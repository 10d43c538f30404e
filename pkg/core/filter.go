package core

import "reflect"

// KeyField is the reserved filter field addressing a document's identity.
const KeyField = "_id"

// Filter selects documents by field value. A plain value means equality;
// an In condition means set membership. An empty (or nil) filter matches
// every document.
type Filter map[string]any

// InCond matches a field whose value is any of the listed values.
type InCond struct {
	Values []any
}

// In builds a set-membership condition for use as a Filter value.
func In(values ...any) InCond {
	return InCond{Values: values}
}

// InKeys builds a set-membership condition from a key list.
func InKeys(keys []string) InCond {
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return InCond{Values: values}
}

// Match reports whether a document satisfies the filter. Adapters without
// native query support delegate to this helper so that filter semantics
// stay identical across stores.
func Match(doc Document, filter Filter) bool {
	for name, want := range filter {
		var got any
		if name == KeyField {
			got = doc.Key
		} else {
			var ok bool
			got, ok = doc.Fields[name]
			if !ok {
				return false
			}
		}
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got, want any) bool {
	if in, ok := want.(InCond); ok {
		for _, v := range in.Values {
			if looseEqual(got, v) {
				return true
			}
		}
		return false
	}
	return looseEqual(got, want)
}

// looseEqual compares scalars tolerating the numeric widening that document
// serialization performs (ints read back as int64 or float64). Uncomparable
// operands (a slice passed as a plain filter value) never panic; they fall
// through to the membership checks below.
func looseEqual(a, b any) bool {
	if isComparable(a) && isComparable(b) && a == b {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	if as, ok := a.([]any); ok {
		// Membership test: a stored list matches when it contains the value.
		for _, v := range as {
			if looseEqual(v, b) {
				return true
			}
		}
	}
	if as, ok := a.([]string); ok {
		for _, v := range as {
			if v == b {
				return true
			}
		}
	}
	return false
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
