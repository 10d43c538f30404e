package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marlkit/marl/pkg/schema"
)

// ValidationError carries the structured error map of a failed save. It is
// an error so Save has a single return, but the payload is data the caller
// renders; use errors.As to get at the field map.
type ValidationError struct {
	Model  string
	Fields schema.ErrorMap
}

func (e *ValidationError) Error() string {
	attrs := make([]string, 0, len(e.Fields))
	for attr := range e.Fields {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return fmt.Sprintf("model %q failed validation: %s",
		e.Model, strings.Join(attrs, ", "))
}

// runValidation executes the full pipeline: the previous error state is
// discarded first, then every declared field is checked in declaration
// order — no cross-field short-circuit, so one failed save reports every
// violation at once. The object-level invariant runs only when all fields
// passed; its failures land under schema.ObjectAttr.
func (i *Instance) runValidation() schema.ErrorMap {
	i.errs = nil

	errs := make(schema.ErrorMap)
	for _, attr := range i.schema.Attrs() {
		f, _ := i.schema.Field(attr)
		if f.Kind() == schema.ManyKind {
			// Derived from the target collection; nothing stored to check.
			continue
		}
		normalized, ferrs := f.Validate(i.values[attr])
		if len(ferrs) > 0 {
			errs.Add(attr, ferrs...)
			continue
		}
		if !normalized.IsAbsent() && !normalized.Equal(i.values[attr]) {
			i.values[attr] = normalized
		}
	}

	if len(errs) == 0 {
		if ferrs := i.schema.CheckInvariant(i.snapshot()); len(ferrs) > 0 {
			errs.Add(schema.ObjectAttr, ferrs...)
		}
	}

	if len(errs) > 0 {
		i.errs = errs
		return errs
	}
	return nil
}

// snapshot copies current values for the invariant check, so a misbehaving
// invariant function cannot mutate instance state.
func (i *Instance) snapshot() map[string]schema.Value {
	out := make(map[string]schema.Value, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}
