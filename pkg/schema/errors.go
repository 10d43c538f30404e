package schema

import "fmt"

// Code classifies a validation error.
type Code string

const (
	CodeRequired     Code = "required"
	CodeTypeMismatch Code = "type_mismatch"
	CodeConstraint   Code = "constraint_violation"
	CodeInvariant    Code = "object_invariant"
	CodeDangling     Code = "dangling_reference"
)

// ObjectAttr is the reserved pseudo-attribute under which object-level
// invariant failures are reported. It cannot be declared as a real attribute.
const ObjectAttr = "_object"

// FieldError describes one validation failure. Validation errors are data,
// not faults: they are collected and returned to the caller for rendering,
// never raised.
type FieldError struct {
	Code       Code
	Constraint string // e.g. "maxlength:100"; set for CodeConstraint only
	Message    string
}

func (e FieldError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Constraint, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func requiredErr() FieldError {
	return FieldError{Code: CodeRequired, Message: "this field is required"}
}

func mismatchErr(format string, args ...any) FieldError {
	return FieldError{Code: CodeTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

func constraintErr(constraint, format string, args ...any) FieldError {
	return FieldError{
		Code:       CodeConstraint,
		Constraint: constraint,
		Message:    fmt.Sprintf(format, args...),
	}
}

// InvariantError builds an object-level invariant failure. Invariant
// functions return these; the pipeline files them under ObjectAttr.
func InvariantError(format string, args ...any) FieldError {
	return FieldError{Code: CodeInvariant, Message: fmt.Sprintf(format, args...)}
}

// ErrorMap collects validation failures per attribute name. Object-level
// failures live under ObjectAttr.
type ErrorMap map[string][]FieldError

// Has reports whether the attribute collected any errors.
func (m ErrorMap) Has(attr string) bool { return len(m[attr]) > 0 }

// Add appends an error for an attribute.
func (m ErrorMap) Add(attr string, errs ...FieldError) {
	if len(errs) == 0 {
		return
	}
	m[attr] = append(m[attr], errs...)
}
