package core

import "errors"

// Common errors. Validation failures are structured data, not errors; the
// sentinels here mark store outcomes and programmer misuse.
var (
	// ErrNotFound is returned by stores when no document has the given key.
	ErrNotFound = errors.New("document not found")

	// ErrNotPersisted marks an operation that requires a store identity on
	// an instance that was never saved.
	ErrNotPersisted = errors.New("instance has not been persisted")

	// ErrAlreadyDeleted marks a save attempt on a deleted instance.
	ErrAlreadyDeleted = errors.New("instance has been deleted")

	// ErrUnknownModel marks a reference to a model name that was never
	// registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrWrongModel marks a reference assignment whose target instance is
	// of a different model than the field declares.
	ErrWrongModel = errors.New("instance is of the wrong model")

	// ErrDanglingReference marks a reference whose key resolved to no
	// document. It is reported at resolution time, never at save time, and
	// is distinct from an optional reference being absent.
	ErrDanglingReference = errors.New("dangling reference")
)
