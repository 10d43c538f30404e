// Package model holds the live side of the mapper: DB binds a schema
// registry to a document store; Instance carries one record's attribute
// values, dirty set and validation errors; relationship handles resolve
// references lazily, one hop at a time, and keep both sides of a
// many-to-many association consistent.
//
// An Instance's mutable state is owned by a single caller at a time. The
// package adds no locking of its own; concurrent writers need external
// synchronization, matching request-scoped usage of document-store clients.
package model
