// Package schema implements the declarative side of the mapper: attribute
// values as a closed tagged variant, per-attribute Fields with validation
// rules, ordered model Schemas composed from those fields, and a Registry
// that resolves model names (including forward references between mutually
// referencing models).
package schema
