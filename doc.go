// Package marl is the composition root for the Marl object-document mapper.
//
// It connects the declarative model layer (schemas, instances, validation,
// relationships) with the storage adapters (filesystem, in-memory) behind
// the core.Store contract.
//
// Philosophy:
//
// Marl maps declared models onto schemaless document collections. Models
// describe WHAT a document must look like; the store only ever sees plain
// maps. Validation runs entirely in memory before any write, relationships
// resolve lazily through the owning database handle, and every adapter is
// replaceable via core.Store.
//
// Features:
//
//   - **Declarative models**: typed fields with constraints, composition
//     via Extend, and object-level invariants.
//   - **Dirty tracking**: Save writes only the attributes that changed.
//   - **Lazy relationships**: One, Many, and ManyToMany references resolve
//     on access and cache per instance.
//   - **Validation first**: a failed Save never touches the store.
//   - **Pluggable storage**: filesystem YAML documents out of the box, any
//     core.Store beyond that.
//
// Usage:
//
//	reg := schema.NewRegistry()
//	reg.MustRegister(schema.MustNew("person",
//		schema.WithAttr("name", schema.Text(schema.Required())),
//	))
//
//	db, err := marl.OpenDir(ctx, "./data", reg, marl.WithAutoInit(true))
//
//	p, _ := db.New("person")
//	p.Set("name", schema.String("Ada"))
//	err = p.Save(ctx)
package marl
