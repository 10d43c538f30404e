package core

// Document is the raw unit of storage: a schemaless field map identified
// by a store-assigned key. The model layer translates between Documents
// and typed instances; adapters only ever see this shape.
type Document struct {
	Key    string
	Fields map[string]any
}

// Clone returns a deep-enough copy of the document for adapters that hand
// documents out of an in-memory map. Field values themselves are copied one
// level deep (slices of scalars are duplicated).
func (d Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		if s, ok := v.([]any); ok {
			cp := make([]any, len(s))
			copy(cp, s)
			fields[k] = cp
			continue
		}
		if s, ok := v.([]string); ok {
			cp := make([]string, len(s))
			copy(cp, s)
			fields[k] = cp
			continue
		}
		fields[k] = v
	}
	return Document{Key: d.Key, Fields: fields}
}

// EventType represents the kind of out-of-band change observed in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored document, emitted by Watchable stores.
type Event struct {
	Type       EventType
	Collection string
	Key        string
	Timestamp  int64 // Unix timestamp
}

// String implements fmt.Stringer (and the lifecycle event contract).
func (e Event) String() string {
	return string(e.Type) + " " + e.Collection + "/" + e.Key
}
