// Package ids generates stable, sortable identifiers for queries, events,
// and pending impressions. It mirrors the teacher's UUIDv7 convention
// (sequential, timestamp-ordered, B-Tree friendly) without the SQLite
// scanner/valuer plumbing this domain doesn't need.
package ids

import "github.com/google/uuid"

// New returns a new UUIDv7 string. UUIDv7 embeds a millisecond timestamp so
// ids sort chronologically, which keeps event-log and pending-impression
// ordering cheap to reason about without a separate timestamp index.
func New() string {
	id := uuid.Must(uuid.NewV7())
	return id.String()
}

// Generator produces a new id string on each call.
type Generator func() string

// Prefixed wraps a Generator, prepending a fixed label (e.g. "evt_", "q_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Default is the package-level generator used unless a component is
// constructed with an explicit override (tests inject a deterministic one).
var Default Generator = New
