// Package eventstore owns the append-only UserEvent log and the per-user
// bandit registry from spec.md §3 and §4.8. It exposes one interface with
// two backends: an in-memory map (the default, and the one exercised by
// most of the test suite) and an optional modernc.org/sqlite-backed store
// for deployments that want the event log to survive a restart. Per-user
// isolation and one-operation reset are the invariants both backends must
// uphold (spec.md §3's "per-user state is fully deletable with one
// operation").
package eventstore

import (
	"context"
	"time"

	"github.com/lucenthq/lucent/internal/bandit"
	"github.com/lucenthq/lucent/internal/engine"
)

// Store is the persistence boundary for user events and per-user bandits.
type Store interface {
	// Append records one event and, if it carries click-worthy feature
	// evidence, folds it into the user's bandit.
	Append(ctx context.Context, event engine.UserEvent) error

	// ListEvents returns a user's events in insertion order.
	ListEvents(ctx context.Context, userID string) ([]engine.UserEvent, error)

	// Bandit returns the user's bandit, creating one on first use.
	Bandit(userID string) *bandit.Bandit

	// Preferences reports the user's top arms and total interaction count.
	Preferences(ctx context.Context, userID string) (topArms []bandit.ArmScore, totalInteractions int, err error)

	// Reset wipes a user's events, pending impressions, and arm stats.
	Reset(ctx context.Context, userID string) error

	// Close releases any backend resources.
	Close() error
}

const topArmsLimit = 5

// applyClickEvidence folds a click-type event carrying feature metadata
// into the bandit as a resolved success, per spec.md §4.8's recordClick.
func applyClickEvidence(b *bandit.Bandit, event engine.UserEvent) {
	if event.Meta == nil || event.Meta.Features == nil {
		return
	}
	switch event.EventType {
	case engine.EventSourceClicked, engine.EventCitationClicked:
		b.RecordClick(event.Meta.Features.Arms(), event.SourceID)
	}
}

func stampEvent(event engine.UserEvent, now time.Time, genID func() string) engine.UserEvent {
	if event.ID == "" {
		event.ID = genID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	return event
}
