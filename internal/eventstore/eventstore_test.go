package eventstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lucenthq/lucent/internal/engine"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "events.db"), 0)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(0),
		"sqlite": sqliteStore,
	}
}

func TestAppendAndListEvents(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			event := engine.UserEvent{UserID: "u1", EventType: engine.EventSourceExpanded, SourceID: "s1"}
			if err := store.Append(ctx, event); err != nil {
				t.Fatalf("Append: %v", err)
			}

			events, err := store.ListEvents(ctx, "u1")
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			if events[0].ID == "" {
				t.Error("expected generated id")
			}
			if events[0].Timestamp.IsZero() {
				t.Error("expected stamped timestamp")
			}
		})
	}
}

func TestAppend_ClickWithFeaturesFeedsIntoBandit(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			features := engine.ContentFeatures{
				Depth: "expert", Style: "technical", Format: "reference",
				Approach: "practical", Density: "moderate",
			}
			event := engine.UserEvent{
				UserID:    "u1",
				EventType: engine.EventSourceClicked,
				SourceID:  "s1",
				Meta:      &engine.EventMeta{Features: &features},
			}
			if err := store.Append(ctx, event); err != nil {
				t.Fatalf("Append: %v", err)
			}

			scores := store.Bandit("u1").Scores()
			if got := scores["depth:expert"]; got <= 0.5 {
				t.Errorf("expected boosted depth:expert score, got %v", got)
			}
		})
	}
}

func TestPreferences_CountsTotalInteractionsAndTopArms(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			features := engine.ContentFeatures{
				Depth: "expert", Style: "technical", Format: "reference",
				Approach: "practical", Density: "moderate",
			}
			for i := 0; i < 5; i++ {
				event := engine.UserEvent{
					UserID:    "u1",
					EventType: engine.EventSourceClicked,
					SourceID:  "s1",
					Meta:      &engine.EventMeta{Features: &features},
				}
				if err := store.Append(ctx, event); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			topArms, total, err := store.Preferences(ctx, "u1")
			if err != nil {
				t.Fatalf("Preferences: %v", err)
			}
			if total != 5 {
				t.Errorf("totalInteractions: got %d, want 5", total)
			}
			if len(topArms) == 0 || topArms[0].Arm != "depth:expert" && topArms[0].Arm != "style:technical" {
				t.Errorf("expected depth:expert or style:technical to lead, got %+v", topArms)
			}
		})
	}
}

func TestReset_WipesEventsAndBandit(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			features := engine.ContentFeatures{
				Depth: "expert", Style: "technical", Format: "reference",
				Approach: "practical", Density: "moderate",
			}
			store.Append(ctx, engine.UserEvent{
				UserID: "u1", EventType: engine.EventSourceClicked, SourceID: "s1",
				Meta: &engine.EventMeta{Features: &features},
			})

			if err := store.Reset(ctx, "u1"); err != nil {
				t.Fatalf("Reset: %v", err)
			}

			events, err := store.ListEvents(ctx, "u1")
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(events) != 0 {
				t.Errorf("expected events wiped, got %d", len(events))
			}
			topArms, total, err := store.Preferences(ctx, "u1")
			if err != nil {
				t.Fatalf("Preferences: %v", err)
			}
			if len(topArms) != 0 || total != 0 {
				t.Errorf("expected reset preferences, got topArms=%+v total=%d", topArms, total)
			}
		})
	}
}

func TestPerUserIsolation(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Append(ctx, engine.UserEvent{UserID: "u1", EventType: engine.EventSourceExpanded})
			store.Append(ctx, engine.UserEvent{UserID: "u2", EventType: engine.EventSourceExpanded})
			store.Append(ctx, engine.UserEvent{UserID: "u2", EventType: engine.EventSourceExpanded})

			u1Events, _ := store.ListEvents(ctx, "u1")
			u2Events, _ := store.ListEvents(ctx, "u2")
			if len(u1Events) != 1 {
				t.Errorf("u1: got %d events, want 1", len(u1Events))
			}
			if len(u2Events) != 2 {
				t.Errorf("u2: got %d events, want 2", len(u2Events))
			}
		})
	}
}
