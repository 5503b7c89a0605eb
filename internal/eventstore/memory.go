package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/lucenthq/lucent/internal/bandit"
	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/ids"
)

// MemoryStore is the default Store: per-user state lives in process memory
// and is lost on restart. spec.md §9 explicitly allows this "so long as
// per-user isolation and reset semantics are preserved."
type MemoryStore struct {
	mu       sync.Mutex
	events   map[string][]engine.UserEvent
	bandits  map[string]*bandit.Bandit
	genID    func() string
	now      func() time.Time
	pendingT time.Duration
}

// NewMemoryStore creates an empty MemoryStore. pendingTimeout governs how
// long an unresolved pending impression lives before the sweep in
// bandit.ResolvePendingImpressions discards it as a non-click; zero uses
// bandit.DefaultPendingTimeout.
func NewMemoryStore(pendingTimeout time.Duration) *MemoryStore {
	if pendingTimeout <= 0 {
		pendingTimeout = bandit.DefaultPendingTimeout
	}
	return &MemoryStore{
		events:   make(map[string][]engine.UserEvent),
		bandits:  make(map[string]*bandit.Bandit),
		genID:    ids.Default,
		now:      time.Now,
		pendingT: pendingTimeout,
	}
}

func (s *MemoryStore) Append(_ context.Context, event engine.UserEvent) error {
	event = stampEvent(event, s.now(), s.genID)

	s.mu.Lock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	b := s.banditLocked(event.UserID)
	s.mu.Unlock()

	applyClickEvidence(b, event)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, userID string) ([]engine.UserEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.UserEvent, len(s.events[userID]))
	copy(out, s.events[userID])
	return out, nil
}

func (s *MemoryStore) Bandit(userID string) *bandit.Bandit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banditLocked(userID)
}

func (s *MemoryStore) Preferences(_ context.Context, userID string) ([]bandit.ArmScore, int, error) {
	s.mu.Lock()
	b := s.banditLocked(userID)
	total := len(s.events[userID])
	s.mu.Unlock()

	return b.TopK(topArmsLimit), total, nil
}

func (s *MemoryStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, userID)
	delete(s.bandits, userID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// banditLocked returns (creating if needed) the user's bandit. Callers
// must hold s.mu.
func (s *MemoryStore) banditLocked(userID string) *bandit.Bandit {
	b, ok := s.bandits[userID]
	if !ok {
		b = bandit.New(s.pendingT)
		s.bandits[userID] = b
	}
	return b
}
