package searchclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/urlnorm"
)

// Stub is an in-process Client for tests. ResultsFor maps a sub-query to
// the hits it should return; FailFor marks a sub-query that should error.
type Stub struct {
	mu        sync.Mutex
	ResultsFor map[string][]engine.SearchHit
	FailFor    map[string]bool
	calls      []string
}

// NewStub returns an empty Stub.
func NewStub() *Stub {
	return &Stub{
		ResultsFor: make(map[string][]engine.SearchHit),
		FailFor:    make(map[string]bool),
	}
}

// AddResult registers a hit for subQuery, filling in ID/Domain/Provenance
// from the URL and position the same way a real provider would.
func (s *Stub) AddResult(subQuery, title, rawURL, snippet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.ResultsFor[subQuery]
	existing = append(existing, engine.SearchHit{
		ID:      urlnorm.ID(rawURL),
		URL:     rawURL,
		Title:   title,
		Snippet: snippet,
		Domain:  urlnorm.Host(rawURL),
		Provenance: engine.Provenance{
			OriginalRank: len(existing),
		},
	})
	s.ResultsFor[subQuery] = existing
}

func (s *Stub) Search(ctx context.Context, subQuery string, maxResults int) ([]engine.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, subQuery)

	if s.FailFor[subQuery] {
		return nil, fmt.Errorf("searchclient/stub: forced failure for %q", subQuery)
	}
	hits := s.ResultsFor[subQuery]
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	out := make([]engine.SearchHit, len(hits))
	copy(out, hits)
	return out, nil
}

// Calls returns every sub-query Search was invoked with, in order.
func (s *Stub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}
