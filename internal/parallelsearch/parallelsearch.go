// Package parallelsearch fans a query plan's sub-queries out to a search
// client under a concurrency cap, then normalizes, dedups, interleaves,
// and authority-filters the combined hit list. Grounded on the teacher's
// indexer.indexFiles: an errgroup.Group with SetLimit bounding concurrency,
// individual task failures logged and skipped rather than aborting the
// group (spec.md §4.3's "partial success is success").
package parallelsearch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/searchclient"
	"github.com/lucenthq/lucent/internal/urlnorm"
)

const (
	defaultConcurrency  = 5
	defaultTaskTimeout  = 15 * time.Second
	defaultMaxPerQuery  = 10
	minHitsBeforeFilter = 5
	maxTotalHits        = 20
	maxSnippetLen       = 500
)

// Config controls fan-out behavior; zero values take the spec.md §4.3
// defaults.
type Config struct {
	Concurrency int
	TaskTimeout time.Duration
	MaxPerQuery int
}

func (c *Config) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = defaultTaskTimeout
	}
	if c.MaxPerQuery <= 0 {
		c.MaxPerQuery = defaultMaxPerQuery
	}
}

// Searcher runs the fan-out/merge/interleave/filter algorithm.
type Searcher struct {
	client searchclient.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Searcher backed by client. logger may be nil.
func New(client searchclient.Client, cfg Config, logger *slog.Logger) *Searcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{client: client, cfg: cfg, logger: logger}
}

// Run executes the full algorithm from spec.md §4.3 and always returns a
// (possibly empty) ordered hit list, never an error: a single sub-query's
// failure is logged and skipped, and total failure falls back to a single
// search of the original query.
func (s *Searcher) Run(ctx context.Context, plan engine.Plan) []engine.SearchHit {
	subQueries := plan.SubQueries
	if len(subQueries) == 0 {
		return s.single(ctx, plan.OriginalQuery)
	}

	byQuery, anySucceeded := s.fanOut(ctx, subQueries)
	if !anySucceeded {
		s.logger.WarnContext(ctx, "parallelsearch: all sub-queries failed, falling back to original query", "query", plan.OriginalQuery)
		return s.single(ctx, plan.OriginalQuery)
	}

	merged := interleave(subQueries, byQuery)
	merged = dedup(merged)
	filtered := authorityFilter(merged)

	if len(filtered) < minHitsBeforeFilter {
		extra, err := s.client.Search(ctx, plan.OriginalQuery, s.cfg.MaxPerQuery)
		if err == nil {
			combined := append(append([]engine.SearchHit{}, filtered...), extra...)
			filtered = dedup(combined)
		} else {
			s.logger.WarnContext(ctx, "parallelsearch: extra fallback search failed", "error", err)
		}
	}

	if len(filtered) > maxTotalHits {
		filtered = filtered[:maxTotalHits]
	}
	return filtered
}

func (s *Searcher) single(ctx context.Context, query string) []engine.SearchHit {
	hits, err := s.client.Search(ctx, query, s.cfg.MaxPerQuery)
	if err != nil {
		s.logger.WarnContext(ctx, "parallelsearch: fallback search failed", "error", err, "query", query)
		return nil
	}
	for i := range hits {
		hits[i].Provenance.SourceQuery = query
		hits[i].Provenance.OriginalRank = i
	}
	if len(hits) > maxTotalHits {
		hits = hits[:maxTotalHits]
	}
	return hits
}

// fanOut runs one search per sub-query, capped at s.cfg.Concurrency
// concurrent in flight, each bounded by s.cfg.TaskTimeout. It returns the
// hits keyed by sub-query (only for sub-queries that succeeded) and
// whether at least one sub-query succeeded.
func (s *Searcher) fanOut(ctx context.Context, subQueries []engine.SubQuery) (map[engine.SubQuery][]engine.SearchHit, bool) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	var mu sync.Mutex
	results := make(map[engine.SubQuery][]engine.SearchHit)
	succeeded := false

	for _, sq := range subQueries {
		sq := sq
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, s.cfg.TaskTimeout)
			defer cancel()

			hits, err := s.client.Search(taskCtx, string(sq), s.cfg.MaxPerQuery)
			if err != nil {
				s.logger.WarnContext(ctx, "parallelsearch: sub-query failed", "subQuery", sq, "error", err)
				return nil
			}
			for i := range hits {
				hits[i].Provenance.SourceQuery = string(sq)
				hits[i].Provenance.OriginalRank = i
			}

			mu.Lock()
			results[sq] = hits
			succeeded = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // task goroutines never return a non-nil error
	return results, succeeded
}

// interleave round-robins across sub-queries in plan order: the first pass
// takes the top 3 hits from the first two sub-queries and the top 2 from
// each remaining sub-query, then subsequent passes take 1 hit per
// sub-query (spec.md §4.3 step 6).
func interleave(order []engine.SubQuery, byQuery map[engine.SubQuery][]engine.SearchHit) []engine.SearchHit {
	var out []engine.SearchHit

	firstPassCount := func(i int) int {
		if i < 2 {
			return 3
		}
		return 2
	}

	cursor := make(map[engine.SubQuery]int)
	for i, sq := range order {
		hits := byQuery[sq]
		n := firstPassCount(i)
		if n > len(hits) {
			n = len(hits)
		}
		out = append(out, hits[:n]...)
		cursor[sq] = n
	}

	for {
		advanced := false
		for _, sq := range order {
			hits := byQuery[sq]
			idx := cursor[sq]
			if idx < len(hits) {
				out = append(out, hits[idx])
				cursor[sq] = idx + 1
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}
	return out
}

// dedup collapses hits whose URLs normalize to the same key, merging their
// snippets, and keeps the first occurrence's id/title/provenance.
func dedup(hits []engine.SearchHit) []engine.SearchHit {
	seen := make(map[string]int) // normalized key -> index in out
	var out []engine.SearchHit

	for _, h := range hits {
		key := urlnorm.Normalize(h.URL)
		if idx, ok := seen[key]; ok {
			out[idx].Snippet = mergeSnippets(out[idx].Snippet, h.Snippet)
			continue
		}
		seen[key] = len(out)
		out = append(out, h)
	}
	return out
}

func mergeSnippets(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.Contains(a, b) {
		return a
	}
	if strings.Contains(b, a) {
		return b
	}
	merged := a + " | " + b
	if len(merged) > maxSnippetLen {
		merged = merged[:maxSnippetLen]
	}
	return merged
}

var authorityHostSuffixes = []string{".wikipedia.org", ".wikimedia.org"}

// authorityFilter drops hits from Wikipedia/Wikimedia, unless doing so
// would leave fewer than minHitsBeforeFilter hits, in which case the
// filter is skipped entirely for this request (spec.md §4.3 step 7).
func authorityFilter(hits []engine.SearchHit) []engine.SearchHit {
	var filtered []engine.SearchHit
	for _, h := range hits {
		if isAuthorityHost(h.Domain) {
			continue
		}
		filtered = append(filtered, h)
	}
	if len(filtered) < minHitsBeforeFilter {
		return hits
	}
	return filtered
}

func isAuthorityHost(host string) bool {
	for _, suffix := range authorityHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
