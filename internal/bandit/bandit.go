// Package bandit implements the per-user, deterministic Thompson-sampling
// bandit over content-feature arms from spec.md §4.8. Scoring is a Beta
// posterior mean, not a per-call sample: exploration comes from the
// uniform prior, never from injected randomness. Grounded on the
// teacher's mutex-guarded per-key state pattern (one lock per tracked
// entity, not a single global lock), seen across the teacher's buffer and
// trace packages.
package bandit

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucenthq/lucent/internal/engine"
)

// DefaultPendingTimeout is how long a pending impression waits for a
// click before resolving to a fractional failure (spec.md §4.8).
const DefaultPendingTimeout = 25 * time.Second

// Bandit tracks one user's arm statistics and unresolved impressions.
type Bandit struct {
	mu      sync.Mutex
	arms    map[string]engine.ArmStats
	pending []engine.PendingImpression
	timeout time.Duration
}

// New creates an empty Bandit. timeout <= 0 uses DefaultPendingTimeout.
func New(timeout time.Duration) *Bandit {
	if timeout <= 0 {
		timeout = DefaultPendingTimeout
	}
	return &Bandit{
		arms:    make(map[string]engine.ArmStats),
		timeout: timeout,
	}
}

// RecordPendingImpression appends a new pending impression. It does not
// mutate arm stats: an impression only becomes evidence once it's
// resolved by a click or a timeout.
func (b *Bandit) RecordPendingImpression(arms []string, queryID, sourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, engine.PendingImpression{
		Arms:      append([]string{}, arms...),
		QueryID:   queryID,
		SourceID:  sourceID,
		Timestamp: time.Now(),
	})
}

// RecordClick assigns fractional success credit (1/|arms|) to each arm
// and removes the matching pending impression: by sourceID if given,
// otherwise the first pending entry whose arm set equals arms exactly.
func (b *Bandit) RecordClick(arms []string, sourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(arms) == 0 {
		return
	}
	credit := 1.0 / float64(len(arms))
	for _, arm := range arms {
		stats := b.arms[arm]
		stats.Successes += credit
		b.arms[arm] = stats
	}

	idx := -1
	if sourceID != "" {
		for i, p := range b.pending {
			if p.SourceID == sourceID {
				idx = i
				break
			}
		}
	} else {
		for i, p := range b.pending {
			if sameArmSet(p.Arms, arms) {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		b.pending = append(b.pending[:idx], b.pending[idx+1:]...)
	}
}

// ResolvePendingImpressions removes every pending impression older than
// the configured timeout (measured against now) and assigns each of its
// arms a fractional failure credit (1/|arms|).
func (b *Bandit) ResolvePendingImpressions(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var kept []engine.PendingImpression
	for _, p := range b.pending {
		if now.Sub(p.Timestamp) < b.timeout {
			kept = append(kept, p)
			continue
		}
		if len(p.Arms) == 0 {
			continue
		}
		credit := 1.0 / float64(len(p.Arms))
		for _, arm := range p.Arms {
			stats := b.arms[arm]
			stats.Failures += credit
			b.arms[arm] = stats
		}
	}
	b.pending = kept
}

// Scores returns the Beta-posterior mean for every tracked arm. Untracked
// arms are absent from the result, not implicitly 0.5 — callers treat an
// absent arm as "no evidence yet" themselves (spec.md §4.9's boost is a
// no-op for arms with no evidence).
func (b *Bandit) Scores() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(b.arms))
	for arm, stats := range b.arms {
		out[arm] = stats.Mean()
	}
	return out
}

// ArmScore is one arm's descending-sort entry from TopK.
type ArmScore struct {
	Arm   string  `json:"arm"`
	Score float64 `json:"score"`
}

// TopK returns the k highest-scoring tracked arms, descending. Equal scores
// are ordered by dimension in ContentFeatures.Arms() order (depth, style,
// format, approach, density; unknown dimensions last), then by arm name.
func (b *Bandit) TopK(k int) []ArmScore {
	scores := b.Scores()
	out := make([]ArmScore, 0, len(scores))
	for arm, score := range scores {
		out = append(out, ArmScore{Arm: arm, Score: score})
	}
	dimRank := map[string]int{"depth": 0, "style": 1, "format": 2, "approach": 3, "density": 4}
	rank := func(arm string) int {
		dim, _, _ := strings.Cut(arm, ":")
		if r, ok := dimRank[dim]; ok {
			return r
		}
		return len(dimRank)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if ri, rj := rank(out[i].Arm), rank(out[j].Arm); ri != rj {
			return ri < rj
		}
		return out[i].Arm < out[j].Arm
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// Reset clears all arm statistics and pending impressions.
func (b *Bandit) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arms = make(map[string]engine.ArmStats)
	b.pending = nil
}

func sameArmSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
