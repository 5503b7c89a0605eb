// Package personalizer boosts an already-ranked document list using a
// user's bandit arm scores. It is the identity transform when the bandit
// has no evidence yet, matching spec.md §4.9's "when bandit state is
// empty the function is the identity" requirement.
package personalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucenthq/lucent/internal/engine"
)

const (
	boostWeight      = 0.3
	maxMultiplier    = 1.3
	boostAnnotateMin = 0.05
)

// Apply boosts each doc in ranked whose Features match arms the bandit has
// evidence for, and stably re-sorts by the boosted score (spec.md §4.9).
func Apply(ranked []engine.RankedDoc, armScores map[string]float64) []engine.RankedDoc {
	if len(armScores) == 0 {
		return ranked
	}

	out := make([]engine.RankedDoc, len(ranked))
	copy(out, ranked)

	for i := range out {
		doc := &out[i]
		if doc.Features == nil {
			continue
		}
		boost, topValues := boostFor(*doc.Features, armScores)
		if boost <= 0 {
			continue
		}
		multiplier := 1 + boostWeight*boost
		if multiplier > maxMultiplier {
			multiplier = maxMultiplier
		}
		doc.Score *= multiplier
		if boost > boostAnnotateMin {
			doc.RankingReason += fmt.Sprintf(" + personalized (%s)", strings.Join(topValues, ", "))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// boostFor averages the bandit scores of features' five arms (skipping
// arms with no evidence) and returns the top two matching values by
// score, for the rankingReason annotation.
func boostFor(features engine.ContentFeatures, armScores map[string]float64) (float64, []string) {
	arms := features.Arms()

	type scored struct {
		value string
		score float64
	}
	var present []scored
	for _, arm := range arms {
		score, ok := armScores[arm]
		if !ok {
			continue
		}
		_, value := splitArm(arm)
		present = append(present, scored{value: value, score: score})
	}
	if len(present) == 0 {
		return 0, nil
	}

	var sum float64
	for _, p := range present {
		sum += p.score
	}
	boost := sum / float64(len(present))

	sort.SliceStable(present, func(i, j int) bool { return present[i].score > present[j].score })
	n := 2
	if n > len(present) {
		n = len(present)
	}
	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = present[i].value
	}
	return boost, top
}

func splitArm(arm string) (dimension, value string) {
	idx := strings.IndexByte(arm, ':')
	if idx < 0 {
		return "", arm
	}
	return arm[:idx], arm[idx+1:]
}
