package personalizer

import (
	"testing"

	"github.com/lucenthq/lucent/internal/engine"
)

func TestApply_IdentityWhenNoBanditEvidence(t *testing.T) {
	ranked := []engine.RankedDoc{{ID: "1", Score: 0.5}}
	out := Apply(ranked, nil)
	if out[0].Score != 0.5 {
		t.Errorf("expected identity, got score %v", out[0].Score)
	}
}

func TestApply_BoostsMatchingFeaturesAndReorders(t *testing.T) {
	featuresA := engine.ContentFeatures{
		Depth: "expert", Style: "academic", Format: "research", Approach: "data-driven", Density: "comprehensive",
	}
	featuresB := engine.DefaultContentFeatures()

	ranked := []engine.RankedDoc{
		{ID: "b", Score: 0.6, Features: &featuresB, RankingReason: "matched query"},
		{ID: "a", Score: 0.55, Features: &featuresA, RankingReason: "matched query"},
	}

	armScores := map[string]float64{
		"depth:expert":       0.9,
		"style:academic":     0.9,
		"format:research":    0.9,
		"approach:data-driven": 0.9,
		"density:comprehensive": 0.9,
	}

	out := Apply(ranked, armScores)
	if out[0].ID != "a" {
		t.Fatalf("expected doc 'a' to rank first after personalization boost, got %v", out[0].ID)
	}
	if out[0].Score <= 0.55 {
		t.Errorf("expected boosted score > original, got %v", out[0].Score)
	}
	if out[0].RankingReason == "matched query" {
		t.Error("expected rankingReason to be annotated with personalization")
	}
}

func TestApply_CapsMultiplierAt1Point3(t *testing.T) {
	features := engine.ContentFeatures{
		Depth: "expert", Style: "academic", Format: "research", Approach: "data-driven", Density: "comprehensive",
	}
	ranked := []engine.RankedDoc{{ID: "a", Score: 1.0, Features: &features}}
	armScores := map[string]float64{
		"depth:expert": 1.0, "style:academic": 1.0, "format:research": 1.0,
		"approach:data-driven": 1.0, "density:comprehensive": 1.0,
	}
	out := Apply(ranked, armScores)
	if out[0].Score > 1.3+1e-9 {
		t.Errorf("expected score capped at 1.3x, got %v", out[0].Score)
	}
}

func TestApply_SkipsDocsWithoutFeatures(t *testing.T) {
	ranked := []engine.RankedDoc{{ID: "a", Score: 0.5, Features: nil}}
	armScores := map[string]float64{"depth:expert": 0.9}
	out := Apply(ranked, armScores)
	if out[0].Score != 0.5 {
		t.Errorf("expected unchanged score for doc without features, got %v", out[0].Score)
	}
}
