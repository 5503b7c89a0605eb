// Package ranker combines BM25 relevance with recency, source quality, and
// coverage into the final score and ranking reason for each document.
// Grounded on internal/bm25's per-request corpus plus the teacher's search
// handler pattern of joining two result sets by a shared key before
// sorting by score.
package ranker

import (
	"sort"
	"strings"
	"time"

	"github.com/lucenthq/lucent/internal/agehint"
	"github.com/lucenthq/lucent/internal/bm25"
	"github.com/lucenthq/lucent/internal/engine"
)

const (
	weightRelevance     = 0.5
	weightRecency       = 0.2
	weightSourceQuality = 0.2
	weightCoverage      = 0.1

	recencyHorizonDays  = 365
	recencyUnknown      = 0.5
	coverageTargetWords = 1000
)

// Rank joins search hits with their successful extractions by URL, scores
// each against query, and returns the list sorted by score descending.
// Hits with no matching extraction are skipped: a document with no body
// text cannot be scored or cited.
func Rank(query string, hits []engine.SearchHit, extracts []engine.PageExtract) []engine.RankedDoc {
	byURL := make(map[string]engine.PageExtract, len(extracts))
	for _, e := range extracts {
		byURL[e.URL] = e
	}

	docs := make([]bm25.Doc, 0, len(extracts))
	for _, e := range extracts {
		docs = append(docs, bm25.Doc{ID: e.URL, Text: e.Title + " " + e.Excerpt})
	}
	corpus := bm25.New(docs)

	now := time.Now()
	out := make([]engine.RankedDoc, 0, len(hits))
	for _, h := range hits {
		pe, ok := byURL[h.URL]
		if !ok {
			continue
		}

		relevance := corpus.Score(query, h.URL)
		recency := recencyScore(pe.PublishedDate, h.PublishedHint, now)
		sourceQuality := sourceQualityScore(h.Domain)
		coverage := coverageScore(pe.Body)

		score := weightRelevance*relevance + weightRecency*recency +
			weightSourceQuality*sourceQuality + weightCoverage*coverage

		out = append(out, engine.RankedDoc{
			ID:            h.ID,
			URL:           h.URL,
			Title:         pe.Title,
			Excerpt:       pe.Excerpt,
			Domain:        h.Domain,
			PublishedDate: pe.PublishedDate,
			Features:      pe.Features,
			Signals: engine.Signals{
				Relevance:     relevance,
				Recency:       recency,
				SourceQuality: sourceQuality,
				Coverage:      coverage,
			},
			Score:         score,
			RankingReason: rankingReason(sourceQuality, recency, relevance, h.Domain),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// recencyScore uses the extractor's parsed date if present, otherwise
// falls back to the search provider's free-text age hint. Unknown dates
// score 0.5; future dates score 1.0; otherwise linear decay from 1.0 at
// day 0 to 0.0 at day 365.
func recencyScore(published *time.Time, hint string, now time.Time) float64 {
	if published == nil {
		published = agehint.Parse(hint)
	}
	if published == nil {
		return recencyUnknown
	}
	days := now.Sub(*published).Hours() / 24
	if days < 0 {
		return 1.0
	}
	if days >= recencyHorizonDays {
		return 0.0
	}
	return 1.0 - days/recencyHorizonDays
}

func sourceQualityScore(domain string) float64 {
	d := strings.ToLower(domain)
	if strings.HasSuffix(d, ".edu") || strings.HasSuffix(d, ".gov") {
		return 0.9
	}
	if strings.HasSuffix(d, ".org") {
		return 0.7
	}
	return 0.5
}

func coverageScore(body string) float64 {
	words := len(strings.Fields(body))
	v := float64(words) / coverageTargetWords
	if v > 1.0 {
		return 1.0
	}
	return v
}

func rankingReason(sourceQuality, recency, relevance float64, domain string) string {
	var tags []string
	if sourceQuality > 0.7 {
		tags = append(tags, ".edu/.gov domain")
	}
	if recency > 0.7 {
		tags = append(tags, "recent")
	}
	if relevance > 0.8 {
		tags = append(tags, "highly relevant")
	}
	if len(tags) == 0 {
		return "matched query"
	}
	return strings.Join(tags, ", ")
}
