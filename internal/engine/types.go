// Package engine holds the data model shared across the answer pipeline:
// query plans, search hits, page extracts, content features, ranked
// documents, and the final answer packet.
package engine

import "time"

// SubQuery is a single decomposed search string derived from a user query.
type SubQuery string

// PlanStrategy records how a Plan was produced.
type PlanStrategy string

const (
	StrategyLLM      PlanStrategy = "llm"
	StrategyFallback PlanStrategy = "fallback"
)

// Plan is the output of query decomposition: 1-5 sub-queries plus the
// original query and the strategy that produced them.
type Plan struct {
	OriginalQuery string       `json:"originalQuery"`
	SubQueries    []SubQuery   `json:"subQueries"`
	Strategy      PlanStrategy `json:"strategy"`
}

// Provenance records which sub-query found a hit and at what rank.
type Provenance struct {
	SourceQuery   string `json:"sourceQuery"`
	OriginalRank  int    `json:"originalRank"`
}

// SearchHit is a single normalized result from a search provider.
type SearchHit struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	Domain        string     `json:"domain"`
	PublishedHint string     `json:"publishedHint,omitempty"`
	Provenance    Provenance `json:"provenance"`
}

// ContentFeatures is the fixed 5-tuple of closed-vocabulary ordinals that a
// page is tagged with. Each field's allowed values are enumerated in
// AllowedFeatureValues.
type ContentFeatures struct {
	Depth    string `json:"depth"`
	Style    string `json:"style"`
	Format   string `json:"format"`
	Approach string `json:"approach"`
	Density  string `json:"density"`
}

// AllowedFeatureValues enumerates the closed vocabulary per dimension,
// keyed by dimension name (ContentFeatures.Arms() fixes the dimension order).
var AllowedFeatureValues = map[string][]string{
	"depth":    {"introductory", "intermediate", "expert"},
	"style":    {"academic", "technical", "journalistic", "conversational"},
	"format":   {"tutorial", "research", "opinion", "reference"},
	"approach": {"conceptual", "practical", "data-driven"},
	"density":  {"concise", "moderate", "comprehensive"},
}

// DefaultContentFeatures is the neutral default substituted when feature
// tagging fails.
func DefaultContentFeatures() ContentFeatures {
	return ContentFeatures{
		Depth:    "intermediate",
		Style:    "journalistic",
		Format:   "reference",
		Approach: "practical",
		Density:  "moderate",
	}
}

// Arms returns the five "dimension:value" arm identifiers for these
// features, in a fixed dimension order.
func (f ContentFeatures) Arms() []string {
	return []string{
		"depth:" + f.Depth,
		"style:" + f.Style,
		"format:" + f.Format,
		"approach:" + f.Approach,
		"density:" + f.Density,
	}
}

// Valid reports whether every field is one of its dimension's allowed
// values and all fields are non-empty.
func (f ContentFeatures) Valid() bool {
	checks := map[string]string{
		"depth":    f.Depth,
		"style":    f.Style,
		"format":   f.Format,
		"approach": f.Approach,
		"density":  f.Density,
	}
	for dim, val := range checks {
		if val == "" {
			return false
		}
		found := false
		for _, allowed := range AllowedFeatureValues[dim] {
			if val == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// PageExtract is the cleaned result of fetching and parsing one URL.
type PageExtract struct {
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	Excerpt       string           `json:"excerpt"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
}

// Signals are the four [0,1] components combined into a RankedDoc's score.
type Signals struct {
	Relevance     float64 `json:"relevance"`
	Recency       float64 `json:"recency"`
	SourceQuality float64 `json:"sourceQuality"`
	Coverage      float64 `json:"coverage"`
}

// RankedDoc is a scored, ready-to-cite document.
type RankedDoc struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Excerpt       string           `json:"excerpt"`
	Domain        string           `json:"domain"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
	Signals       Signals          `json:"signals"`
	Score         float64          `json:"score"`
	RankingReason string           `json:"rankingReason"`
}

// Citation ties one inline [n] marker in synthesized text back to a source.
type Citation struct {
	Index    int    `json:"index"`
	SourceID string `json:"sourceId"`
	Passage  string `json:"passage"`
}

// AnswerPacket is the terminal result of one answer request.
type AnswerPacket struct {
	QueryID   string      `json:"queryId"`
	Text      string      `json:"text"`
	Citations []Citation  `json:"citations"`
	Sources   []RankedDoc `json:"sources"`
}

// ProgressStage enumerates the pipeline's §4.11 lifecycle stages, carried
// over the wire as a "progress"-type frame's data.
type ProgressStage string

const (
	StagePlanning     ProgressStage = "planning"
	StageSearching    ProgressStage = "searching"
	StageAnalyzing    ProgressStage = "analyzing"
	StageSynthesizing ProgressStage = "synthesizing"
)

// FrameType enumerates the SSE frame types a /api/answer stream emits.
type FrameType string

const (
	FrameProgress FrameType = "progress"
	FrameChunk    FrameType = "chunk"
	FrameComplete FrameType = "complete"
	FrameError    FrameType = "error"
)

// Frame is one `data: {type, data}` SSE frame (spec.md §6.1). Exactly one
// FrameComplete or FrameError frame terminates a request.
type Frame struct {
	Type FrameType `json:"type"`
	Data any       `json:"data"`
}

// ErrorData is the Data payload of a FrameError frame (spec.md §6.1).
type ErrorData struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ArmStats is a single bandit arm's accumulated, real-valued evidence.
type ArmStats struct {
	Successes float64 `json:"successes"`
	Failures  float64 `json:"failures"`
}

// Mean returns the Beta(successes+1, failures+1) posterior mean.
func (a ArmStats) Mean() float64 {
	return (a.Successes + 1) / (a.Successes + a.Failures + 2)
}

// PendingImpression is an unresolved impression awaiting click-or-timeout.
type PendingImpression struct {
	Arms      []string  `json:"arms"`
	QueryID   string    `json:"queryId"`
	SourceID  string    `json:"sourceId"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType enumerates the closed set of client-emitted interaction events.
type EventType string

const (
	EventSourceClicked   EventType = "SOURCE_CLICKED"
	EventCitationClicked EventType = "CITATION_CLICKED"
	EventCitationHovered EventType = "CITATION_HOVERED"
	EventSourceExpanded  EventType = "SOURCE_EXPANDED"
	EventAnswerSaved     EventType = "ANSWER_SAVED"
)

// EventMeta is the closed union of optional event metadata. Unknown JSON
// keys on the wire are ignored by the decoder.
type EventMeta struct {
	Features         *ContentFeatures  `json:"features,omitempty"`
	CitationNumber   *int              `json:"citationNumber,omitempty"`
	AllSourceFeatures []ContentFeatures `json:"allSourceFeatures,omitempty"`
}

// UserEvent is one append-only log entry describing a user interaction.
type UserEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"eventType"`
	SourceID  string    `json:"sourceId,omitempty"`
	QueryID   string    `json:"queryId,omitempty"`
	Meta      *EventMeta `json:"meta,omitempty"`
}
