// Package planner decomposes a user query into 2-5 sub-queries via an LLM
// call under a strict JSON schema, falling back to a single-sub-query plan
// on any failure. Grounded on the teacher's question.Runner: a component
// that degrades to a smaller unit of work on upstream failure rather than
// propagating an error, logged via slog at the point of degradation.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/engine/prompts"
	"github.com/lucenthq/lucent/internal/llmclient"
)

// schema demands a JSON object: {"subQueries": ["...", ...]} with 2-5
// non-empty strings, per spec.md §4.1's guideline contract.
var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subQueries": map[string]any{
			"type":     "array",
			"minItems": 2,
			"maxItems": 5,
			"items": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
	},
	"required":             []string{"subQueries"},
	"additionalProperties": false,
}

type schemaResponse struct {
	SubQueries []string `json:"subQueries"`
}

// Planner decomposes queries into sub-query plans.
type Planner struct {
	llm    llmclient.Client
	logger *slog.Logger
}

// New creates a Planner backed by llm. logger may be nil.
func New(llm llmclient.Client, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{llm: llm, logger: logger}
}

// Plan decomposes query into a Plan. It never returns an error: any
// planner-level failure (transport, parse, or schema validation) degrades
// to a single-sub-query fallback plan equal to the original query
// (spec.md §4.1, §7).
func (p *Planner) Plan(ctx context.Context, query string) engine.Plan {
	sub, err := p.planLLM(ctx, query)
	if err != nil {
		p.logger.WarnContext(ctx, "planner: falling back to single sub-query", "error", err, "query", query)
		return fallbackPlan(query)
	}
	return engine.Plan{
		OriginalQuery: query,
		SubQueries:    sub,
		Strategy:      engine.StrategyLLM,
	}
}

func (p *Planner) planLLM(ctx context.Context, query string) ([]engine.SubQuery, error) {
	raw, err := p.llm.CallStructured(ctx, llmclient.StructuredRequest{
		Prompt:       fmt.Sprintf("Decompose this question into search queries: %q", query),
		SystemPrompt: prompts.PlannerSystem(),
		Schema:       schema,
		Temperature:  0.15,
		MaxTokens:    300,
	})
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	var parsed schemaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if err := validate(parsed.SubQueries); err != nil {
		return nil, err
	}

	out := make([]engine.SubQuery, len(parsed.SubQueries))
	for i, s := range parsed.SubQueries {
		out[i] = engine.SubQuery(s)
	}
	return out, nil
}

func validate(subQueries []string) error {
	if len(subQueries) < 2 || len(subQueries) > 5 {
		return fmt.Errorf("expected 2-5 sub-queries, got %d", len(subQueries))
	}
	for i, s := range subQueries {
		if s == "" {
			return fmt.Errorf("sub-query %d is empty", i)
		}
	}
	return nil
}

func fallbackPlan(query string) engine.Plan {
	return engine.Plan{
		OriginalQuery: query,
		SubQueries:    []engine.SubQuery{engine.SubQuery(query)},
		Strategy:      engine.StrategyFallback,
	}
}
