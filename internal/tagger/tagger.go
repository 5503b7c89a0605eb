// Package tagger classifies a page's title and body into the fixed
// 5-dimension feature tuple used for personalization, via a low-
// temperature structured LLM call. Grounded on internal/planner's
// degrade-on-failure shape: tagging failure never blocks the pipeline; the
// document gets engine.DefaultContentFeatures instead.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/engine/prompts"
	"github.com/lucenthq/lucent/internal/llmclient"
)

const bodyTruncateLen = 1500

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"depth":    enumProp(engine.AllowedFeatureValues["depth"]),
		"style":    enumProp(engine.AllowedFeatureValues["style"]),
		"format":   enumProp(engine.AllowedFeatureValues["format"]),
		"approach": enumProp(engine.AllowedFeatureValues["approach"]),
		"density":  enumProp(engine.AllowedFeatureValues["density"]),
	},
	"required":             []string{"depth", "style", "format", "approach", "density"},
	"additionalProperties": false,
}

func enumProp(values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// Tagger classifies pages into ContentFeatures.
type Tagger struct {
	llm    llmclient.Client
	logger *slog.Logger
}

// New creates a Tagger backed by llm. logger may be nil.
func New(llm llmclient.Client, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagger{llm: llm, logger: logger}
}

// Tag classifies title/body into a ContentFeatures tuple. It never
// returns an error: failure of any kind (transport, parse, invalid
// vocabulary) degrades to engine.DefaultContentFeatures (spec.md §4.5).
func (t *Tagger) Tag(ctx context.Context, title, body string) engine.ContentFeatures {
	features, err := t.tagLLM(ctx, title, body)
	if err != nil {
		t.logger.DebugContext(ctx, "tagger: falling back to default features", "error", err, "title", title)
		return engine.DefaultContentFeatures()
	}
	return features
}

func (t *Tagger) tagLLM(ctx context.Context, title, body string) (engine.ContentFeatures, error) {
	truncated := body
	if len(truncated) > bodyTruncateLen {
		truncated = truncated[:bodyTruncateLen]
	}

	raw, err := t.llm.CallStructured(ctx, llmclient.StructuredRequest{
		Prompt:       fmt.Sprintf("Title: %s\n\nBody excerpt:\n%s", title, truncated),
		SystemPrompt: prompts.TaggerSystem(),
		Schema:       schema,
		Temperature:  0.1,
		MaxTokens:    100,
	})
	if err != nil {
		return engine.ContentFeatures{}, fmt.Errorf("llm call: %w", err)
	}

	var features engine.ContentFeatures
	if err := json.Unmarshal(raw, &features); err != nil {
		return engine.ContentFeatures{}, fmt.Errorf("parse response: %w", err)
	}
	if !features.Valid() {
		return engine.ContentFeatures{}, fmt.Errorf("invalid feature tuple: %+v", features)
	}
	return features, nil
}
