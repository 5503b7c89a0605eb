// Package synth turns a query and a ranked, personalized source list into a
// cited AnswerPacket, streaming the model's text through a chunk callback
// as it arrives. Grounded on the teacher's question.Runner pattern for the
// LLM-call shape, adapted from a single-shot call to a streaming one
// (internal/llmclient.Client.StreamCompletion) plus a citation-validation
// post-pass spec.md §4.10 requires but no teacher package does verbatim.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/engine/prompts"
	"github.com/lucenthq/lucent/internal/llmclient"
)

const (
	maxSources     = 8
	temperature    = 0.3
	maxTokens      = 1000
	passageMaxLen  = 200
	excerptMaxLen  = 400
)

// Synthesizer produces the streamed, citation-checked answer.
type Synthesizer struct {
	llm    llmclient.Client
	logger *slog.Logger
}

// New creates a Synthesizer backed by llm. logger may be nil.
func New(llm llmclient.Client, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{llm: llm, logger: logger}
}

// Synthesize streams the answer for query over docs (only the first
// maxSources are used, per spec.md §4.10), forwarding every chunk through
// onChunk, then validates citations in the accumulated text before
// returning the final AnswerPacket.
func (s *Synthesizer) Synthesize(ctx context.Context, queryID, query string, docs []engine.RankedDoc, onChunk func(string)) (engine.AnswerPacket, error) {
	if len(docs) > maxSources {
		docs = docs[:maxSources]
	}

	text, err := s.llm.StreamCompletion(ctx, llmclient.StreamRequest{
		Prompt:       buildPrompt(query, docs),
		SystemPrompt: prompts.SynthSystem(),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		OnChunk:      onChunk,
	})
	if err != nil {
		return engine.AnswerPacket{}, fmt.Errorf("synth: stream completion: %w", err)
	}

	finalText, citations := validateCitations(ctx, s.logger, text, docs)
	return engine.AnswerPacket{
		QueryID:   queryID,
		Text:      finalText,
		Citations: citations,
		Sources:   docs,
	}, nil
}

func buildPrompt(query string, docs []engine.RankedDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSources:\n", query)
	for i, d := range docs {
		excerpt := d.Excerpt
		if len(excerpt) > excerptMaxLen {
			excerpt = excerpt[:excerptMaxLen]
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, d.Title, d.Domain, excerpt)
	}
	b.WriteString("Write the answer now, citing sources by number as instructed.")
	return b.String()
}

// citationRe matches one bracketed citation group: [N] or [N, M, ...].
var citationRe = regexp.MustCompile(`\[\s*(\d+(?:\s*,\s*\d+)*)\s*\]`)

// validateCitations extracts every [n]/[n, m, ...] group from text and,
// for each cited index: keeps it if 1<=n<=len(docs); corrects an
// off-by-one near miss (0 or len(docs)+1) by clamping it to the nearest
// bound; otherwise drops that index and logs it. A group left with no
// valid indices has its brackets stripped, leaving the bare numbers
// (spec.md §4.10).
func validateCitations(ctx context.Context, logger *slog.Logger, text string, docs []engine.RankedDoc) (string, []engine.Citation) {
	n := len(docs)
	if n == 0 {
		return text, nil
	}

	var citations []engine.Citation
	out := citationRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := citationRe.FindStringSubmatch(match)[1]
		parts := strings.Split(inner, ",")

		var kept []string
		for _, part := range parts {
			raw := strings.TrimSpace(part)
			idx, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}

			resolved, ok := resolveIndex(idx, n)
			if !ok {
				logger.WarnContext(ctx, "synth: dropping out-of-range citation", "index", idx, "sourceCount", n)
				continue
			}
			kept = append(kept, strconv.Itoa(resolved))
			citations = append(citations, engine.Citation{
				Index:    resolved,
				SourceID: docs[resolved-1].ID,
				Passage:  passage(docs[resolved-1]),
			})
		}

		if len(kept) == 0 {
			return strings.TrimSpace(inner)
		}
		return "[" + strings.Join(kept, ", ") + "]"
	})

	return out, citations
}

// resolveIndex maps a cited 1-based index into [1, n], correcting an
// off-by-one near miss. It reports false when idx is not a near miss.
func resolveIndex(idx, n int) (int, bool) {
	switch {
	case idx >= 1 && idx <= n:
		return idx, true
	case idx == 0:
		return 1, true
	case idx == n+1:
		return n, true
	default:
		return 0, false
	}
}

func passage(doc engine.RankedDoc) string {
	p := doc.Excerpt
	if len(p) > passageMaxLen {
		p = p[:passageMaxLen]
	}
	return p
}
