// Package pipeline sequences the answer-engine stages from spec.md §4.11:
// plan, search, extract+tag, rank, personalize, synthesize. It owns
// progress-frame emission and the per-request bandit lifecycle (resolve
// pending impressions at the start, record new ones before synthesis).
// Grounded on the teacher's question.Runner orchestrators, generalized
// from a single blocking call into a fan-out-then-stream request.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucenthq/lucent/internal/bandit"
	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/eventstore"
	"github.com/lucenthq/lucent/internal/extractor"
	"github.com/lucenthq/lucent/internal/ids"
	"github.com/lucenthq/lucent/internal/parallelsearch"
	"github.com/lucenthq/lucent/internal/personalizer"
	"github.com/lucenthq/lucent/internal/planner"
	"github.com/lucenthq/lucent/internal/ranker"
	"github.com/lucenthq/lucent/internal/synth"
	"github.com/lucenthq/lucent/internal/tagger"
)

// topPendingImpressions is how many ranked docs (after personalization)
// get a fresh pending impression recorded before synthesis, per spec.md
// §4.11.
const topPendingImpressions = 8

// extractConcurrency bounds how many URLs are fetched+tagged at once,
// mirroring parallelsearch's concurrency-capped fan-out.
const extractConcurrency = 5

// AnswerRequest is one /api/answer invocation.
type AnswerRequest struct {
	Query  string
	UserID string
	Plan   *engine.Plan
}

// Pipeline wires every stage component together.
type Pipeline struct {
	planner   *planner.Planner
	searcher  *parallelsearch.Searcher
	extractor *extractor.Extractor
	tagger    *tagger.Tagger
	synth     *synth.Synthesizer
	store     eventstore.Store
	logger    *slog.Logger
}

// New creates a Pipeline from its stage components and the event store
// backing per-user bandits.
func New(
	p *planner.Planner,
	s *parallelsearch.Searcher,
	e *extractor.Extractor,
	t *tagger.Tagger,
	sy *synth.Synthesizer,
	store eventstore.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{planner: p, searcher: s, extractor: e, tagger: t, synth: sy, store: store, logger: logger}
}

// Search runs plan+search only, for GET /api/search's "plan + first-pass
// hits" contract (spec.md §6.1). It does not extract, rank, or synthesize.
func (p *Pipeline) Search(ctx context.Context, query string) (engine.Plan, []engine.SearchHit) {
	plan := p.planner.Plan(ctx, query)
	hits := p.searcher.Run(ctx, plan)
	return plan, hits
}

// Answer runs the full pipeline for req, calling emit once per SSE frame.
// Exactly one FrameComplete or FrameError frame is emitted, unless ctx is
// cancelled first, in which case neither is (spec.md §4.11, §5).
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest, emit func(engine.Frame)) {
	queryID := ids.Default()

	var userBandit *bandit.Bandit
	if req.UserID != "" {
		b := p.store.Bandit(req.UserID)
		b.ResolvePendingImpressions(time.Now())
		userBandit = b
	}

	emit(engine.Frame{Type: engine.FrameProgress, Data: engine.StagePlanning})
	plan := req.Plan
	if plan == nil {
		planned := p.planner.Plan(ctx, req.Query)
		plan = &planned
	}
	if ctx.Err() != nil {
		return
	}

	emit(engine.Frame{Type: engine.FrameProgress, Data: engine.StageSearching})
	hits := p.searcher.Run(ctx, *plan)
	if ctx.Err() != nil {
		return
	}

	pages := p.extractAndTag(ctx, hits)
	if ctx.Err() != nil {
		return
	}

	emit(engine.Frame{Type: engine.FrameProgress, Data: engine.StageAnalyzing})
	ranked := ranker.Rank(req.Query, hits, pages)
	if userBandit != nil {
		ranked = personalizer.Apply(ranked, userBandit.Scores())
	}
	if ctx.Err() != nil {
		return
	}

	if userBandit != nil {
		recordPendingImpressions(userBandit, queryID, ranked)
	}

	emit(engine.Frame{Type: engine.FrameProgress, Data: engine.StageSynthesizing})
	packet, err := p.synth.Synthesize(ctx, queryID, req.Query, ranked, func(chunk string) {
		emit(engine.Frame{Type: engine.FrameChunk, Data: chunk})
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "pipeline: synthesis failed", "error", err, "queryId", queryID)
		emit(engine.Frame{Type: engine.FrameError, Data: engine.ErrorData{
			Error:   "synthesis_failed",
			Message: err.Error(),
		}})
		return
	}

	emit(engine.Frame{Type: engine.FrameComplete, Data: packet})
}

// extractAndTag fetches and tags every hit concurrently (bounded by
// extractConcurrency), dropping any hit whose extraction failed. Every
// extracted page gets non-nil Features: a tagging failure yields the
// tagger's neutral default tuple, which is not marked as a fallback, so
// such a page is boosted and gets pending impressions like any other.
func (p *Pipeline) extractAndTag(ctx context.Context, hits []engine.SearchHit) []engine.PageExtract {
	results := make([]*engine.PageExtract, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)

	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			page := p.extractor.Extract(gctx, hit)
			if page == nil {
				return nil
			}
			features := p.tagger.Tag(gctx, page.Title, page.Body)
			page.Features = &features
			results[i] = page
			return nil
		})
	}
	g.Wait()

	out := make([]engine.PageExtract, 0, len(hits))
	for _, page := range results {
		if page != nil {
			out = append(out, *page)
		}
	}
	return out
}

func recordPendingImpressions(b *bandit.Bandit, queryID string, ranked []engine.RankedDoc) {
	n := topPendingImpressions
	if n > len(ranked) {
		n = len(ranked)
	}
	for _, doc := range ranked[:n] {
		if doc.Features == nil {
			continue
		}
		b.RecordPendingImpression(doc.Features.Arms(), queryID, doc.ID)
	}
}
