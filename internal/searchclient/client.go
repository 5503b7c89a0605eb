// Package searchclient implements a single search over a single sub-query,
// normalizing provider results into engine.SearchHit. Adapted from the
// teacher's veille/internal/search package: the same Strategy-dispatch
// shape (one HTTP JSON provider today, room for others), minus the
// Rod/Chrome "generic" strategy — this pipeline never renders JS pages;
// internal/extractor fetches pages with a plain HTTP GET.
package searchclient

import (
	"context"

	"github.com/lucenthq/lucent/internal/engine"
)

// Client is the pluggable search provider interface from spec.md §6.2.
// It is never called directly by the pipeline — only through
// internal/parallelsearch, which owns fan-out, dedup, and fallback.
type Client interface {
	Search(ctx context.Context, subQuery string, maxResults int) ([]engine.SearchHit, error)
}
