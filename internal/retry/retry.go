// Package retry implements the exponential-backoff retry contract spec.md
// §6.2 requires of both the search and LLM clients: the initial call plus
// up to 3 retries, with delays of 1s, 2s, 4s on transient failure. Adapted
// from the teacher's connectivity.WithRetry middleware, specialized to a
// fixed attempt count instead of a middleware chain since both call sites
// here wrap a single outbound HTTP call rather than an arbitrary handler
// pipeline.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// MaxRetries is the number of retries after the initial attempt, per
// spec.md §6.2/§7: up to 3 retries (4 total attempts) with delays 1s, 2s,
// 4s, matching the teacher's connectivity.WithRetry(maxRetries) semantics
// of maxRetries retries plus the initial call.
const MaxRetries = 3

// BaseDelay is the first backoff wait; each subsequent retry doubles it
// (1s, 2s, 4s for MaxRetries=3).
const BaseDelay = time.Second

// Transient reports whether an error should trigger a retry. nil errors are
// never retried (there's nothing to retry); callers pass the error returned
// by their operation directly.
type Transient func(err error) bool

// AlwaysTransient treats any non-nil error as retryable. It's the default
// when a client doesn't need to distinguish 4xx (don't retry) from 5xx/
// network errors (do retry).
func AlwaysTransient(error) bool { return true }

// Do runs op once, then retries up to MaxRetries more times (4 total
// calls), waiting BaseDelay*2^attempt between tries (1s, 2s, 4s), stopping
// early on context cancellation or a non-transient error. logger may be
// nil.
func Do(ctx context.Context, logger *slog.Logger, isTransient Transient, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
		if !isTransient(err) {
			return lastErr
		}
		if attempt == MaxRetries {
			break
		}

		wait := BaseDelay * time.Duration(1<<uint(attempt))
		if logger != nil {
			logger.WarnContext(ctx, "retrying call",
				"attempt", attempt+1,
				"max_retries", MaxRetries,
				"backoff", wait,
				"error", err)
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(wait):
		}
	}
	return lastErr
}
