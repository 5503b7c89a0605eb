// Package llmclient defines the pluggable LLM back-end interface from
// spec.md §6.2: a structured JSON-schema call and a free-form streaming
// completion, both retried with exponential backoff. The wire shape mirrors
// the teacher's gpufeeder.VLLMHTTPClient (OpenAI chat/completions), adapted
// from a single-shot submitter into the two call patterns this pipeline
// needs.
package llmclient

import (
	"context"
	"encoding/json"
)

// StructuredRequest is one callStructured invocation (spec.md §6.2a).
type StructuredRequest struct {
	Prompt       string
	SystemPrompt string
	Schema       map[string]any // JSON schema the response must validate against
	Temperature  float64
	MaxTokens    int
}

// StreamRequest is one streamCompletion invocation (spec.md §6.2b). OnChunk
// is called once per forwarded token/fragment; it must not block the
// consumer (spec.md §5 backpressure contract) — implementations send
// received chunks to it synchronously but callers are expected to buffer
// or fan the callback out asynchronously themselves if downstream is slow.
type StreamRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	OnChunk      func(chunk string)
}

// Client is the pluggable LLM back-end. Implementations MUST retry
// transient failures up to retry.MaxRetries times before returning an
// error (spec.md §6.2, §7).
type Client interface {
	// CallStructured returns the raw JSON object produced by the model; the
	// caller unmarshals it into the concrete type it expects (the planner
	// into a subQueries list, the tagger into ContentFeatures).
	CallStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)

	// StreamCompletion returns the full accumulated text once the stream
	// ends, having forwarded every fragment through req.OnChunk as it
	// arrived.
	StreamCompletion(ctx context.Context, req StreamRequest) (string, error)
}
