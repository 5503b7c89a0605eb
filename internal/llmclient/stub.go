package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Stub is an in-process Client for tests and for running without
// SEARCH_API_KEY/LLM_API_KEY configured, matching spec.md §6.3's
// "required unless wired to an in-process stub for tests" allowance.
type Stub struct {
	mu sync.Mutex

	// StructuredFn, if set, is called for every CallStructured. If unset,
	// CallStructuredResult/CallStructuredErr are returned as configured.
	StructuredFn func(req StructuredRequest) (json.RawMessage, error)

	// StreamFn, if set, is called for every StreamCompletion. If unset,
	// StreamText is split into fragments and forwarded verbatim.
	StreamFn func(req StreamRequest) (string, error)

	CallStructuredResult json.RawMessage
	CallStructuredErr    error
	StreamText           string
	StreamErr            error

	calls int
}

// NewStub returns a Stub with no canned behavior configured; set the
// exported fields or function overrides before use.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) CallStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.StructuredFn != nil {
		return s.StructuredFn(req)
	}
	if s.CallStructuredErr != nil {
		return nil, s.CallStructuredErr
	}
	if s.CallStructuredResult == nil {
		return nil, fmt.Errorf("llmclient/stub: no canned structured response configured")
	}
	return s.CallStructuredResult, nil
}

func (s *Stub) StreamCompletion(ctx context.Context, req StreamRequest) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.StreamFn != nil {
		return s.StreamFn(req)
	}
	if s.StreamErr != nil {
		return "", s.StreamErr
	}
	words := strings.Fields(s.StreamText)
	var full strings.Builder
	for i, w := range words {
		chunk := w
		if i < len(words)-1 {
			chunk += " "
		}
		full.WriteString(chunk)
		if req.OnChunk != nil {
			req.OnChunk(chunk)
		}
	}
	return full.String(), nil
}

// Calls returns the total number of CallStructured+StreamCompletion
// invocations observed so far.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
