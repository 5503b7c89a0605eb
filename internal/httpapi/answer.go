package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/pipeline"
)

// answerStreamBuffer decouples token production from the network write
// loop: the pipeline's chunk callback sends into this channel rather than
// writing to the socket directly, so a slow client never stalls the LLM
// stream consumer (spec.md §5's backpressure contract).
const answerStreamBuffer = 256

type answerRequestBody struct {
	Query  string       `json:"query"`
	UserID string       `json:"userId,omitempty"`
	Plan   *engine.Plan `json:"plan,omitempty"`
}

// handleAnswer serves POST /api/answer: the full pipeline, streamed as
// SSE `data: {type, data}` frames (spec.md §6.1).
func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames := make(chan engine.Frame, answerStreamBuffer)
	go func() {
		defer close(frames)
		a.pipeline.Answer(r.Context(), pipeline.AnswerRequest{
			Query:  req.Query,
			UserID: req.UserID,
			Plan:   req.Plan,
		}, func(f engine.Frame) {
			select {
			case frames <- f:
			case <-r.Context().Done():
			}
		})
	}()

	for frame := range frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			a.logger.ErrorContext(r.Context(), "httpapi: failed to marshal frame", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
