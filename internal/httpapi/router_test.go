package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/eventstore"
	"github.com/lucenthq/lucent/internal/extractor"
	"github.com/lucenthq/lucent/internal/llmclient"
	"github.com/lucenthq/lucent/internal/parallelsearch"
	"github.com/lucenthq/lucent/internal/pipeline"
	"github.com/lucenthq/lucent/internal/planner"
	"github.com/lucenthq/lucent/internal/searchclient"
	"github.com/lucenthq/lucent/internal/synth"
	"github.com/lucenthq/lucent/internal/tagger"
)

const testPageHTML = `<html><head><title>Deep Sea Pressure</title>
<meta property="article:published_time" content="2024-01-15T00:00:00Z"></head>
<body><article><h1>Deep Sea Pressure</h1>
<p>Deep sea fish adapt to crushing pressure through specialized proteins and flexible membranes, allowing survival at extreme depths.</p>
</article></body></html>`

func noopValidate(string) error { return nil }

// newTestAPI wires a full pipeline against stub LLM and search clients plus
// a real extraction server, the same pattern pipeline_test.go uses.
func newTestAPI(t *testing.T) (*API, *eventstore.MemoryStore, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPageHTML))
	}))

	searchStub := searchclient.NewStub()
	searchStub.AddResult("deep sea fish pressure", "Deep Sea Pressure", srv.URL, "fish pressure adaptation")
	searchStub.AddResult("fish adaptation mechanisms", "Deep Sea Pressure", srv.URL, "fish pressure adaptation")

	plannerLLM := llmclient.NewStub()
	plannerLLM.CallStructuredResult = json.RawMessage(`{"subQueries":["deep sea fish pressure","fish adaptation mechanisms"]}`)

	taggerLLM := llmclient.NewStub()
	taggerLLM.CallStructuredResult = json.RawMessage(`{"depth":"expert","style":"academic","format":"research","approach":"data-driven","density":"comprehensive"}`)

	synthLLM := llmclient.NewStub()
	synthLLM.StreamText = "Deep sea fish survive immense pressure via specialized proteins [1]."

	pl := planner.New(plannerLLM, nil)
	searcher := parallelsearch.New(searchStub, parallelsearch.Config{}, nil)
	ext := extractor.New(nil, extractor.WithHTTPClient(&http.Client{}, noopValidate))
	tag := tagger.New(taggerLLM, nil)
	sy := synth.New(synthLLM, nil)
	store := eventstore.NewMemoryStore(0)

	p := pipeline.New(pl, searcher, ext, tag, sy, store, nil)
	api := New(p, store, nil)

	return api, store, srv.Close
}

func TestHandleHealth(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true {
		t.Errorf("ok: got %v, want true", body["ok"])
	}
}

func TestHandleSearch_MissingQueryReturns400(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleSearch_ReturnsPlanAndResults(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=deep+sea+fish+pressure", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var body searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Plan.SubQueries) == 0 {
		t.Error("expected non-empty sub-queries")
	}
	if len(body.Results) == 0 {
		t.Error("expected non-empty results")
	}
}

func TestHandleAnswer_StreamsSSEFramesEndingInComplete(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	body, _ := json.Marshal(answerRequestBody{Query: "deep sea fish pressure"})
	req := httptest.NewRequest(http.MethodPost, "/api/answer", bytes.NewReader(body))
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: got %q", ct)
	}

	var frames []engine.Frame
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f engine.Frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		frames = append(frames, f)
	}

	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	if frames[len(frames)-1].Type != engine.FrameComplete {
		t.Errorf("last frame type: got %v, want %v", frames[len(frames)-1].Type, engine.FrameComplete)
	}
}

func TestHandleAnswer_MissingQueryReturns400(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	body, _ := json.Marshal(answerRequestBody{})
	req := httptest.NewRequest(http.MethodPost, "/api/answer", bytes.NewReader(body))
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleEvents_PostThenGetRoundTrips(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	event := engine.UserEvent{
		UserID:    "u1",
		EventType: engine.EventSourceExpanded,
		SourceID:  "src-1",
	}
	body, _ := json.Marshal(event)
	postReq := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(body))
	postW := httptest.NewRecorder()
	api.Router("*").ServeHTTP(postW, postReq)
	if postW.Code != http.StatusOK {
		t.Fatalf("post status: got %d, want %d", postW.Code, http.StatusOK)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/events?userId=u1", nil)
	getW := httptest.NewRecorder()
	api.Router("*").ServeHTTP(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want %d", getW.Code, http.StatusOK)
	}

	var events []engine.UserEvent
	if err := json.Unmarshal(getW.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events: got %d, want 1", len(events))
	}
	if events[0].SourceID != "src-1" {
		t.Errorf("sourceId: got %q, want src-1", events[0].SourceID)
	}
}

// Event intake is best-effort: a missing userId is logged and the event
// is dropped silently, not rejected with a 4xx.
func TestHandleEventsPost_MissingUserIDDropsSilentlyWithOKStatus(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	event := engine.UserEvent{
		EventType: engine.EventSourceExpanded,
		SourceID:  "src-1",
	}
	body, _ := json.Marshal(event)
	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] {
		t.Error("expected success:false for a dropped event")
	}
}

func TestHandleEvents_MissingUserIDReturns400(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandlePreferences_ReflectsClickEvidence(t *testing.T) {
	api, store, cleanup := newTestAPI(t)
	defer cleanup()

	features := engine.ContentFeatures{
		Depth: "expert", Style: "academic", Format: "research",
		Approach: "data-driven", Density: "comprehensive",
	}
	err := store.Append(context.Background(), engine.UserEvent{
		UserID:    "u2",
		EventType: engine.EventSourceClicked,
		SourceID:  "src-1",
		Meta:      &engine.EventMeta{Features: &features},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/preferences?userId=u2", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var body preferencesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalInteractions != 1 {
		t.Errorf("totalInteractions: got %d, want 1", body.TotalInteractions)
	}
	if len(body.TopArms) == 0 {
		t.Error("expected at least one top arm")
	}
}

func TestHandlePreferencesDelete_WipesUserState(t *testing.T) {
	api, store, cleanup := newTestAPI(t)
	defer cleanup()

	store.Append(context.Background(), engine.UserEvent{
		UserID:    "u3",
		EventType: engine.EventSourceExpanded,
		SourceID:  "src-1",
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/preferences?userId=u3", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	events, err := store.ListEvents(context.Background(), "u3")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected events wiped, got %d", len(events))
	}
}

func TestHandlePreferences_MissingUserIDReturns400(t *testing.T) {
	api, _, cleanup := newTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	w := httptest.NewRecorder()
	api.Router("*").ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}
