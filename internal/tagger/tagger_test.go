package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/lucenthq/lucent/internal/llmclient"
)

func TestTag_Success(t *testing.T) {
	stub := llmclient.NewStub()
	stub.CallStructuredResult = json.RawMessage(`{"depth":"expert","style":"academic","format":"research","approach":"data-driven","density":"comprehensive"}`)

	tg := New(stub, nil)
	features := tg.Tag(context.Background(), "Deep Sea Pressure Adaptations", "a very long body of text about piezolytes and membrane fluidity")

	if features.Depth != "expert" || features.Style != "academic" {
		t.Errorf("features: got %+v", features)
	}
	if !features.Valid() {
		t.Error("expected valid features")
	}
}

func TestTag_FallbackOnError(t *testing.T) {
	stub := llmclient.NewStub()
	stub.CallStructuredErr = fmt.Errorf("rate limited")

	tg := New(stub, nil)
	features := tg.Tag(context.Background(), "x", "y")

	if features.Depth != "intermediate" || features.Style != "journalistic" {
		t.Errorf("expected default features, got %+v", features)
	}
}

func TestTag_FallbackOnInvalidVocabulary(t *testing.T) {
	stub := llmclient.NewStub()
	stub.CallStructuredResult = json.RawMessage(`{"depth":"super-expert","style":"academic","format":"research","approach":"data-driven","density":"comprehensive"}`)

	tg := New(stub, nil)
	features := tg.Tag(context.Background(), "x", "y")

	if features.Depth != "intermediate" {
		t.Errorf("expected default features on invalid vocabulary, got %+v", features)
	}
}

func TestTag_TruncatesLongBody(t *testing.T) {
	stub := llmclient.NewStub()
	var capturedPromptLen int
	stub.StructuredFn = func(req llmclient.StructuredRequest) (json.RawMessage, error) {
		capturedPromptLen = len(req.Prompt)
		return json.RawMessage(`{"depth":"intermediate","style":"journalistic","format":"reference","approach":"practical","density":"moderate"}`), nil
	}

	longBody := make([]byte, 5000)
	for i := range longBody {
		longBody[i] = 'a'
	}

	tg := New(stub, nil)
	tg.Tag(context.Background(), "title", string(longBody))

	if capturedPromptLen > bodyTruncateLen+200 {
		t.Errorf("prompt not truncated: len %d", capturedPromptLen)
	}
}
