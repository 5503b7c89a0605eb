package bm25

import "testing"

func TestScore_RanksMoreRelevantDocHigher(t *testing.T) {
	corpus := New([]Doc{
		{ID: "a", Text: "deep sea fish survive extreme pressure in the abyss"},
		{ID: "b", Text: "cooking pasta with tomato sauce and basil"},
	})

	scoreA := corpus.Score("deep sea fish pressure", "a")
	scoreB := corpus.Score("deep sea fish pressure", "b")

	if scoreA <= scoreB {
		t.Errorf("expected doc a to score higher: a=%v b=%v", scoreA, scoreB)
	}
	if scoreA <= 0 {
		t.Errorf("expected positive score for matching doc, got %v", scoreA)
	}
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	corpus := New([]Doc{
		{ID: "a", Text: "pressure pressure pressure pressure pressure pressure pressure"},
	})
	score := corpus.Score("pressure", "a")
	if score < 0 || score > 1 {
		t.Errorf("score out of [0,1]: %v", score)
	}
}

func TestScore_UnknownDocIsZero(t *testing.T) {
	corpus := New([]Doc{{ID: "a", Text: "hello world"}})
	if got := corpus.Score("hello", "missing"); got != 0 {
		t.Errorf("expected 0 for unknown doc, got %v", got)
	}
}

func TestScore_EmptyCorpusIsZero(t *testing.T) {
	corpus := New(nil)
	if got := corpus.Score("hello", "a"); got != 0 {
		t.Errorf("expected 0 for empty corpus, got %v", got)
	}
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	toks := tokenize("a an to ocean sea")
	for _, tok := range toks {
		if len(tok) <= 2 {
			t.Errorf("expected tokens of length <=2 to be dropped, found %q", tok)
		}
	}
	if len(toks) != 2 {
		t.Errorf("expected 2 surviving tokens (ocean, sea), got %v", toks)
	}
}
