package agehint

import (
	"testing"
	"time"
)

func TestParse_RelativePhrase(t *testing.T) {
	got := Parse("3 days ago")
	if got == nil {
		t.Fatal("expected non-nil")
	}
	want := time.Now().UTC().AddDate(0, 0, -3)
	if diff := want.Sub(*got); diff < -time.Minute || diff > time.Minute {
		t.Errorf("parsed time off by %v", diff)
	}
}

func TestParse_ISO(t *testing.T) {
	got := Parse("2024-03-01T00:00:00Z")
	if got == nil || got.Year() != 2024 {
		t.Errorf("got %v", got)
	}
}

func TestParse_Empty(t *testing.T) {
	if got := Parse(""); got != nil {
		t.Errorf("expected nil for empty hint, got %v", got)
	}
}

func TestParse_Unparseable(t *testing.T) {
	if got := Parse("not a date zzz"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
