// Package agehint parses the free-text "age" strings search providers
// attach to results (spec.md §4.4, §4.7): ISO-8601 timestamps, human dates
// like "Month D, YYYY", and relative phrases like "3 days ago". Shared by
// internal/extractor (the provider hint, after the page's own meta and
// <time> dates, which it parses itself) and internal/ranker (the same hint
// used as a recency fallback when extraction produced no date).
package agehint

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var relativeAgeRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*(hour|day|week|month|year)s?\s*ago\s*$`)

// Parse parses hint as either a relative phrase ("N {unit}s ago") or any
// date format dateparse recognizes (ISO-8601, "Month D, YYYY", etc.).
// Returns nil if hint is empty or unparseable.
func Parse(hint string) *time.Time {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	if m := relativeAgeRe.FindStringSubmatch(hint); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			t := offsetFromNow(n, strings.ToLower(m[2]))
			return &t
		}
	}

	if t, err := dateparse.ParseAny(hint); err == nil {
		return &t
	}
	return nil
}

func offsetFromNow(n int, unit string) time.Time {
	now := time.Now().UTC()
	switch unit {
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	case "year":
		return now.AddDate(-n, 0, 0)
	default:
		return now
	}
}
