package router

import "testing"

func TestExtractToolTarget(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"use perplexity to search prince celebration 2026", "perplexity"},
		{"Use Perplexity to find the schedule", "perplexity"},
		{"use the docs server to look up context cancellation", "the docs server"},
		{"with google search the weather", "google"},
		{"via serpapi find standings", "serpapi"},
		{"through brave search for restaurants", "brave"},
		{"search prince celebration 2026", ""},
		{"hello world", ""},
	}

	for _, tc := range tests {
		if got := ExtractToolTarget(tc.query); got != tc.want {
			t.Fatalf("ExtractToolTarget(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestDefaultRuleSetGroupsPopulated(t *testing.T) {
	rs := DefaultRuleSet()

	if len(rs.codeStarters) == 0 || len(rs.toolIndirection) == 0 ||
		len(rs.searchKeywords) == 0 || len(rs.codePhrases) == 0 {
		t.Fatal("expected all four pattern groups to be populated")
	}
	for _, r := range rs.toolIndirection {
		if !r.Regex() {
			t.Fatalf("tool-indirection rule %q should be a regex rule", r.Trigger)
		}
		if r.Priority != PriorityToolIndirection {
			t.Fatalf("tool-indirection rule priority = %d", r.Priority)
		}
	}
}

func TestSearchConfidenceSteps(t *testing.T) {
	tests := []struct {
		hits int
		want float64
	}{
		{1, 0.70},
		{2, 0.80},
		{3, 0.90},
		{4, 0.95}, // capped
		{9, 0.95},
	}
	for _, tc := range tests {
		if got := searchConfidence(tc.hits); got != tc.want {
			t.Fatalf("searchConfidence(%d) = %.2f, want %.2f", tc.hits, got, tc.want)
		}
	}
}
