package router

import (
	"errors"
	"regexp"
)

// IntentCategory is the closed set of downstream pathways a query can route to.
// Adding a category means adding rules, not new types.
type IntentCategory string

const (
	IntentCodeGeneration  IntentCategory = "code_generation"
	IntentWebSearch       IntentCategory = "web_search"
	IntentToolBasedSearch IntentCategory = "tool_based_search"
	IntentResearch        IntentCategory = "research"
	IntentDirectAnswer    IntentCategory = "direct_answer"
)

// IsSearch reports whether the category dispatches to the search pathway.
func (c IntentCategory) IsSearch() bool {
	return c == IntentWebSearch || c == IntentToolBasedSearch || c == IntentResearch
}

// Rule priorities. Lower value wins; groups are checked in this order and the
// first matching group short-circuits the rest.
const (
	PriorityCodeStarter     = 1 // explicit code-generation starters
	PriorityToolIndirection = 2 // "use X to search" style phrasing
	PrioritySearchKeyword   = 3 // generic search/information verbs
	PriorityCodePhrase      = 4 // code-ish phrasing not anchored to query start
)

// PatternRule is one static trigger in the pattern tables.
// Trigger is either a literal phrase or, for regex rules, the pattern source.
type PatternRule struct {
	Category IntentCategory
	Trigger  string
	Priority int

	re         *regexp.Regexp // non-nil for regex rules
	prefixOnly bool           // literal must match at the start of the query
}

// Regex reports whether this rule matches by regular expression.
func (r *PatternRule) Regex() bool { return r.re != nil }

// RoutingDecision is the single output of one routing call. It has no
// lifecycle: the dispatch adapter consumes it immediately.
type RoutingDecision struct {
	Category    IntentCategory `json:"intent"`
	Confidence  float64        `json:"confidence"`
	Reasoning   string         `json:"reasoning"`
	MatchedRule *PatternRule   `json:"-"`
}

// ErrInvalidInput is returned for empty or whitespace-only queries.
// The classifier never guesses on empty input.
var ErrInvalidInput = errors.New("router: query is empty or whitespace-only")
