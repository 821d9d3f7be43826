package router

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Classifier routes a free-form query to an intent category by applying the
// pattern tables in fixed priority order, short-circuiting on the first
// confident match. It is pure and deterministic: same input, same output.
//
// The active RuleSet is held behind an atomic pointer so rules can be
// hot-reloaded as a whole snapshot while concurrent classifications proceed
// against the old one.
type Classifier struct {
	rules atomic.Pointer[RuleSet]
}

// New creates a classifier over the given rule set.
func New(rs *RuleSet) *Classifier {
	c := &Classifier{}
	c.rules.Store(rs)
	return c
}

// Swap atomically replaces the active rule set.
func (c *Classifier) Swap(rs *RuleSet) { c.rules.Store(rs) }

// Classify produces exactly one RoutingDecision for the query.
//
// Group order is strict: explicit code starters, then tool-indirection search
// patterns, then generic search keywords, then generic code phrasing, then
// the direct-answer fallback. A query matching both a code starter and a
// tool-indirection pattern resolves to code generation: explicit code intent
// dominates even when the phrase also mentions "search". Conversely a
// tool-indirection match is never downgraded by code-ish words elsewhere in
// the query.
//
// Beyond case-folding and trimming, no normalization is applied; Unicode
// normalization and whitespace collapsing are the caller's concern.
func (c *Classifier) Classify(query string) (RoutingDecision, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return RoutingDecision{}, ErrInvalidInput
	}

	rs := c.rules.Load()
	tokens := tokenize(q)

	// Group 1: explicit code-generation starters.
	for i := range rs.codeStarters {
		rule := &rs.codeStarters[i]
		var hit bool
		if rule.prefixOnly {
			hit = strings.HasPrefix(q, rule.Trigger)
		} else {
			hit = matchesLiteral(q, tokens, rule.Trigger)
		}
		if hit {
			return RoutingDecision{
				Category:    rule.Category,
				Confidence:  confidenceCodeStarter,
				Reasoning:   fmt.Sprintf("explicit code-generation starter %q", rule.Trigger),
				MatchedRule: rule,
			}, nil
		}
	}

	// Group 2: tool-indirection search patterns.
	for i := range rs.toolIndirection {
		rule := &rs.toolIndirection[i]
		if rule.re.MatchString(q) {
			reasoning := "tool-indirection search phrasing"
			if target := ExtractToolTarget(q); target != "" {
				reasoning = fmt.Sprintf("tool-indirection search phrasing naming %q", target)
			}
			return RoutingDecision{
				Category:    rule.Category,
				Confidence:  confidenceToolIndirection,
				Reasoning:   reasoning,
				MatchedRule: rule,
			}, nil
		}
	}

	// Group 3: generic search keywords. The first matching rule decides the
	// category; every additional distinct trigger raises confidence.
	var first *PatternRule
	hits := 0
	for i := range rs.searchKeywords {
		rule := &rs.searchKeywords[i]
		if matchesLiteral(q, tokens, rule.Trigger) {
			hits++
			if first == nil {
				first = rule
			}
		}
	}
	if first != nil {
		return RoutingDecision{
			Category:    first.Category,
			Confidence:  searchConfidence(hits),
			Reasoning:   fmt.Sprintf("search keyword %q (%d distinct keyword(s))", first.Trigger, hits),
			MatchedRule: first,
		}, nil
	}

	// Group 4: generic code phrasing.
	for i := range rs.codePhrases {
		rule := &rs.codePhrases[i]
		if matchesLiteral(q, tokens, rule.Trigger) {
			return RoutingDecision{
				Category:    rule.Category,
				Confidence:  confidenceCodePhrase,
				Reasoning:   fmt.Sprintf("code phrasing %q", rule.Trigger),
				MatchedRule: rule,
			}, nil
		}
	}

	// Fallback: no table matched.
	return RoutingDecision{
		Category:   IntentDirectAnswer,
		Confidence: confidenceFallback,
		Reasoning:  "no pattern matched; defaulting to direct answer",
	}, nil
}
