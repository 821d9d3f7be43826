package router

import (
	"regexp"
	"strings"
)

// RuleSet holds the four pattern tables, in priority order. A RuleSet is
// immutable after construction; the classifier swaps whole snapshots rather
// than mutating tables in place.
type RuleSet struct {
	codeStarters    []PatternRule
	toolIndirection []PatternRule
	searchKeywords  []PatternRule
	codePhrases     []PatternRule
}

// Tool-indirection phrasing names an external tool together with a search-like
// verb ("use perplexity to search ..."). These must be checked before the
// generic search keywords so the tool name survives into dispatch.
var (
	reUseToSearch      = regexp.MustCompile(`\buse\s+(.+?)\s+to\s+(?:search|find|look\s+up)\b`)
	reWithSearch       = regexp.MustCompile(`\bwith\s+(.+?)\s+(?:search|find)\b`)
	reViaSearch        = regexp.MustCompile(`\bvia\s+(.+?)\s+(?:search|find)\b`)
	reThroughSearch    = regexp.MustCompile(`\bthrough\s+(.+?)\s+(?:search|find)\b`)
	toolIndirectionRes = []*regexp.Regexp{reUseToSearch, reWithSearch, reViaSearch, reThroughSearch}
)

// DefaultRuleSet builds the built-in pattern tables.
func DefaultRuleSet() *RuleSet {
	rs := &RuleSet{}

	// Group 1: explicit code-generation starters. Most are anchored to the
	// start of the query; "write code" and "generate code" also count as
	// standalone phrases anywhere.
	starters := []struct {
		trigger    string
		prefixOnly bool
	}{
		{"write code", false},
		{"generate code", false},
		{"write a program", true},
		{"write a script", true},
		{"write a function", true},
		{"write me", true},
		{"create a", true},
		{"create an", true},
		{"build an app", true},
		{"build a", true},
		{"build me", true},
		{"code a", true},
		{"implement a", true},
		{"develop a", true},
	}
	for _, s := range starters {
		rs.codeStarters = append(rs.codeStarters, PatternRule{
			Category:   IntentCodeGeneration,
			Trigger:    s.trigger,
			Priority:   PriorityCodeStarter,
			prefixOnly: s.prefixOnly,
		})
	}

	// Group 2: tool-indirection search patterns.
	for _, re := range toolIndirectionRes {
		rs.toolIndirection = append(rs.toolIndirection, PatternRule{
			Category: IntentToolBasedSearch,
			Trigger:  re.String(),
			Priority: PriorityToolIndirection,
			re:       re,
		})
	}

	// Group 3: generic search/information verbs. Single-word triggers match
	// on token boundaries; phrases match as substrings.
	searchTriggers := []struct {
		trigger  string
		category IntentCategory
	}{
		{"search", IntentWebSearch},
		{"find", IntentWebSearch},
		{"look up", IntentWebSearch},
		{"look for", IntentWebSearch},
		{"google", IntentWebSearch},
		{"what is", IntentWebSearch},
		{"what are", IntentWebSearch},
		{"who is", IntentWebSearch},
		{"tell me about", IntentWebSearch},
		{"latest", IntentWebSearch},
		{"news about", IntentWebSearch},
		{"research", IntentResearch},
	}
	for _, s := range searchTriggers {
		rs.searchKeywords = append(rs.searchKeywords, PatternRule{
			Category: s.category,
			Trigger:  s.trigger,
			Priority: PrioritySearchKeyword,
		})
	}

	// Group 4: generic code phrasing not anchored to the query start.
	// Checked only after group 3 so incidental code vocabulary never
	// outranks an explicit search request.
	codePhrases := []string{
		"function that",
		"class that implements",
		"class that",
		"script that",
		"program that",
		"method that",
		"algorithm that",
		"implement",
		"refactor",
	}
	for _, p := range codePhrases {
		rs.codePhrases = append(rs.codePhrases, PatternRule{
			Category: IntentCodeGeneration,
			Trigger:  p,
			Priority: PriorityCodePhrase,
		})
	}

	return rs
}

// ExtractToolTarget returns the tool name captured by a tool-indirection
// match ("use perplexity to search x" -> "perplexity"), or "" when the query
// is not tool-indirected. Multi-word targets are returned as-is.
func ExtractToolTarget(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, re := range toolIndirectionRes {
		if m := re.FindStringSubmatch(q); len(m) >= 2 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// tokenize splits a lowercased query into a set of word tokens.
func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	for _, p := range parts {
		if p == "" {
			continue
		}
		out[p] = true
	}
	return out
}

// matchesLiteral checks a literal trigger against a lowercased query.
// Single words match against the token set; phrases use substring matching.
func matchesLiteral(q string, tokens map[string]bool, trigger string) bool {
	if strings.ContainsRune(trigger, ' ') {
		return strings.Contains(q, trigger)
	}
	return tokens[trigger]
}
