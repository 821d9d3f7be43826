package router

// Per-group base confidences. Group 3 grows with each additional distinct
// keyword but is capped: a query stuffed with incidental keyword hits must
// not outrank an explicit code starter, and downstream consumers threshold
// on these values.
const (
	confidenceCodeStarter     = 0.95
	confidenceToolIndirection = 0.90
	confidenceSearchBase      = 0.70
	confidenceSearchStep      = 0.10
	confidenceSearchCap       = 0.95
	confidenceCodePhrase      = 0.85
	confidenceFallback        = 0.50
)

// FallbackConfidence is the fixed confidence reported when no rule matches.
const FallbackConfidence = confidenceFallback

// searchConfidence computes group-3 confidence from the number of distinct
// matching keywords.
func searchConfidence(hits int) float64 {
	if hits < 1 {
		hits = 1
	}
	conf := confidenceSearchBase + confidenceSearchStep*float64(hits-1)
	if conf > confidenceSearchCap {
		conf = confidenceSearchCap
	}
	return conf
}
