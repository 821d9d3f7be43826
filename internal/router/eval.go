package router

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EvalCase defines one offline routing evaluation sample.
type EvalCase struct {
	ID    string `json:"id"`
	Query string `json:"query"`

	ExpectedIntent IntentCategory `json:"expected_intent"`

	// Optional confidence window. Zero values disable the check
	// (MaxConfidence 0 means "no upper bound").
	MinConfidence float64 `json:"min_confidence,omitempty"`
	MaxConfidence float64 `json:"max_confidence,omitempty"`
}

// EvalDataset is a collection of routing evaluation cases.
type EvalDataset struct {
	Version string     `json:"version"`
	Cases   []EvalCase `json:"cases"`
}

// EvalCaseResult is the evaluated result for one sample.
type EvalCaseResult struct {
	ID     string `json:"id"`
	Passed bool   `json:"passed"`

	ExpectedIntent IntentCategory `json:"expected_intent"`
	ActualIntent   IntentCategory `json:"actual_intent"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`

	Failures []string `json:"failures,omitempty"`
}

// EvalSummary aggregates evaluation metrics.
type EvalSummary struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`

	IntentChecks      int `json:"intent_checks"`
	IntentCorrect     int `json:"intent_correct"`
	ConfidenceChecks  int `json:"confidence_checks"`
	ConfidenceCorrect int `json:"confidence_correct"`
}

func (s EvalSummary) IntentAccuracy() float64 {
	if s.IntentChecks == 0 {
		return 0
	}
	return float64(s.IntentCorrect) / float64(s.IntentChecks)
}

func (s EvalSummary) ConfidenceHitRate() float64 {
	if s.ConfidenceChecks == 0 {
		return 0
	}
	return float64(s.ConfidenceCorrect) / float64(s.ConfidenceChecks)
}

// LoadEvalDataset reads and parses a routing evaluation dataset JSON file.
func LoadEvalDataset(path string) (*EvalDataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds EvalDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(ds.Cases) == 0 {
		return nil, fmt.Errorf("dataset has no cases")
	}
	for i := range ds.Cases {
		if strings.TrimSpace(ds.Cases[i].ID) == "" {
			ds.Cases[i].ID = fmt.Sprintf("case_%d", i+1)
		}
	}
	return &ds, nil
}

// EvaluateDataset runs all cases through the classifier and returns metrics.
func EvaluateDataset(c *Classifier, ds *EvalDataset) (EvalSummary, []EvalCaseResult) {
	summary := EvalSummary{Total: len(ds.Cases)}
	results := make([]EvalCaseResult, 0, len(ds.Cases))

	for _, ec := range ds.Cases {
		r := EvalCaseResult{
			ID:             ec.ID,
			ExpectedIntent: ec.ExpectedIntent,
			Passed:         true,
		}

		decision, err := c.Classify(ec.Query)
		if err != nil {
			r.Passed = false
			r.Failures = append(r.Failures, fmt.Sprintf("classify error: %v", err))
			summary.Fail++
			results = append(results, r)
			continue
		}
		r.ActualIntent = decision.Category
		r.Confidence = decision.Confidence
		r.Reasoning = decision.Reasoning

		summary.IntentChecks++
		if decision.Category == ec.ExpectedIntent {
			summary.IntentCorrect++
		} else {
			r.Passed = false
			r.Failures = append(r.Failures, fmt.Sprintf("intent mismatch: want=%s got=%s", ec.ExpectedIntent, decision.Category))
		}

		if ec.MinConfidence > 0 || ec.MaxConfidence > 0 {
			summary.ConfidenceChecks++
			ok := decision.Confidence >= ec.MinConfidence
			if ec.MaxConfidence > 0 && decision.Confidence > ec.MaxConfidence {
				ok = false
			}
			if ok {
				summary.ConfidenceCorrect++
			} else {
				r.Passed = false
				r.Failures = append(r.Failures, fmt.Sprintf(
					"confidence %.2f outside [%.2f, %.2f]", decision.Confidence, ec.MinConfidence, ec.MaxConfidence))
			}
		}

		if r.Passed {
			summary.Pass++
		} else {
			summary.Fail++
		}
		results = append(results, r)
	}

	return summary, results
}
