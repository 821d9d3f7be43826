package router

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEvaluateDataset(t *testing.T) {
	c := New(DefaultRuleSet())
	ds := &EvalDataset{
		Version: "test",
		Cases: []EvalCase{
			{ID: "code", Query: "write code for authentication", ExpectedIntent: IntentCodeGeneration, MinConfidence: 0.95},
			{ID: "indirect", Query: "use perplexity to search prince celebration 2026", ExpectedIntent: IntentToolBasedSearch, MinConfidence: 0.90, MaxConfidence: 0.90},
			{ID: "search", Query: "search prince celebration 2026", ExpectedIntent: IntentWebSearch, MinConfidence: 0.70},
			{ID: "fallback", Query: "hello world", ExpectedIntent: IntentDirectAnswer, MinConfidence: 0.50, MaxConfidence: 0.50},
			{ID: "wrong", Query: "hello world", ExpectedIntent: IntentWebSearch},
		},
	}

	summary, results := EvaluateDataset(c, ds)

	if summary.Total != 5 {
		t.Fatalf("total = %d, want 5", summary.Total)
	}
	if summary.Pass != 4 || summary.Fail != 1 {
		t.Fatalf("pass/fail = %d/%d, want 4/1", summary.Pass, summary.Fail)
	}
	if summary.IntentCorrect != 4 {
		t.Fatalf("intent correct = %d, want 4", summary.IntentCorrect)
	}
	if summary.ConfidenceChecks != 4 || summary.ConfidenceCorrect != 4 {
		t.Fatalf("confidence checks/correct = %d/%d, want 4/4", summary.ConfidenceChecks, summary.ConfidenceCorrect)
	}
	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}
	if results[4].Passed {
		t.Fatal("expected the mismatched case to fail")
	}
}

func TestLoadEvalDataset(t *testing.T) {
	ds := EvalDataset{
		Version: "1",
		Cases: []EvalCase{
			{Query: "search something", ExpectedIntent: IntentWebSearch},
		},
	}
	raw, err := json.Marshal(ds)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadEvalDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Cases[0].ID != "case_1" {
		t.Fatalf("expected auto-assigned case ID, got %q", loaded.Cases[0].ID)
	}

	if _, err := LoadEvalDataset(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing dataset file")
	}
}
