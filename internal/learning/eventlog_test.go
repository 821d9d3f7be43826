package learning

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *EventLogger {
	t.Helper()
	t.Setenv("TORQ_EVENTS_DIR", t.TempDir())
	logger, err := NewEventLogger(fmt.Sprintf("test-%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(logger.Close)
	return logger
}

func TestNewEventLogger(t *testing.T) {
	logger := newTestLogger(t)

	if logger.logPath == "" {
		t.Fatal("expected non-empty log path")
	}
	if logger.file == nil {
		t.Fatal("expected non-nil file handle")
	}
}

func TestLogAndReadRecent(t *testing.T) {
	logger := newTestLogger(t)

	logger.Log(EventSessionStart, "session started")
	logger.Log(EventUserQuery, "search go releases")
	logger.Log(EventRouteDecision, map[string]any{"intent": "web_search", "confidence": 0.70})
	logger.Log(EventToolCall, map[string]any{"tool": "web_search"})
	logger.Log(EventResponse, "here are the results")

	all, err := logger.ReadRecent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 events, got %d", len(all))
	}
	if all[0].SessionID == "" {
		t.Fatal("expected session id on events")
	}

	recent, err := logger.ReadRecent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Type != EventRouteDecision {
		t.Fatalf("expected first of last 3 to be %s, got %s", EventRouteDecision, recent[0].Type)
	}
	if recent[2].Type != EventResponse {
		t.Fatalf("expected last event to be %s, got %s", EventResponse, recent[2].Type)
	}
}

func TestFormatEvents(t *testing.T) {
	events := []Event{
		{Type: EventUserQuery, Timestamp: time.Now(), Data: "hello"},
		{Type: EventRouteDecision, Timestamp: time.Now(), Data: map[string]any{"intent": "direct_answer"}},
	}

	out := FormatEvents(events, "Recent events")
	if !strings.Contains(out, "Recent events (2 events):") {
		t.Fatalf("missing title: %q", out)
	}
	if !strings.Contains(out, "intent=direct_answer") {
		t.Fatalf("missing intent data: %q", out)
	}

	if got := FormatEvents(nil, "Empty"); got != "No events recorded." {
		t.Fatalf("empty case: %q", got)
	}
}
