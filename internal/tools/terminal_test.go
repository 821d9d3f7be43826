package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTerminalExecuteEcho(t *testing.T) {
	tool := &TerminalTool{}
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo hello"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Fatalf("output missing echo: %q", result.Content)
	}
}

func TestTerminalExecuteExitCode(t *testing.T) {
	tool := &TerminalTool{}
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo oops >&2; exit 3"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for non-zero exit")
	}
	if !strings.Contains(result.Content, "oops") {
		t.Fatalf("stderr not captured: %q", result.Content)
	}
}

func TestTerminalWorkDir(t *testing.T) {
	dir := t.TempDir()
	tool := &TerminalTool{WorkDir: dir}
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"pwd"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(result.Content)
	// On macOS /tmp is a symlink to /private/tmp.
	if got != dir && !strings.HasSuffix(got, dir) {
		t.Fatalf("pwd = %q, want %q", got, dir)
	}
}

func TestTerminalMissingCommand(t *testing.T) {
	tool := &TerminalTool{}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestTerminalAuditLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	tool := &TerminalTool{AuditLog: logPath}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo audited"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("audit log not written: %v", err)
	}

	var rec struct {
		Command string `json:"command"`
		Error   bool   `json:"error"`
	}
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("audit log is not valid JSON: %v", err)
	}
	if rec.Command != "echo audited" || rec.Error {
		t.Fatalf("unexpected audit record: %+v", rec)
	}
}
