package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const (
	defaultCmdTimeout = 120 * time.Second
	maxCmdTimeout     = 600 * time.Second
	cmdIdleTimeout    = 30 * time.Second // kill if no new output for this long
)

// TerminalTool executes shell commands on behalf of the dispatcher.
type TerminalTool struct {
	WorkDir  string // working directory for commands, empty means inherit
	AuditLog string // append-only JSONL log of executed commands, empty disables
}

func (t *TerminalTool) Name() string                     { return "terminal" }
func (t *TerminalTool) IsReadOnly() bool                 { return false }
func (t *TerminalTool) PermissionLevel() PermissionLevel { return PermissionExecute }

func (t *TerminalTool) Description() string {
	return "Execute a shell command and return its combined stdout and stderr output. " +
		"stdin is disconnected — interactive commands will fail. " +
		"Commands are killed after 30 seconds without output."
}

func (t *TerminalTool) Parameters() map[string]any {
	return map[string]any{
		"command": map[string]any{
			"type":        "string",
			"description": "The shell command to execute. stdin is /dev/null.",
		},
		"timeout": map[string]any{
			"type":        "integer",
			"description": "Timeout in seconds (default 120, max 600).",
		},
	}
}

func (t *TerminalTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Command == "" {
		return ToolResult{}, fmt.Errorf("command is required")
	}

	timeout := defaultCmdTimeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Second
	}
	if timeout > maxCmdTimeout {
		timeout = maxCmdTimeout
	}

	result, err := t.run(ctx, p.Command, timeout)
	t.audit(p.Command, result, err)
	return result, err
}

// run executes a command with both a hard timeout and an idle-output timeout.
// If no new stdout/stderr is produced for cmdIdleTimeout, the process is
// killed early instead of waiting for the full hard timeout.
func (t *TerminalTool) run(ctx context.Context, command string, timeout time.Duration) (ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shellBin(), "-c", command)
	// Explicitly close stdin so interactive commands fail fast with EOF.
	cmd.Stdin = nil
	if t.WorkDir != "" {
		cmd.Dir = t.WorkDir
	}
	// New process group so the entire tree can be killed.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf safeBuffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return ToolResult{Content: fmt.Sprintf("Failed to start: %v", err), IsError: true}, nil
	}

	var lastOutputTime atomic.Int64
	lastOutputTime.Store(time.Now().UnixMilli())
	buf.onWrite = func() {
		lastOutputTime.Store(time.Now().UnixMilli())
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	idleTicker := time.NewTicker(1 * time.Second)
	defer idleTicker.Stop()

	idledOut := false
	for {
		select {
		case err := <-done:
			result := buf.String()
			if err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					secs := int(timeout.Seconds())
					return ToolResult{
						Content: fmt.Sprintf("Command timed out after %dm%ds.\nOutput:\n%s", secs/60, secs%60, result),
						IsError: true,
					}, nil
				}
				if ctx.Err() == context.Canceled {
					return ToolResult{}, fmt.Errorf("cancelled")
				}
				return ToolResult{
					Content: fmt.Sprintf("Exit error: %v\nOutput:\n%s", err, result),
					IsError: true,
				}, nil
			}
			return ToolResult{Content: result}, nil

		case <-idleTicker.C:
			last := time.UnixMilli(lastOutputTime.Load())
			if time.Since(last) >= cmdIdleTimeout {
				idledOut = true
				killProcessGroup(cmd)
			}

		case <-ctx.Done():
			killProcessGroup(cmd)
			// The done channel fires on the next iteration.
		}

		if idledOut {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
			result := buf.String()
			return ToolResult{
				Content: fmt.Sprintf(
					"Command killed: no output for %ds (idle timeout). "+
						"The command may be waiting for input.\nOutput:\n%s",
					int(cmdIdleTimeout.Seconds()), result),
				IsError: true,
			}, nil
		}
	}
}

// audit appends a JSONL record of the executed command.
func (t *TerminalTool) audit(command string, result ToolResult, err error) {
	if t.AuditLog == "" {
		return
	}
	rec := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"command": command,
		"error":   result.IsError || err != nil,
	}
	line, marshalErr := json.Marshal(rec)
	if marshalErr != nil {
		return
	}
	f, openErr := os.OpenFile(t.AuditLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if openErr != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}

// killProcessGroup sends SIGTERM to the process group, waits briefly, then
// sends SIGKILL if the process is still alive.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	// Negative PID signals the entire process group.
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(200 * time.Millisecond)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// safeBuffer is a bytes.Buffer safe for concurrent reads and writes,
// with an optional callback invoked on each Write.
type safeBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	onWrite func()
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	n, err = b.buf.Write(p)
	b.mu.Unlock()
	if n > 0 && b.onWrite != nil {
		b.onWrite()
	}
	return
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*safeBuffer)(nil)

// shellBin returns the user's preferred shell, falling back to bash then sh.
func shellBin() string {
	if s := os.Getenv("SHELL"); s != "" {
		if _, err := os.Stat(s); err == nil {
			return s
		}
	}
	if p, err := exec.LookPath("bash"); err == nil {
		return p
	}
	return "sh"
}
