// Package checkpoint implements the Checkpoint Writer external collaborator from spec.md §7.5:
// before an approval-gated, mutating tool call executes, a restorable snapshot of the repository
// and conversation state is written to disk. Grounded on internal/gocas/gocas.go's best-effort
// git metadata capture (gitOutput, rev-parse HEAD) and its JSON-record write shape; repurposed
// from a content-addressed package-metadata cache into a timestamped mutation-checkpoint writer.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/relayctl/atc/internal/history"
)

// Record is the JSON blob written for each checkpoint: spec.md §7.5's
// {history, client_history, tool_call, commit_hash, file_path}. FilePath is the mutating tool
// call's own target file (e.g. args.file_path), not this record's own on-disk location.
type Record struct {
	History       []history.Entry `json:"history"`
	ClientHistory json.RawMessage `json:"client_history,omitempty"`
	ToolCall      ToolCallRef     `json:"tool_call"`
	CommitHash    string          `json:"commit_hash,omitempty"`
	FilePath      string          `json:"file_path"`
}

// ToolCallRef identifies the tool call that triggered this checkpoint.
type ToolCallRef struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
}

// Writer writes checkpoint records into Dir, one JSON file per mutating tool call.
type Writer struct {
	Dir string

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// Write snapshots the current git HEAD commit (best-effort; a non-git directory or missing git
// binary just yields an empty CommitHash, matching gocas's best-effort policy) and writes a
// Record to a collision-free, timestamped filename under w.Dir. filePath is the mutating tool
// call's own target file (spec.md §4.2's args.file_path) and is recorded verbatim as
// Record.FilePath; it is unrelated to the on-disk path the checkpoint JSON itself is written to,
// which Write returns separately.
func (w *Writer) Write(entries []history.Entry, clientHistory json.RawMessage, filePath, toolName, callID string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint: creating dir: %w", err)
	}

	now := time.Now
	if w.now != nil {
		now = w.now
	}
	commit := w.bestEffortCommitHash()

	baseName := ""
	if filePath != "" {
		baseName = filepath.Base(filePath)
	}
	fileName := fmt.Sprintf("%s_%s-%s.json", now().UTC().Format("2006-01-02T15-04-05.000"), sanitize(baseName), sanitize(toolName))
	fullPath := filepath.Join(w.Dir, fileName)

	rec := Record{
		History:       entries,
		ClientHistory: clientHistory,
		ToolCall:      ToolCallRef{CallID: callID, Name: toolName},
		CommitHash:    commit,
		FilePath:      filePath,
	}

	buf, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("checkpoint: encoding record: %w", err)
	}
	if err := os.WriteFile(fullPath, buf, 0o644); err != nil {
		return "", fmt.Errorf("checkpoint: writing record: %w", err)
	}
	return fullPath, nil
}

func (w *Writer) bestEffortCommitHash() string {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return ""
	}
	commit, err := gitOutput(w.Dir, gitPath, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return commit
}

func gitOutput(dir, gitPath string, args ...string) (string, error) {
	cmd := exec.Command(gitPath, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "checkpoint"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
