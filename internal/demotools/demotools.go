// Package demotools provides a minimal toolsched.Tool registry for the cmd/atc-demo driver:
// read_file (non-mutating, no approval) and write_file (mutating, approval-gated). Grounded on
// internal/tools/coretools/read_file.go, adapted from its llmstream.Tool/authdomain.Authorizer
// shape onto toolsched.Tool's narrower Name/RequiresApproval/Mutating/Execute contract.
//
// Shell-command execution is an external collaborator per spec.md §1 ("out of scope"), so unlike
// the teacher's coretools package this one has no shell tool.
package demotools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/relayctl/atc/internal/toolsched"
)

const (
	maxReadFileBytes int64 = 250 * 1024
	maxReadFileLines int   = 10000
)

// Registry builds the demo's toolsched.Registry, rooted at sandboxDir. Every path argument is
// resolved relative to sandboxDir and rejected if it escapes it.
func Registry(sandboxDir string) toolsched.Registry {
	abs, err := filepath.Abs(sandboxDir)
	if err != nil {
		abs = sandboxDir
	}
	return toolsched.Registry{
		"read_file":  &readFileTool{sandboxAbsDir: abs},
		"write_file": &writeFileTool{sandboxAbsDir: abs},
	}
}

func resolveInSandbox(sandboxAbsDir, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(sandboxAbsDir, path))
	}
	rel, err := filepath.Rel(sandboxAbsDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the sandbox directory", path)
	}
	return abs, nil
}

type readFileTool struct{ sandboxAbsDir string }

func (t *readFileTool) Name() string          { return "read_file" }
func (t *readFileTool) RequiresApproval() bool { return false }
func (t *readFileTool) Mutating() bool         { return false }

func (t *readFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	abs, err := resolveInSandbox(t.sandboxAbsDir, path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", path)
	}
	if info.Size() > maxReadFileBytes {
		return "", fmt.Errorf("%q is %d bytes, exceeding the %d byte read limit", path, info.Size(), maxReadFileBytes)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	lineNumbers, _ := args["line_numbers"].(bool)
	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if lineNo > maxReadFileLines {
			fmt.Fprintf(&b, "... (truncated after %d lines)\n", maxReadFileLines)
			break
		}
		if lineNumbers {
			fmt.Fprintf(&b, "%6d\t%s\n", lineNo, scanner.Text())
		} else {
			fmt.Fprintf(&b, "%s\n", scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return b.String(), nil
}

type writeFileTool struct{ sandboxAbsDir string }

func (t *writeFileTool) Name() string          { return "write_file" }
func (t *writeFileTool) RequiresApproval() bool { return true }
func (t *writeFileTool) Mutating() bool         { return true }

func (t *writeFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	abs, err := resolveInSandbox(t.sandboxAbsDir, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent dirs for %q: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}
