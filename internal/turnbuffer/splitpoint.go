// Package turnbuffer implements the split-buffer policy from spec.md §4.1: the per-turn
// assistant text buffer is periodically split at a "safe" markdown boundary so large messages
// don't pay full re-render cost on every delta. This resolves the Open Question in spec.md §9
// ("what counts as safe inside fenced code blocks, inside tables") by parsing the buffer as
// markdown and only splitting at a fully-closed top-level block boundary.
package turnbuffer

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SplitThresholdBytes is the buffer size (in bytes) above which SafeSplitPoint is consulted.
// Below this, content is left whole even if a safe point exists, to avoid splitting chatty
// short responses into noisy fragments.
const SplitThresholdBytes = 4000

// SafeSplitPoint returns the byte offset of the last safe split point in buf, and true if one
// exists. A split point is safe iff it falls exactly on the boundary between two top-level
// blocks: everything before it is a fully finished paragraph, heading, fenced code block, etc,
// and nothing is split mid-block. The very last top-level block is never itself used as the
// boundary, since streaming may still be appending to it — only the boundary BEFORE it is
// known-finished. If buf contains an unterminated fence (so the markdown is not balanced), no
// split point exists yet, matching goldmark's own behavior of running an open fence to EOF.
func SafeSplitPoint(buf string) (int, bool) {
	if len(buf) < SplitThresholdBytes {
		return 0, false
	}

	src := []byte(buf)
	if !fencesBalanced(src) {
		return 0, false
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))
	if root == nil {
		return 0, false
	}

	// The last top-level child may still be growing; only the start of it (the end of its
	// predecessor) is a safe, known-finished boundary. With fewer than two top-level blocks
	// there is no finished predecessor yet.
	var last, prev ast.Node
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		prev = last
		last = n
	}
	if prev == nil {
		return 0, false
	}

	return nodeStart(src, last), true
}

// nodeStart returns the byte offset in src where n's own markup begins, recursing into n's
// first block child when n itself carries no line segments (e.g. a List wrapping ListItems).
// Fenced code blocks are special-cased: their Lines() covers only the content lines, not the
// opening fence delimiter, so the true start is backed up one line.
func nodeStart(src []byte, n ast.Node) int {
	if fcb, ok := n.(*ast.FencedCodeBlock); ok {
		if lines := fcb.Lines(); lines != nil && lines.Len() > 0 {
			return precedingLineStart(src, lines.At(0).Start)
		}
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start
	}
	if first := n.FirstChild(); first != nil {
		return nodeStart(src, first)
	}
	return len(src)
}

// precedingLineStart returns the start offset of the source line immediately before the line
// starting at pos, used to recover a fenced code block's opening delimiter line.
func precedingLineStart(src []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	start := bytes.LastIndexByte(src[:pos-1], '\n')
	return start + 1
}

// fencesBalanced reports whether every ``` or ~~~ fence opened in src is closed, mirroring the
// teacher's validateTripleBacktickFences check (internal/specmd/markdown.go) generalized to
// both fence characters.
func fencesBalanced(src []byte) bool {
	type fence struct {
		ticks int
		char  byte
	}
	var stack []fence

	for _, line := range bytes.Split(src, []byte("\n")) {
		trim := bytes.TrimLeft(line, " \t")
		if len(trim) < 3 || (trim[0] != '`' && trim[0] != '~') {
			continue
		}
		char := trim[0]
		n := countLeading(trim, char)
		if n < 3 {
			continue
		}
		if len(stack) == 0 {
			stack = append(stack, fence{ticks: n, char: char})
			continue
		}
		top := stack[len(stack)-1]
		if top.char == char && n >= top.ticks {
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, fence{ticks: n, char: char})
	}

	return len(stack) == 0
}

func countLeading(b []byte, c byte) int {
	n := 0
	for n < len(b) && b[n] == c {
		n++
	}
	return n
}
