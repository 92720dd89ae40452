package turnbuffer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeSplitPoint_BelowThresholdNeverSplits(t *testing.T) {
	_, ok := SafeSplitPoint("short text\n\nmore text")
	assert.False(t, ok)
}

func buildParagraphs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(strings.Repeat("word ", 50))
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestSafeSplitPoint_SplitsAtParagraphBoundary(t *testing.T) {
	buf := buildParagraphs(40)
	require := assert.New(t)
	require.GreaterOrEqual(len(buf), SplitThresholdBytes)

	end, ok := SafeSplitPoint(buf)
	require.True(ok)
	require.Greater(end, 0)
	require.LessOrEqual(end, len(buf))
}

func TestSafeSplitPoint_UnterminatedFenceNeverSplits(t *testing.T) {
	buf := buildParagraphs(30) + "```go\nfunc unterminated() {\n" + strings.Repeat("x = 1\n", 200)
	_, ok := SafeSplitPoint(buf)
	assert.False(t, ok)
}

func TestSafeSplitPoint_ClosedFenceCanSplit(t *testing.T) {
	buf := buildParagraphs(30) + "```go\nfunc closed() {}\n```\n\n"
	_, ok := SafeSplitPoint(buf)
	assert.True(t, ok)
}

func TestBuffer_AppendAndTrySplit(t *testing.T) {
	var b Buffer
	full := buildParagraphs(40)
	b.Append(full)

	chunk, ok := b.TrySplit()
	a := assert.New(t)
	a.True(ok)
	a.NotEmpty(chunk)
	a.Equal(full, chunk+b.String()) // no bytes lost across the split
}

func TestBuffer_ResetClearsText(t *testing.T) {
	var b Buffer
	b.Append("hello")
	b.Reset()
	assert.Equal(t, "", b.String())
}
