package turnbuffer

// Buffer accumulates assistant content deltas for the current turn and exposes the
// split-buffer policy as a simple drain operation, used by the ATC's Streaming state
// (spec.md §4.1).
type Buffer struct {
	text string
}

// Append adds delta to the buffer.
func (b *Buffer) Append(delta string) {
	b.text += delta
}

// String returns the buffer's full accumulated text.
func (b *Buffer) String() string {
	return b.text
}

// Reset clears the buffer (used by the Stream-stall recovery handler, spec.md §4.3).
func (b *Buffer) Reset() {
	b.text = ""
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.text)
}

// TrySplit drains a safe leading chunk from the buffer if SafeSplitPoint finds one, returning
// the drained chunk and true. The buffer retains only the remainder. Returns "", false if no
// safe split point currently exists (spec.md §4.1: "if none is found, the buffer is not split
// yet").
func (b *Buffer) TrySplit() (string, bool) {
	end, ok := SafeSplitPoint(b.text)
	if !ok {
		return "", false
	}
	chunk := b.text[:end]
	b.text = b.text[end:]
	return chunk, true
}
