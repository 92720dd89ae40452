package history

import "github.com/relayctl/atc/internal/toolcall"

// PendingKind tags what a Pending slot currently represents. Generalizes the REDESIGN note in
// spec.md §9 ("ref-typed 'latest pending' handles mutated from multiple callbacks → explicit
// sum type for the pending slot") into a small closed Go enum.
type PendingKind int

const (
	// PendingNone means no pending entry currently exists.
	PendingNone PendingKind = iota
	// PendingAssistant means an assistant message is currently streaming.
	PendingAssistant
	// PendingToolGroup means a tool group is currently being scheduled/executed.
	PendingToolGroup
)

// Pending is the incrementally built history entry for the currently streaming response or
// in-progress tool group (spec.md §3 "Pending entry"). At most one exists at any moment and it
// is never itself stored in the History array (invariant 1).
type Pending struct {
	Kind PendingKind

	// Text accumulates assistant content while Kind == PendingAssistant. It may span more
	// than one finalized entry: the leading chunk finalizes as KindAssistant, and any
	// further chunks (after a split, see internal/turnbuffer) finalize as
	// KindAssistantContent continuation entries.
	Text string

	// IsContinuationChunk is true once at least one KindAssistant entry has already been
	// finalized for the in-progress turn, so the next finalize produces
	// KindAssistantContent instead of KindAssistant.
	IsContinuationChunk bool

	// Tools holds the tool calls accumulated for the current batch while Kind ==
	// PendingToolGroup.
	Tools []toolcall.Tracked
}

// IsZero reports whether p represents "no pending entry" (PendingNone).
func (p Pending) IsZero() bool {
	return p.Kind == PendingNone
}
