// Package history implements the append-only History Store from spec.md §2/§3: an ordered
// sequence of history entries plus at most one pending entry representing the partially
// assembled current assistant message or tool group.
package history

import (
	"time"

	"github.com/relayctl/atc/internal/toolcall"
)

// Kind tags a history Entry, mirroring llmstream.ContentPart's sealed-set-of-structs pattern
// generalized to spec.md §3's full entry kind list.
type Kind string

const (
	KindUser             Kind = "user"
	KindUserShell        Kind = "user_shell"
	KindAssistant        Kind = "assistant"
	KindAssistantContent Kind = "assistant_content"
	KindToolGroup        Kind = "tool_group"
	KindInfo             Kind = "info"
	KindError            Kind = "error"
	KindAbout            Kind = "about"
	KindHelp             Kind = "help"
	KindStats            Kind = "stats"
	KindCompression      Kind = "compression"
	KindSummary          Kind = "summary"
	KindQuit             Kind = "quit"
)

// ToolGroupItem describes one tool invocation within a KindToolGroup entry.
type ToolGroupItem struct {
	CallID string
	Name   string
	Status toolcall.Status
	Result string // human-readable summary of the outcome, empty if not yet terminal
}

// Entry is one history-entry. Every entry (except a not-yet-finalized pending entry) has a
// non-zero ID assigned in append order (spec.md §3 invariant: ids strictly increasing).
type Entry struct {
	ID        int64
	Timestamp time.Time
	Kind      Kind

	// Text holds the body for KindUser, KindUserShell, KindAssistant, KindAssistantContent,
	// KindInfo, KindError, KindAbout, KindHelp, KindStats, KindSummary.
	Text string

	// ToolGroup holds the tool invocations for a KindToolGroup entry.
	ToolGroup []ToolGroupItem

	// CompressionBefore/After hold token counts for a KindCompression entry.
	CompressionBefore int64
	CompressionAfter  int64
}
