package history

import (
	"sync"

	"github.com/relayctl/atc/internal/clockid"
)

// Store is the append-only History Store (spec.md §2). It owns the ordered entry log and the
// single Pending slot. Only the ATC mutates a Store (§5 "Shared-resource policy"); Store itself
// just provides the safe primitive operations, guarded by one mutex per the teacher's
// Agent.mu-owns-everything shape (internal/agent/agent.go).
type Store struct {
	ids *clockid.Source

	mu      sync.Mutex
	entries []Entry
	pending Pending
}

// NewStore constructs an empty Store backed by ids for entry-id/timestamp assignment.
func NewStore(ids *clockid.Source) *Store {
	return &Store{ids: ids}
}

// Entries returns a snapshot of the finalized entry log, in append order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Pending returns the current Pending slot's value.
func (s *Store) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPending replaces the Pending slot wholesale. Used by the dispatcher to accumulate content
// deltas / tool batches into the in-progress entry.
func (s *Store) SetPending(p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
}

// ClearPending discards the Pending slot without finalizing it (used on cancellation/no-op
// teardown paths where the in-progress entry should simply vanish).
func (s *Store) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = Pending{}
}

// HasPending reports whether a Pending entry currently exists.
func (s *Store) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending.IsZero()
}

// Append finalizes e (assigning it an id and timestamp) and appends it to the entry log. It
// does not touch Pending; callers that are finalizing the Pending slot should call
// FinalizePendingAssistant or FinalizePendingToolGroup instead.
func (s *Store) Append(e Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(e)
}

func (s *Store) appendLocked(e Entry) Entry {
	e.ID = s.ids.NextEntryID()
	e.Timestamp = s.ids.Now()
	s.entries = append(s.entries, e)
	return e
}

// FinalizePendingAssistant finalizes the current Pending assistant text as a history entry and
// clears Pending. The entry's Kind is KindAssistant for the first chunk of a turn and
// KindAssistantContent for subsequent chunks (see Pending.IsContinuationChunk), per spec.md
// §4.1 ("two variants of assistant entry exist: the leading assistant and continuation
// assistant_content"). Returns the zero Entry and false if there is no pending assistant text.
func (s *Store) FinalizePendingAssistant() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending.Kind != PendingAssistant || s.pending.Text == "" {
		s.pending = Pending{}
		return Entry{}, false
	}

	kind := KindAssistant
	if s.pending.IsContinuationChunk {
		kind = KindAssistantContent
	}

	e := s.appendLocked(Entry{Kind: kind, Text: s.pending.Text})
	s.pending = Pending{}
	return e, true
}

// FinalizePendingToolGroup finalizes the current Pending tool batch as a KindToolGroup history
// entry and clears Pending. Returns the zero Entry and false if there is no pending tool group.
func (s *Store) FinalizePendingToolGroup() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending.Kind != PendingToolGroup || len(s.pending.Tools) == 0 {
		s.pending = Pending{}
		return Entry{}, false
	}

	items := make([]ToolGroupItem, len(s.pending.Tools))
	for i, tc := range s.pending.Tools {
		items[i] = ToolGroupItem{CallID: tc.CallID, Name: tc.Name, Status: tc.Status}
	}

	e := s.appendLocked(Entry{Kind: KindToolGroup, ToolGroup: items})
	s.pending = Pending{}
	return e, true
}
