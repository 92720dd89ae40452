// Package clockid supplies monotonic timestamps and fresh prompt/call identifiers. It is the
// lowest leaf in the dependency order from spec.md §2: Clock/IDs ← History Store ← Recovery
// Planner ← ATC.
package clockid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Clock supplies the current time. A real Clock wraps time.Now; tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Source generates history-entry ids, prompt ids, and call ids.
//
// History-entry ids are a process-local monotonic counter (spec.md §3 invariant: "History ids
// are strictly increasing by append order"). Prompt ids are the session id plus a per-Source
// counter; call ids are randomly generated and unique within a process lifetime (spec.md §3:
// "call_id is unique within a process lifetime").
type Source struct {
	clock     Clock
	sessionID string
	promptSeq atomic.Int64
	entrySeq  atomic.Int64
}

// NewSource constructs a Source for a single session. sessionID is typically generated once
// per process via NewSessionID.
func NewSource(clock Clock, sessionID string) *Source {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Source{clock: clock, sessionID: sessionID}
}

// Now returns the current time from the underlying clock.
func (s *Source) Now() time.Time {
	return s.clock.Now()
}

// NextEntryID returns the next monotonically increasing history-entry id.
func (s *Source) NextEntryID() int64 {
	return s.entrySeq.Add(1)
}

// NextPromptID returns the next user-turn prompt id, in the §6 format
// "${session_id}########${prompt_count}".
func (s *Source) NextPromptID() string {
	n := s.promptSeq.Add(1)
	return fmt.Sprintf("%s########%d", s.sessionID, n)
}

// RecoveryPromptID derives a recovery-continuation prompt id from parentPromptID, per §6's
// format "${parent_prompt_id}-{category}-recovery-${attempt}".
func RecoveryPromptID(parentPromptID string, category string, attempt int) string {
	return fmt.Sprintf("%s-%s-recovery-%d", parentPromptID, category, attempt)
}

// NewCallID returns a fresh, process-unique tool-call id.
func NewCallID() (string, error) {
	return randomHex(8)
}

// NewSessionID returns a fresh, globally unique session id.
func NewSessionID() (string, error) {
	return randomHex(16)
}

func randomHex(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("clockid: generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
