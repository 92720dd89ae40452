// Package recovery implements the pure recovery-prompt planning logic from spec.md §4.3: given
// the triggering stream event's data and a context snapshot (internal/turnsnapshot), it produces
// the info/error text shown to the user and the synthesized continuation prompt queued as a
// pending recovery. It owns no state and performs no I/O; the ATC owns the per-category attempt
// counters and decides whether a category's budget still permits a recovery before calling into
// this package.
package recovery

import (
	"fmt"
	"strings"

	"github.com/relayctl/atc/internal/streamevent"
)

// Category identifies one of the five independent recovery budgets (spec.md §4.3).
type Category string

const (
	CategoryAuto     Category = "auto"
	CategoryLoop     Category = "loop"
	CategoryLimit    Category = "limit"
	CategoryFinish   Category = "finish"
	CategoryProvider Category = "provider"
)

// Config holds the overridable recovery limits from spec.md §6's configuration table.
type Config struct {
	StreamRetryLimit            int
	AutoRecoveryMaxAttempts     int
	LoopRecoveryMaxAttempts     int
	ProviderRecoveryMaxAttempts int
	LimitRecoveryMaxAttempts    int
	FinishRecoveryMaxAttempts   int
}

// DefaultConfig returns the defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		StreamRetryLimit:            3,
		AutoRecoveryMaxAttempts:     1,
		LoopRecoveryMaxAttempts:     1,
		ProviderRecoveryMaxAttempts: 1,
		LimitRecoveryMaxAttempts:    1,
		FinishRecoveryMaxAttempts:   1,
	}
}

// Plan is a queued pending recovery: the continuation prompt text plus which per-category
// "skip reset" flags the continuation's resubmission should carry (spec.md §4.3/§6), so a
// recovery continuation doesn't immediately retrigger the reset it was itself caused by.
type Plan struct {
	Category      Category
	PromptSuffix  string // the {loop|provider|token-limit|turn-limit|turn-budget|finish|stream-stall} tag
	Prompt        string
	SkipLoopReset bool
	SkipProvider  bool
	SkipLimit     bool
	SkipFinish    bool
}

// PromptID builds a recovery prompt-id per spec.md §6: "${parent_prompt_id}-{suffix}-recovery-${attempt}".
func PromptID(parentPromptID, suffix string, attempt int) string {
	return fmt.Sprintf("%s-%s-recovery-%d", parentPromptID, suffix, attempt)
}

func withSnapshot(body, snapshot string) string {
	if snapshot == "" {
		return body
	}
	return body + "\n\n" + snapshot
}

// formatThousands renders n with comma thousands separators, e.g. 130000 -> "130,000". Used by
// the limit-recovery prompts/errors (spec.md scenario 4: "130,000 / 128,000").
func formatThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}
