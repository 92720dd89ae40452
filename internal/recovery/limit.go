package recovery

import "fmt"

// SessionTokenLimitError renders the error text for a SessionTokenLimitExceeded event,
// enumerating the three remediation options (spec.md scenario 4: "error entry enumerating the
// three solutions").
func SessionTokenLimitError(current, limit int64) string {
	return fmt.Sprintf(
		"Session token limit exceeded (%s / %s tokens). Consider: 1) starting a new session, "+
			"2) compressing the conversation history, or 3) trimming older context before continuing.",
		formatThousands(current), formatThousands(limit),
	)
}

// SessionTokenLimitPlan builds the continuation prompt for a SessionTokenLimitExceeded event
// (spec.md scenario 4: prompt must mention "130,000 / 128,000"-style formatting).
// trimSuggestion is tokencount.EstimateTrimSuggestion's output; empty if no suggestion applies.
func SessionTokenLimitPlan(current, limit int64, trimSuggestion, snapshot string) Plan {
	body := fmt.Sprintf("The session token limit was exceeded (%s / %s tokens).", formatThousands(current), formatThousands(limit))
	if trimSuggestion != "" {
		body += " Trim the context to " + trimSuggestion + " before resuming."
	}
	return Plan{
		Category:      CategoryLimit,
		PromptSuffix:  "token-limit",
		Prompt:        withSnapshot(body, snapshot),
		SkipLoopReset: true,
		SkipProvider:  true,
		SkipLimit:     true,
		SkipFinish:    true,
	}
}

// MaxSessionTurnsError renders the error text for a MaxSessionTurns event.
func MaxSessionTurnsError(limit int) string {
	return fmt.Sprintf("The maximum number of turns for this session (%d) has been reached.", limit)
}

// MaxSessionTurnsPlan builds the continuation prompt for a MaxSessionTurns event.
func MaxSessionTurnsPlan(snapshot string) Plan {
	body := "The session turn limit was reached. Summarize progress and, if more work remains, " +
		"suggest starting a new session to continue."
	return Plan{
		Category:      CategoryLimit,
		PromptSuffix:  "turn-limit",
		Prompt:        withSnapshot(body, snapshot),
		SkipLoopReset: true,
		SkipProvider:  true,
		SkipLimit:     true,
		SkipFinish:    true,
	}
}

// TurnBudgetError renders the error text for a TurnBudgetExceeded event. limit may be nil if
// the model client did not report one.
func TurnBudgetError(limit *int64) string {
	if limit == nil {
		return "This turn exceeded its budget."
	}
	return fmt.Sprintf("This turn exceeded its budget of %s.", formatThousands(*limit))
}

// TurnBudgetPlan builds the continuation prompt for a TurnBudgetExceeded event.
func TurnBudgetPlan(limit *int64, snapshot string) Plan {
	body := "The previous turn exceeded its budget before finishing."
	if limit != nil {
		body = fmt.Sprintf("The previous turn exceeded its budget of %s before finishing.", formatThousands(*limit))
	}
	body += " Resume with a more focused, shorter plan."
	return Plan{
		Category:      CategoryLimit,
		PromptSuffix:  "turn-budget",
		Prompt:        withSnapshot(body, snapshot),
		SkipLoopReset: true,
		SkipProvider:  true,
		SkipLimit:     true,
		SkipFinish:    true,
	}
}

// LimitExhaustedError renders the error text emitted when the shared limit-recovery budget is
// already spent (spec.md §4.3: "If exhausted, emit error and stop.").
func LimitExhaustedError() string {
	return "A session limit was reached and automatic recovery has already been attempted for this turn."
}
