package recovery

// LoopSnapshotInfo renders the info text that carries the context snapshot when a loop is
// detected (spec.md §4.3: "emit an info with a context snapshot").
func LoopSnapshotInfo(snapshot string) string {
	return withSnapshot("A potential tool loop was detected.", snapshot)
}

// AutomaticRecoveryInfo renders the info text emitted once a loop recovery is actually queued
// (spec.md scenario 3: "Attempting automatic recovery…").
func AutomaticRecoveryInfo() string {
	return "Attempting automatic recovery…"
}

// LoopExhaustedError renders the error text emitted when the loop-recovery budget is already
// spent (spec.md §4.3: "If the budget is exhausted, emit error and stop.").
func LoopExhaustedError() string {
	return "A potential tool loop was detected and automatic recovery has already been attempted for this turn."
}

// LoopPlan builds the continuation prompt for a detected tool loop (spec.md §4.3/scenario 3:
// prompt body must contain "potential tool loop was detected"; skip_loop_reset=true so the
// continuation doesn't immediately re-trigger the reset it was itself caused by).
func LoopPlan(snapshot string) Plan {
	body := "A potential tool loop was detected in the previous turn. Break the repetition: " +
		"reconsider the approach instead of repeating the same tool call, and make progress " +
		"using different arguments or a different tool."
	return Plan{
		Category:      CategoryLoop,
		PromptSuffix:  "loop",
		Prompt:        withSnapshot(body, snapshot),
		SkipLoopReset: true,
	}
}
