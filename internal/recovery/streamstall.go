package recovery

import "fmt"

// StreamStallInfo renders the per-Retry-event info text (spec.md §4.3: "Model response
// stalled. Retrying attempt X/LIMIT...").
func StreamStallInfo(attempt, limit int) string {
	return fmt.Sprintf("Model response stalled. Retrying attempt %d/%d...", attempt, limit)
}

// SelfRecoveryInfo renders the info text emitted once STREAM_RETRY_LIMIT is reached and a
// recovery is queued (spec.md scenario 2: "Attempting self-recovery…").
func SelfRecoveryInfo() string {
	return "Attempting self-recovery…"
}

// StreamStallPlan builds the continuation prompt queued when retry_attempts reaches
// STREAM_RETRY_LIMIT and the auto-recovery budget still has room (spec.md §4.3's "generic
// 'streaming stalled — resume from last successful step' prompt").
func StreamStallPlan(snapshot string) Plan {
	body := "Streaming stalled — resume from the last successful step."
	return Plan{
		Category:     CategoryAuto,
		PromptSuffix: "stream-stall",
		Prompt:       withSnapshot(body, snapshot),
	}
}

// StreamStallExhaustedError renders the error text emitted when the auto-recovery budget is
// already spent and a further Retry round hits the limit again (spec.md §4.3: "If already
// used, emit an error and exit with status Error.").
func StreamStallExhaustedError() string {
	return "Streaming stalled and automatic recovery has already been attempted for this turn."
}
