package recovery

import "github.com/relayctl/atc/internal/streamevent"

var finishGuidance = map[streamevent.FinishReason]string{
	streamevent.FinishReasonMaxTokens:         "Resume from the last complete point. Prefer shorter outputs and split long replies across turns.",
	streamevent.FinishReasonMalformedFuncCall: "Audit the last tool call's arguments against its schema, correct them, and retry.",
	streamevent.FinishReasonSafety:            "Reframe the request and offer a compliant alternative, avoiding the terms that were blocked.",
	streamevent.FinishReasonProhibitedContent: "Reframe the request and offer a compliant alternative, avoiding the terms that were blocked.",
	streamevent.FinishReasonBlocklist:         "Reframe the request and offer a compliant alternative, avoiding the terms that were blocked.",
	streamevent.FinishReasonImageSafety:       "Reframe the request and offer a compliant alternative, avoiding the terms that were blocked.",
	streamevent.FinishReasonRecitation:        "Summarize the material in original wording and keep any excerpts short.",
	streamevent.FinishReasonOther:             "Clarify what blocked completion and adjust the strategy before retrying.",
}

// FinishGuidance returns the reason-specific guidance text from spec.md §4.3's finish-recovery
// table, or "" if reason isn't a recognized finish-recovery trigger.
func FinishGuidance(reason streamevent.FinishReason) string {
	return finishGuidance[reason]
}

// FinishInfo renders the human-visible info summarizing a finish reason that triggered recovery
// consideration (spec.md §4.3: "Always emit a human-visible info that summarizes the reason.").
func FinishInfo(reason streamevent.FinishReason) string {
	return "The response finished early (" + string(reason) + ")."
}

// FinishExhaustedError renders the error text emitted when the finish-recovery budget is
// already spent.
func FinishExhaustedError(reason streamevent.FinishReason) string {
	return "The response finished early (" + string(reason) + ") and automatic recovery has already been attempted for this turn."
}

// FinishPlan builds the continuation prompt for a recovery-triggering Finished(reason) event.
// skip_finish_reset is set so the continuation doesn't immediately re-trigger finish recovery
// on its own terminal event.
func FinishPlan(reason streamevent.FinishReason, snapshot string) Plan {
	body := FinishInfo(reason) + " " + FinishGuidance(reason)
	return Plan{
		Category:     CategoryFinish,
		PromptSuffix: "finish",
		Prompt:       withSnapshot(body, snapshot),
		SkipFinish:   true,
	}
}
