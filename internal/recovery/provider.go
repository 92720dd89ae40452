package recovery

import (
	"fmt"
	"strings"
)

// ProviderFailureInfo renders the info text describing a retry-exhausted provider error
// (spec.md §4.3: "emit an info describing attempts + error codes + last error message + context
// snapshot").
func ProviderFailureInfo(attempts int, errorCodes []string, lastErr error, snapshot string) string {
	codes := "none reported"
	if len(errorCodes) > 0 {
		codes = strings.Join(errorCodes, ", ")
	}
	last := "unknown error"
	if lastErr != nil {
		last = lastErr.Error()
	}
	body := fmt.Sprintf("The model provider failed after %d attempts (error codes: %s). Last error: %s", attempts, codes, last)
	return withSnapshot(body, snapshot)
}

// ProviderResetFailedError renders the error text emitted when reset_chat itself fails during
// provider-failure recovery (spec.md §7: "Failures during recovery... downgrade to error
// emission and abort further recovery").
func ProviderResetFailedError(err error) string {
	return fmt.Sprintf("Could not reset the model client's chat state after a provider failure: %s", err)
}

// ProviderExhaustedError renders the error text emitted when the provider-recovery budget is
// already spent.
func ProviderExhaustedError() string {
	return "The model provider failed and automatic recovery has already been attempted for this turn."
}

// ProviderPlan builds the continuation prompt for a retry-exhausted provider error (spec.md
// §4.3: "queue a pending recovery with a provider-failure prompt and
// skip_{loop,provider}_reset=true").
func ProviderPlan(attempts int, errorCodes []string, snapshot string) Plan {
	codes := "none reported"
	if len(errorCodes) > 0 {
		codes = strings.Join(errorCodes, ", ")
	}
	body := fmt.Sprintf("The model provider failed after %d attempts (error codes: %s). Retry the last step.", attempts, codes)
	return Plan{
		Category:      CategoryProvider,
		PromptSuffix:  "provider",
		Prompt:        withSnapshot(body, snapshot),
		SkipLoopReset: true,
		SkipProvider:  true,
	}
}
