package modelclient

import (
	"context"
	"regexp"
	"time"

	"github.com/relayctl/atc/internal/streamevent"
)

// errorCodePattern pulls a provider error code out of the "<message> (code=<code>)" shape
// internal/modelclient/openai_responses.go formats transport errors with, so runWithRetry can
// populate ProviderRetryExhaustedError.ErrorCodes without the two files sharing a custom error
// type for every failure branch.
var errorCodePattern = regexp.MustCompile(`\(code=([^)]*)\)`)

func extractErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if m := errorCodePattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		return m[1]
	}
	return ""
}

// retryMaxAttempts bounds the provider-transport retry loop, independent of and beneath the
// ATC's own stream-stall (auto) recovery category (spec.md §4.3): this loop retries a single
// sendOnce call that returned a retryable error (connection refused, 5xx, a stream that ended
// without a terminal event, etc), even if that attempt already forwarded some events, while
// auto-recovery reacts to a stream that started but then stalled mid-response.
const retryMaxAttempts = 3

// retrySleepDurations' i'th index is the sleep duration for the i'th retry. Any retry after that
// uses the last value. Mirrors internal/llmstream's backoff table: an eager first retry, then
// exponential backoff long enough to let transient failures clear but short enough that the user
// doesn't think the turn hung.
var retrySleepDurations = []time.Duration{
	10 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	10 * time.Second,
}

// sendOnce performs exactly one attempt at streaming a turn, forwarding events to out as they
// arrive. A nil return means the stream reached a terminal event on its own (Finished, Error,
// etc); a non-nil, retryable error means the attempt failed before any terminal event and may be
// retried.
type sendOnce func(ctx context.Context, req Request, out chan<- streamevent.Event) error

// runWithRetry drives sendOnce through retryMaxAttempts attempts, emitting a TypeRetry event
// between attempts and sleeping per retrySleepDurations, exactly as
// streamingConversation.SendAsync does. When every attempt was retryable and the loop still
// runs out, the final TypeError wraps a *ProviderRetryExhaustedError (spec.md §4.3/§7's
// real replacement for the duck-typed "attempts + error_codes" shape) so the ATC's
// provider-recovery handler can match it with errors.As; a single non-retryable failure is
// reported as a plain error instead, since it was never actually "retried."
func runWithRetry(ctx context.Context, req Request, out chan<- streamevent.Event, send sendOnce) {
	var err error
	var codes []string
	attempt := 1

	for ; attempt <= retryMaxAttempts; attempt++ {
		err = send(ctx, req, out)
		if err == nil {
			return
		}
		codes = append(codes, extractErrorCode(err))

		if !isRetryable(err) || attempt >= retryMaxAttempts {
			break
		}

		sleep := retrySleepDurations[len(retrySleepDurations)-1]
		if attempt-1 < len(retrySleepDurations) {
			sleep = retrySleepDurations[attempt-1]
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		if !trySend(ctx, out, streamevent.Event{Type: streamevent.TypeRetry, RetryErr: err}) {
			return
		}
	}

	if err == nil {
		return
	}

	if isRetryable(err) {
		exhausted := &ProviderRetryExhaustedError{Attempts: attempt, ErrorCodes: codes, LastErr: err}
		trySend(ctx, out, streamevent.Event{Type: streamevent.TypeError, Error: &streamevent.ErrorPayload{Err: exhausted, Message: exhausted.Error()}})
		return
	}

	trySend(ctx, out, streamevent.Event{Type: streamevent.TypeError, Error: &streamevent.ErrorPayload{Err: err, Message: err.Error()}})
}

// trySend sends ev on out, but fast-fails if ctx is done. Reports whether the event was sent.
func trySend(ctx context.Context, out chan<- streamevent.Event, ev streamevent.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
