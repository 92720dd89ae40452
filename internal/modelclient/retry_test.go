package modelclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayctl/atc/internal/streamevent"
)

func TestRunWithRetry_SucceedsOnFirstAttempt(t *testing.T) {
	out := make(chan streamevent.Event, 8)
	calls := 0
	runWithRetry(context.Background(), Request{}, out, func(ctx context.Context, req Request, out chan<- streamevent.Event) error {
		calls++
		out <- streamevent.Event{Type: streamevent.TypeFinished}
		return nil
	})
	close(out)

	a := assert.New(t)
	a.Equal(1, calls)
	var events []streamevent.Event
	for ev := range out {
		events = append(events, ev)
	}
	a.Len(events, 1)
	a.Equal(streamevent.TypeFinished, events[0].Type)
}

func TestRunWithRetry_RetriesRetryableErrorsThenSucceeds(t *testing.T) {
	savedSleeps := retrySleepDurations
	retrySleepDurations = []time.Duration{time.Millisecond}
	defer func() { retrySleepDurations = savedSleeps }()

	out := make(chan streamevent.Event, 8)
	calls := 0
	runWithRetry(context.Background(), Request{}, out, func(ctx context.Context, req Request, out chan<- streamevent.Event) error {
		calls++
		if calls < 3 {
			return makeRetryable(errors.New("transient"))
		}
		out <- streamevent.Event{Type: streamevent.TypeFinished}
		return nil
	})
	close(out)

	a := assert.New(t)
	a.Equal(3, calls)

	sawRetry, sawFinished := 0, false
	for ev := range out {
		if ev.Type == streamevent.TypeRetry {
			sawRetry++
		}
		if ev.Type == streamevent.TypeFinished {
			sawFinished = true
		}
	}
	a.Equal(2, sawRetry)
	a.True(sawFinished)
}

func TestRunWithRetry_NonRetryableErrorStopsImmediately(t *testing.T) {
	out := make(chan streamevent.Event, 8)
	calls := 0
	runWithRetry(context.Background(), Request{}, out, func(ctx context.Context, req Request, out chan<- streamevent.Event) error {
		calls++
		return errors.New("permanent")
	})
	close(out)

	a := assert.New(t)
	a.Equal(1, calls)
	var events []streamevent.Event
	for ev := range out {
		events = append(events, ev)
	}
	a.Len(events, 1)
	a.Equal(streamevent.TypeError, events[0].Type)
}

func TestRunWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	savedSleeps := retrySleepDurations
	retrySleepDurations = []time.Duration{time.Millisecond}
	defer func() { retrySleepDurations = savedSleeps }()

	out := make(chan streamevent.Event, 8)
	calls := 0
	runWithRetry(context.Background(), Request{}, out, func(ctx context.Context, req Request, out chan<- streamevent.Event) error {
		calls++
		return makeRetryable(errors.New("always fails"))
	})
	close(out)

	assert.Equal(t, retryMaxAttempts, calls)

	errCount := 0
	for ev := range out {
		if ev.Type == streamevent.TypeError {
			errCount++
			var exhausted *ProviderRetryExhaustedError
			require.ErrorAs(t, ev.Error.Err, &exhausted)
			assert.Equal(t, retryMaxAttempts, exhausted.Attempts)
			assert.Len(t, exhausted.ErrorCodes, retryMaxAttempts)
		}
	}
	assert.Equal(t, 1, errCount)
}

func TestFake_SendAsync_ReplaysScriptsInOrder(t *testing.T) {
	f := &Fake{Scripts: [][]streamevent.Event{
		{{Type: streamevent.TypeContent, ContentDelta: "hi"}, {Type: streamevent.TypeFinished}},
		{{Type: streamevent.TypeFinished}},
	}}

	first := collect(f.SendAsync(context.Background(), Request{}))
	assert.Len(t, first, 2)

	second := collect(f.SendAsync(context.Background(), Request{}))
	assert.Len(t, second, 1)
}

func collect(ch <-chan streamevent.Event) []streamevent.Event {
	var out []streamevent.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}
