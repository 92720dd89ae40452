package modelclient

import (
	"context"
	"time"

	"github.com/relayctl/atc/internal/streamevent"
)

// debounceDeltaInterval bounds how often TypeContent/TypeThought deltas are forwarded downstream,
// mirroring internal/llmstream's debounceEvents. Kept modest so the turn buffer still feels
// responsive while reducing re-render chatter on long streamed responses.
const debounceDeltaInterval = 500 * time.Millisecond

// debounceEvents reads events from in and forwards them to out, throttling successive
// TypeContent/TypeThought deltas to at most one forwarded event per debounceDeltaInterval. All
// other event types pass straight through. Unlike internal/llmstream (which keys by per-content
// provider ID to support multiple concurrent content streams), a turn has exactly one content
// buffer and one thought stream (internal/turnbuffer.Buffer), so the key is the event Type alone.
//
// On input close, any pending debounced delta is flushed before this function returns.
func debounceEvents(ctx context.Context, in <-chan streamevent.Event, out chan<- streamevent.Event) {
	type state struct {
		lastSent   time.Time
		latest     string
		sentBytes  int
		hasPending bool
		dueAt      time.Time
	}

	states := make(map[streamevent.Type]*state)

	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer, timerC = nil, nil
	}

	armTimer := func() {
		var earliest time.Time
		have := false
		for _, s := range states {
			if !s.hasPending {
				continue
			}
			if !have || s.dueAt.Before(earliest) {
				earliest, have = s.dueAt, true
			}
		}
		if !have {
			stopTimer()
			return
		}
		d := time.Until(earliest)
		if d < 0 {
			d = 0
		}
		if timer == nil {
			timer = time.NewTimer(d)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)
	}

	debouncable := func(t streamevent.Type) bool {
		return t == streamevent.TypeContent || t == streamevent.TypeThought
	}

	deltaText := func(ev streamevent.Event) string {
		if ev.Type == streamevent.TypeThought {
			return ev.ThoughtSummary
		}
		return ev.ContentDelta
	}

	withDelta := func(ev streamevent.Event, delta string) streamevent.Event {
		if ev.Type == streamevent.TypeThought {
			ev.ThoughtSummary = delta
		} else {
			ev.ContentDelta = delta
		}
		return ev
	}

	sendAggregated := func(now time.Time, t streamevent.Type, s *state, template streamevent.Event) bool {
		start := s.sentBytes
		if start < 0 || start > len(s.latest) {
			start = 0
		}
		delta := s.latest[start:]
		if !trySend(ctx, out, withDelta(template, delta)) {
			return false
		}
		s.lastSent = now
		s.sentBytes = len(s.latest)
		s.hasPending = false
		s.dueAt = time.Time{}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case ev, ok := <-in:
			if !ok {
				now := time.Now()
				for t, s := range states {
					if s.hasPending {
						_ = sendAggregated(now, t, s, streamevent.Event{Type: t})
					}
				}
				stopTimer()
				return
			}

			if !debouncable(ev.Type) {
				if !trySend(ctx, out, ev) {
					stopTimer()
					return
				}
				continue
			}

			now := time.Now()
			s := states[ev.Type]
			if s == nil {
				s = &state{}
				states[ev.Type] = s
			}
			s.latest += deltaText(ev)

			if s.lastSent.IsZero() || now.Sub(s.lastSent) >= debounceDeltaInterval {
				if !sendAggregated(now, ev.Type, s, ev) {
					stopTimer()
					return
				}
				continue
			}

			s.hasPending = true
			s.dueAt = s.lastSent.Add(debounceDeltaInterval)
			armTimer()

		case <-timerC:
			now := time.Now()
			for t, s := range states {
				if s.hasPending && !now.Before(s.dueAt) {
					if !sendAggregated(now, t, s, streamevent.Event{Type: t}) {
						stopTimer()
						return
					}
				}
			}
			armTimer()
		}
	}
}
