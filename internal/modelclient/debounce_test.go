package modelclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relayctl/atc/internal/streamevent"
)

func TestDebounceEvents_CoalescesRapidContentDeltas(t *testing.T) {
	in := make(chan streamevent.Event, 16)
	out := make(chan streamevent.Event, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		debounceEvents(ctx, in, out)
		close(done)
	}()

	in <- streamevent.Event{Type: streamevent.TypeContent, ContentDelta: "a"}
	in <- streamevent.Event{Type: streamevent.TypeContent, ContentDelta: "b"}
	in <- streamevent.Event{Type: streamevent.TypeContent, ContentDelta: "c"}
	close(in)
	<-done

	close(out)
	var total string
	var n int
	for ev := range out {
		total += ev.ContentDelta
		n++
	}
	assert.Equal(t, "abc", total)
	assert.GreaterOrEqual(t, n, 1)
}

func TestDebounceEvents_NonDeltaEventsPassThroughImmediately(t *testing.T) {
	in := make(chan streamevent.Event, 4)
	out := make(chan streamevent.Event, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		debounceEvents(ctx, in, out)
		close(done)
	}()

	in <- streamevent.Event{Type: streamevent.TypeFinished}
	close(in)
	<-done
	close(out)

	var got []streamevent.Event
	for ev := range out {
		got = append(got, ev)
	}
	assert.Len(t, got, 1)
	assert.Equal(t, streamevent.TypeFinished, got[0].Type)
}

func TestDebounceEvents_FirstDeltaSendsImmediately(t *testing.T) {
	in := make(chan streamevent.Event, 4)
	out := make(chan streamevent.Event, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go debounceEvents(ctx, in, out)

	in <- streamevent.Event{Type: streamevent.TypeContent, ContentDelta: "first"}

	select {
	case ev := <-out:
		assert.Equal(t, "first", ev.ContentDelta)
	case <-time.After(time.Second):
		t.Fatal("expected immediate forward of the first delta")
	}
}
