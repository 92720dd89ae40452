package modelclient

import (
	"context"

	"github.com/relayctl/atc/internal/streamevent"
)

// Fake is a scripted Client for tests: each call to SendAsync pops the next script entry (a
// slice of events to emit in order) and replays it, ignoring the request payload. Mirrors the
// teacher's package-level fake-conversation seam (internal/agent's `var newConversation`) by
// being swapped in wherever a Client is accepted as an interface.
type Fake struct {
	Scripts     [][]streamevent.Event
	calls       int
	ResetErr    error
	ResetCalled int
}

func (f *Fake) SendAsync(ctx context.Context, req Request) <-chan streamevent.Event {
	out := make(chan streamevent.Event, 64)
	go func() {
		defer close(out)
		if f.calls >= len(f.Scripts) {
			return
		}
		script := f.Scripts[f.calls]
		f.calls++
		for _, ev := range script {
			if !trySend(ctx, out, ev) {
				return
			}
		}
	}()
	return out
}

func (f *Fake) ResetChat(ctx context.Context) error {
	f.ResetCalled++
	return f.ResetErr
}
