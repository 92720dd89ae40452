package tui

import (
	"context"

	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/streamevent"
)

// offlineFakeClient returns a Client that always replies with a fixed explanation instead of
// reaching a real provider, so the demo is runnable without credentials configured.
func offlineFakeClient() modelclient.Client {
	explain := []streamevent.Event{
		{
			Type: streamevent.TypeContent,
			ContentDelta: "No model credentials are configured (set ATC_API_KEY), so this is a " +
				"canned reply instead of a real model turn.",
		},
		{Type: streamevent.TypeFinished, FinishReason: streamevent.FinishReasonStop},
	}
	return &repeatingFake{reply: explain}
}

// repeatingFake replays the same script for every call, unlike modelclient.Fake which is
// scripted per-call and exhausts after len(Scripts) turns - appropriate here since the demo's
// offline mode has nothing turn-specific to vary.
type repeatingFake struct {
	reply []streamevent.Event
}

func (r *repeatingFake) SendAsync(ctx context.Context, req modelclient.Request) <-chan streamevent.Event {
	out := make(chan streamevent.Event, len(r.reply))
	go func() {
		defer close(out)
		for _, ev := range r.reply {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *repeatingFake) ResetChat(ctx context.Context) error { return nil }
