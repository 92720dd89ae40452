// Package modelclient implements the Model Client external collaborator from spec.md §6: given a
// prompt payload and a cancellation token, it returns an asynchronous sequence of typed stream
// events (internal/streamevent). Grounded on internal/llmstream's StreamingConversation, whose
// SendAsync retry loop, debounce stage, and OpenAI Responses translation this package adapts.
package modelclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/relayctl/atc/internal/streamevent"
)

// ToolSpec describes a tool the model may call, passed once per turn.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolResult is a completed tool call's result, fed back to the model on the next turn.
type ToolResult struct {
	CallID string
	Name   string
	Text   string
	IsErr  bool
}

// Request carries one turn's payload to the Client.
type Request struct {
	// Text is the user-role payload for a fresh (non-continuation) turn.
	Text string
	// ToolResults are non-empty exactly when this turn is feeding prior tool outputs back in.
	ToolResults []ToolResult
	Tools       []ToolSpec
}

// Client is the Model Client boundary (spec.md §6). SendAsync returns immediately; the channel
// delivers events until it closes. ResetChat performs a best-effort reset of client-side
// conversation state, used by the provider-failure recovery handler (spec.md §4.3).
type Client interface {
	SendAsync(ctx context.Context, req Request) <-chan streamevent.Event
	ResetChat(ctx context.Context) error
}

// ProviderRetryExhaustedError is the concrete replacement for the duck-typed "attempts +
// error_codes" shape spec.md §7/§9 describes: the REDESIGN FLAG calls for a real type instead of
// sniffing fields, so the provider-recovery handler can use errors.As instead of reflection.
type ProviderRetryExhaustedError struct {
	Attempts   int
	ErrorCodes []string
	LastErr    error
}

func (e *ProviderRetryExhaustedError) Error() string {
	return fmt.Sprintf("provider retries exhausted after %d attempt(s) (codes: %v): %v", e.Attempts, e.ErrorCodes, e.LastErr)
}

func (e *ProviderRetryExhaustedError) Unwrap() error { return e.LastErr }

// UnauthorizedError signals a credentials failure the ATC must never auto-recover from
// (spec.md §4.3 "Auth failure": invoke on_auth_error and stop the turn, full stop).
type UnauthorizedError struct {
	Cause error
}

func (e *UnauthorizedError) Error() string {
	if e.Cause == nil {
		return "model client: unauthorized"
	}
	return fmt.Sprintf("model client: unauthorized: %v", e.Cause)
}

func (e *UnauthorizedError) Unwrap() error { return e.Cause }

// errRetryable marks an error as retryable by SendAsync's own retry loop, mirroring
// internal/llmstream's ErrRetryable/makeRetryable/isRetryable.
var errRetryable = errors.New("retryable")

func makeRetryable(err error) error { return fmt.Errorf("%w: %w", errRetryable, err) }
func isRetryable(err error) bool    { return errors.Is(err, errRetryable) }
