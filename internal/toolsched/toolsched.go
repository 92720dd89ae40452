// Package toolsched implements the Tool Scheduler external collaborator contract from spec.md
// §4.2: schedule/reset/mark_submitted, each tool call driven through
// validating → (awaiting_approval →) scheduled → executing → terminal. Grounded on
// internal/tools/authdomain/authorizer.go's Authorizer: its UserRequest channel and
// Allow/Disallow closures are repurposed here as the awaiting_approval handshake, renamed from
// file-authorization vocabulary (IsAuthorizedForWrite, paths) to tool-scheduler vocabulary
// (call_id, status).
package toolsched

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/relayctl/atc/internal/toolcall"
)

// Tool is a single invocable tool. RequiresApproval and Mutating are read once per call; a tool
// registered as Mutating triggers the Checkpoint Writer hook before Execute runs (spec.md §7.5 /
// §10 supplement), matching the spec's { edit, write_file } checkpoint-gated tool set.
type Tool interface {
	Name() string
	RequiresApproval() bool
	Mutating() bool
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Checkpointer is invoked before a Mutating tool executes, so a restorable snapshot exists
// before the tool can change on-disk or conversation state (spec.md §7.5). args is the call's
// own argument map (e.g. carrying file_path) so an implementation can snapshot/diff the file the
// tool is actually about to touch.
type Checkpointer interface {
	Checkpoint(ctx context.Context, toolName string, callID string, args map[string]any) error
}

// Registry resolves tool names to implementations.
type Registry map[string]Tool

// CompletionFunc is invoked once per batch, exactly when every call in the batch has reached a
// terminal status. Batches' completion callbacks fire in the order their batches completed, not
// the order they were scheduled (spec.md §5).
type CompletionFunc func(batch []toolcall.Tracked)

// Scheduler is the default Tool Scheduler implementation.
type Scheduler struct {
	registry     Registry
	checkpointer Checkpointer
	approvalMode string // "default" or "yolo"; anything else behaves like "default"
	onCompletion CompletionFunc

	mu      sync.Mutex
	calls   map[string]*toolcall.Tracked
	pending map[string]*pendingApproval

	memory *memoryDedup

	// OnMemorySaved, if set, is invoked exactly once per call_id the first time a save_memory
	// call succeeds (spec.md §4.2 item 3's "memory refresh" side effect). It never gates
	// execution: a repeated save_memory call still runs and returns its own result, the dedup
	// set only decides whether the refresh fires again.
	OnMemorySaved func(callID string)

	// Requests delivers awaiting_approval prompts for a human decision. Unbuffered reads are
	// never required: the channel is sized generously. Reset does not drain it; it resolves
	// pending requests directly, so a request still queued after a Reset is already decided.
	Requests chan UserRequest
}

// NewScheduler constructs a Scheduler. approvalMode "yolo" skips the awaiting_approval state
// entirely, matching the spec's APPROVAL_MODE configuration key.
func NewScheduler(registry Registry, checkpointer Checkpointer, approvalMode string, onCompletion CompletionFunc) *Scheduler {
	return &Scheduler{
		registry:     registry,
		checkpointer: checkpointer,
		approvalMode: approvalMode,
		onCompletion: onCompletion,
		calls:        make(map[string]*toolcall.Tracked),
		pending:      make(map[string]*pendingApproval),
		memory:       newMemoryDedup(512),
		Requests:     make(chan UserRequest, 16),
	}
}

// Schedule accepts a batch of tool-call requests. Each enters validating, then either
// awaiting_approval (if the tool requires confirmation and approval mode is not "yolo") or
// scheduled→executing. onCompletion fires once every call in this batch is terminal. The batch
// is dispatched concurrently via an errgroup bound to ctx, so a cancelled ctx is visible to every
// call in the batch without the scheduler having to track individual goroutines itself.
func (s *Scheduler) Schedule(ctx context.Context, requests []toolcall.Request) {
	if len(requests) == 0 {
		return
	}

	batch := make([]*toolcall.Tracked, 0, len(requests))
	s.mu.Lock()
	for _, req := range requests {
		tracked := &toolcall.Tracked{Request: req, Status: toolcall.StatusValidating}
		s.calls[req.CallID] = tracked
		batch = append(batch, tracked)
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, tracked := range batch {
		g.Go(func() error {
			s.run(gctx, tracked, batch)
			return nil
		})
	}
	go func() { _ = g.Wait() }()
}

func (s *Scheduler) run(ctx context.Context, tracked *toolcall.Tracked, batch []*toolcall.Tracked) {
	tool, ok := s.registry[tracked.Request.Name]
	if !ok {
		s.finish(tracked, toolcall.StatusError, fmt.Sprintf("unknown tool %q", tracked.Request.Name), batch)
		return
	}

	if tool.RequiresApproval() && s.approvalMode != "yolo" {
		s.setStatus(tracked, toolcall.StatusAwaitingApproval)
		if err := s.awaitApproval(ctx, tracked); err != nil {
			s.finish(tracked, toolcall.StatusCancelled, err.Error(), batch)
			return
		}
	}

	s.setStatus(tracked, toolcall.StatusScheduled)

	if tool.Mutating() && s.checkpointer != nil {
		if err := s.checkpointer.Checkpoint(ctx, tracked.Request.Name, tracked.Request.CallID, tracked.Request.Arguments); err != nil {
			s.finish(tracked, toolcall.StatusError, fmt.Sprintf("checkpoint failed: %v", err), batch)
			return
		}
	}

	s.setStatus(tracked, toolcall.StatusExecuting)

	if err := ctx.Err(); err != nil {
		s.finish(tracked, toolcall.StatusCancelled, err.Error(), batch)
		return
	}

	text, err := tool.Execute(ctx, tracked.Request.Arguments)
	if err != nil {
		s.finish(tracked, toolcall.StatusError, err.Error(), batch)
		return
	}

	if tracked.Request.Name == "save_memory" && !s.memory.seen(tracked.Request.CallID) && s.OnMemorySaved != nil {
		s.OnMemorySaved(tracked.Request.CallID)
	}

	s.finish(tracked, toolcall.StatusSuccess, text, batch)
}

func (s *Scheduler) setStatus(tracked *toolcall.Tracked, status toolcall.Status) {
	s.mu.Lock()
	tracked.Status = status
	s.mu.Unlock()
}

func (s *Scheduler) finish(tracked *toolcall.Tracked, status toolcall.Status, text string, batch []*toolcall.Tracked) {
	s.mu.Lock()
	tracked.Status = status
	tracked.Response = []toolcall.ResponsePart{{
		CallID: tracked.Request.CallID,
		Name:   tracked.Request.Name,
		IsError: status == toolcall.StatusError || status == toolcall.StatusCancelled,
		Text:    text,
	}}
	allTerminal := true
	for _, t := range batch {
		if !t.Status.Terminal() {
			allTerminal = false
			break
		}
	}
	var completedBatch []toolcall.Tracked
	if allTerminal && s.onCompletion != nil {
		completedBatch = make([]toolcall.Tracked, len(batch))
		for i, t := range batch {
			completedBatch[i] = *t
		}
	}
	s.mu.Unlock()

	if completedBatch != nil {
		s.onCompletion(completedBatch)
	}
}

// Reset cancels all non-terminal tool calls, resolving any awaiting_approval request as denied,
// and flushes each into the completion callback with cancelled status (spec.md §4.2: "safe to
// call while iterating").
func (s *Scheduler) Reset(reason string) {
	s.mu.Lock()
	var toCancel []*toolcall.Tracked
	for _, tracked := range s.calls {
		if !tracked.Status.Terminal() {
			toCancel = append(toCancel, tracked)
		}
	}
	pendingToDeny := make([]*pendingApproval, 0, len(s.pending))
	for _, p := range s.pending {
		pendingToDeny = append(pendingToDeny, p)
	}
	s.pending = make(map[string]*pendingApproval)
	s.mu.Unlock()

	for _, p := range pendingToDeny {
		p.finish(decisionDeny)
	}
	for _, tracked := range toCancel {
		s.finish(tracked, toolcall.StatusCancelled, reason, []*toolcall.Tracked{tracked})
	}
}

// MarkSubmitted flips response_submitted to true for each call_id; idempotent (spec.md §4.2).
func (s *Scheduler) MarkSubmitted(callIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range callIDs {
		if tracked, ok := s.calls[id]; ok {
			tracked.ResponseSubmitted = true
		}
	}
}

// Snapshot returns a copy of every tracked call currently known to the scheduler.
func (s *Scheduler) Snapshot() []toolcall.Tracked {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]toolcall.Tracked, 0, len(s.calls))
	for _, tracked := range s.calls {
		out = append(out, *tracked)
	}
	return out
}
