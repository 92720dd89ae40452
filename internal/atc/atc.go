// Package atc implements the Assistant Turn Controller core from spec.md §4.1: the turn state
// machine that sends a user query to the Model Client, dispatches the resulting stream events,
// hands tool calls to the Tool Scheduler, and drives the five-category recovery subsystem
// (internal/recovery) when something goes wrong. Grounded on internal/agent/agent.go's
// mutex-owned-state / single-writer-guard / event-channel shape, generalized from its flat
// "stream once, maybe run tools, stream again" loop into the full recovery-aware state machine.
package atc

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/relayctl/atc/internal/atclog"
	"github.com/relayctl/atc/internal/checkpoint"
	"github.com/relayctl/atc/internal/clockid"
	"github.com/relayctl/atc/internal/history"
	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/obslog"
	"github.com/relayctl/atc/internal/recovery"
	"github.com/relayctl/atc/internal/tokencount"
	"github.com/relayctl/atc/internal/toolcall"
	"github.com/relayctl/atc/internal/toolsched"
	"github.com/relayctl/atc/internal/turnbuffer"
)

// ErrAlreadyRunning mirrors agent.ErrAlreadyRunning. SubmitQuery does not return it: a
// submission made while a turn is in progress fails silently and returns nil, so callers
// cannot tell a rejected submission from an accepted one by its return value.
var ErrAlreadyRunning = errors.New("atc: a turn is already in progress")

// Config configures a Controller: the recovery attempt budgets (internal/recovery.Config) plus
// the session-wide limits and switches from spec.md §6's configuration table.
type Config struct {
	Recovery recovery.Config

	// MaxSessionTurns is surfaced in the error entry emitted for a MaxSessionTurns event; the
	// recovery prompt itself does not include it.
	MaxSessionTurns int
	// SessionTokenLimit records the configured session token limit. The Controller does not
	// read it: the SessionTokenLimitExceeded error text and trim suggestion use the limit
	// carried by the event itself.
	SessionTokenLimit int64
	// CheckpointingEnabled gates whether a Checkpointer is actually wired into the scheduler.
	CheckpointingEnabled bool
	// ApprovalMode is passed straight through to the toolsched.Scheduler ("default" or "yolo").
	ApprovalMode string
}

// DefaultConfig returns a Config with spec.md §6's default recovery budgets and approval mode.
func DefaultConfig() Config {
	return Config{Recovery: recovery.DefaultConfig(), ApprovalMode: "default"}
}

// Controller is the Assistant Turn Controller (spec.md §4.1).
type Controller struct {
	history *history.Store
	ids     *clockid.Source
	model   modelclient.Client
	tools   []modelclient.ToolSpec
	cfg     Config
	log     obslog.Ctx

	// onAuthError is invoked (never auto-recovered) on an UnauthorizedError from the model
	// client (spec.md §4.3 "Auth failure").
	onAuthError func(error)

	scheduler       *toolsched.Scheduler
	schedulerEvents chan []toolcall.Tracked

	mu               sync.Mutex
	submitting       bool
	cancelledForTurn bool
	cancelFunc       context.CancelFunc
	turn             TurnState

	// curBuf/curContinuationSeen let CancelOngoing flush the in-flight assistant buffer from
	// outside the streaming goroutine; guarded by mu alongside the rest of Controller state,
	// a simplification of spec.md §5's single-logical-event-loop model onto Go's actual
	// multi-goroutine runtime.
	curBuf              *turnbuffer.Buffer
	curContinuationSeen bool
}

// New constructs a Controller. checkpointWriter may be nil (checkpointing disabled regardless
// of cfg.CheckpointingEnabled); onAuthError may be nil (auth failures are then only logged).
// onMemoryRefresh, if nil, defaults to a breadcrumb logged via atclog: it is invoked exactly
// once per call_id the first time a save_memory tool call succeeds (spec.md §4.2 item 3).
func New(store *history.Store, ids *clockid.Source, model modelclient.Client, registry toolsched.Registry, checkpointWriter *checkpoint.Writer, tools []modelclient.ToolSpec, cfg Config, log obslog.Ctx, onAuthError func(error), onMemoryRefresh func(callID string)) *Controller {
	c := &Controller{
		history:     store,
		ids:         ids,
		model:       model,
		tools:       tools,
		cfg:         cfg,
		log:         log,
		onAuthError: onAuthError,
	}

	c.schedulerEvents = make(chan []toolcall.Tracked, 8)

	var checkpointer toolsched.Checkpointer
	if cfg.CheckpointingEnabled && checkpointWriter != nil {
		checkpointer = &checkpointAdapter{writer: checkpointWriter, store: store}
	}

	c.scheduler = toolsched.NewScheduler(registry, checkpointer, cfg.ApprovalMode, func(batch []toolcall.Tracked) {
		c.schedulerEvents <- batch
	})

	if onMemoryRefresh == nil {
		onMemoryRefresh = func(callID string) {
			atclog.Log("atc: memory refreshed for call %s", callID)
		}
	}
	c.scheduler.OnMemorySaved = onMemoryRefresh

	return c
}

// Scheduler exposes the underlying Tool Scheduler so callers can read Requests (approval
// prompts) and present them to the user.
func (c *Controller) Scheduler() *toolsched.Scheduler { return c.scheduler }

// StreamingState reports the ATC's observable phase (spec.md §4.1).
func (c *Controller) StreamingState() StreamingState {
	for _, t := range c.scheduler.Snapshot() {
		if t.Status == toolcall.StatusAwaitingApproval {
			return WaitingForConfirmation
		}
	}
	c.mu.Lock()
	submitting := c.submitting
	c.mu.Unlock()
	if submitting {
		return Responding
	}
	return Idle
}

// TurnState returns a snapshot of the current (or most recently completed) turn's counters.
func (c *Controller) TurnState() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// SubmitQuery is the public, non-continuation entry point (spec.md §4.1). It fails silently
// (returns nil without starting a turn) if a non-continuation turn is already in progress.
func (c *Controller) SubmitQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil
	}
	c.submitting = true
	c.cancelledForTurn = false
	c.turn.reset(Options{})
	c.mu.Unlock()
	defer c.releaseGuard()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}

	promptID := c.ids.NextPromptID()
	c.history.Append(history.Entry{Kind: history.KindUser, Text: trimmed})

	req := modelclient.Request{Text: trimmed, Tools: c.tools}
	return c.loop(ctx, req, promptID, Options{})
}

func (c *Controller) releaseGuard() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

// CancelOngoing is a no-op unless a turn is currently responding (spec.md §4.1); idempotent
// within the same turn. When effective: sets the cancellation token, flushes whatever's
// currently buffered as a history entry, emits "Request cancelled", and resets the scheduler.
func (c *Controller) CancelOngoing() {
	c.mu.Lock()
	if !c.submitting || c.cancelledForTurn {
		c.mu.Unlock()
		return
	}
	c.cancelledForTurn = true
	cancelFn := c.cancelFunc
	var flushText string
	continuationSeen := c.curContinuationSeen
	if c.curBuf != nil {
		flushText = c.curBuf.String()
		c.curBuf.Reset()
	}
	c.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}

	if flushText != "" {
		c.history.SetPending(history.Pending{Kind: history.PendingAssistant, Text: flushText, IsContinuationChunk: continuationSeen})
		c.history.FinalizePendingAssistant()
	} else {
		c.history.ClearPending()
	}
	c.scheduler.Reset("turn cancelled")
	c.history.Append(history.Entry{Kind: history.KindInfo, Text: "Request cancelled"})
}

func (c *Controller) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelledForTurn
}

// estimatedTokenCount is a seam over tokencount.Count for tests that want to avoid loading the
// real tokenizer encoding table.
var estimatedTokenCount = tokencount.Count
