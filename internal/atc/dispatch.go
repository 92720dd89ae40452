package atc

import (
	"context"
	"errors"

	"github.com/relayctl/atc/internal/atclog"
	"github.com/relayctl/atc/internal/history"
	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/recovery"
	"github.com/relayctl/atc/internal/streamevent"
	"github.com/relayctl/atc/internal/tokencount"
	"github.com/relayctl/atc/internal/toolcall"
	"github.com/relayctl/atc/internal/turnbuffer"
	"github.com/relayctl/atc/internal/turnsnapshot"
)

// continuationOutcome is runOneTurn's verdict: either the turn (and its whole recovery chain)
// is over (done), or a continuation must be submitted next (spec.md §4.1 RecoveryDecision /
// §4.2 completion-callback forwarding).
type continuationOutcome struct {
	done         bool
	nextReq      modelclient.Request
	nextPromptID string
	nextOpts     Options
}

func doneOutcome() continuationOutcome { return continuationOutcome{done: true} }

// loop drives one user-originated turn plus every recovery/tool-forwarding continuation it
// spawns, until a terminal outcome is reached.
func (c *Controller) loop(ctx context.Context, req modelclient.Request, promptID string, opts Options) error {
	for {
		outcome, err := c.runOneTurn(ctx, req, promptID, opts)
		if err != nil {
			return err
		}
		if outcome.done || c.isCancelled() {
			return nil
		}
		req, promptID, opts = outcome.nextReq, outcome.nextPromptID, outcome.nextOpts
	}
}

// runOneTurn drives exactly one Streaming→Draining→RecoveryDecision pass (spec.md §4.1).
func (c *Controller) runOneTurn(ctx context.Context, req modelclient.Request, promptID string, opts Options) (continuationOutcome, error) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var buf turnbuffer.Buffer
	c.mu.Lock()
	c.cancelFunc = cancel
	c.curBuf = &buf
	c.curContinuationSeen = false
	c.mu.Unlock()

	events := c.model.SendAsync(turnCtx, req)

	var (
		toolBatch    []streamevent.ToolCallRequest
		loopDetected bool
		sawFinished  bool
		finishReason streamevent.FinishReason
		providerErr  *modelclient.ProviderRetryExhaustedError
		authErr      *modelclient.UnauthorizedError
		early        *continuationOutcome
	)

eventLoop:
	for ev := range events {
		atclog.Log("atc: event=%s", ev.Type)
		cancelled := c.isCancelled()

		switch ev.Type {
		case streamevent.TypeThought:
			// observable-only; no history write (spec.md §4.3 table).

		case streamevent.TypeContent:
			if cancelled {
				continue
			}
			c.mu.Lock()
			c.turn.RetryAttempts = 0
			c.mu.Unlock()
			buf.Append(ev.ContentDelta)
			c.flushSafeChunks(&buf)

		case streamevent.TypeToolCallRequest:
			if cancelled || ev.ToolCall == nil {
				continue
			}
			toolBatch = append(toolBatch, *ev.ToolCall)

		case streamevent.TypeUserCancelled:
			c.scheduler.Reset("cancelled")
			c.history.Append(history.Entry{Kind: history.KindInfo, Text: "User cancelled the request."})
			toolBatch = nil

		case streamevent.TypeError:
			if ev.Error != nil {
				var perr *modelclient.ProviderRetryExhaustedError
				if errors.As(ev.Error.Err, &perr) {
					providerErr = perr
					break eventLoop
				}
				var uerr *modelclient.UnauthorizedError
				if errors.As(ev.Error.Err, &uerr) {
					authErr = uerr
					break eventLoop
				}
			}
			c.history.Append(history.Entry{Kind: history.KindError, Text: errorMessage(ev.Error)})

		case streamevent.TypeChatCompressed:
			var before, after int64
			if ev.ChatCompressed != nil {
				if ev.ChatCompressed.OriginalTokenCount != nil {
					before = *ev.ChatCompressed.OriginalTokenCount
				}
				if ev.ChatCompressed.NewTokenCount != nil {
					after = *ev.ChatCompressed.NewTokenCount
				}
			}
			c.history.Append(history.Entry{
				Kind:              history.KindCompression,
				Text:              "Conversation history was compressed to free up context.",
				CompressionBefore: before,
				CompressionAfter:  after,
			})

		case streamevent.TypeToolCallConfirmation, streamevent.TypeToolCallResponse:
			// no-op; the scheduler owns these (spec.md §4.3 table).

		case streamevent.TypeMaxSessionTurns:
			o := c.handleMaxSessionTurns(promptID)
			early = &o
			break eventLoop

		case streamevent.TypeSessionTokenLimitExceeded:
			o := c.handleSessionTokenLimit(ev.SessionTokenLimit, promptID)
			early = &o
			break eventLoop

		case streamevent.TypeTurnBudgetExceeded:
			o := c.handleTurnBudgetExceeded(ev.TurnBudget, promptID)
			early = &o
			break eventLoop

		case streamevent.TypeFinished:
			sawFinished = true
			finishReason = ev.FinishReason

		case streamevent.TypeLoopDetected:
			loopDetected = true

		case streamevent.TypeRetry:
			if o, stop := c.handleRetry(&buf, promptID); stop {
				early = &o
				break eventLoop
			}
		}
	}

	c.mu.Lock()
	c.curBuf = nil
	c.mu.Unlock()

	// Flush whatever's left in the buffer, safe-split or not: the turn is ending either way.
	if buf.Len() > 0 {
		c.mu.Lock()
		continuationSeen := c.curContinuationSeen
		c.mu.Unlock()
		c.history.SetPending(history.Pending{Kind: history.PendingAssistant, Text: buf.String(), IsContinuationChunk: continuationSeen})
		c.history.FinalizePendingAssistant()
		buf.Reset()
	}

	if authErr != nil {
		c.history.Append(history.Entry{Kind: history.KindError, Text: "Authentication failed: " + authErr.Error()})
		if c.onAuthError != nil {
			c.onAuthError(authErr)
		}
		c.log.Log("atc: auth failure, stopping turn", "error", authErr.Error())
		return doneOutcome(), nil
	}

	if early != nil {
		return *early, nil
	}

	if providerErr != nil {
		return c.handleProviderFailure(providerErr, promptID), nil
	}

	if loopDetected {
		return c.handleLoopDetected(promptID), nil
	}

	if sawFinished && streamevent.IsFinishRecoveryTrigger(finishReason) {
		return c.handleFinishRecovery(finishReason, promptID), nil
	}

	if c.isCancelled() {
		return doneOutcome(), nil
	}

	if len(toolBatch) > 0 {
		return c.dispatchToolBatch(ctx, toolBatch, promptID), nil
	}

	return doneOutcome(), nil
}

func errorMessage(p *streamevent.ErrorPayload) string {
	if p == nil {
		return "model error"
	}
	if p.Message != "" {
		return p.Message
	}
	if p.Err != nil {
		return p.Err.Error()
	}
	return "model error"
}

// flushSafeChunks drains every currently-safe split point out of buf into finalized history
// entries (spec.md §4.1: "periodically split the buffer at a safe markdown boundary").
func (c *Controller) flushSafeChunks(buf *turnbuffer.Buffer) {
	for {
		chunk, ok := buf.TrySplit()
		if !ok {
			return
		}
		c.mu.Lock()
		continuationSeen := c.curContinuationSeen
		c.mu.Unlock()

		c.history.SetPending(history.Pending{Kind: history.PendingAssistant, Text: chunk, IsContinuationChunk: continuationSeen})
		c.history.FinalizePendingAssistant()

		c.mu.Lock()
		c.curContinuationSeen = true
		c.mu.Unlock()
	}
}

func (c *Controller) snapshot() string {
	return turnsnapshot.Build(c.history.Entries())
}

// dispatchToolBatch schedules the accumulated tool-call batch and blocks (spec.md §5's
// suspension point 2: "awaiting the scheduler's completion callback") until every call in it
// reaches a terminal state, then applies spec.md §4.2's completion-callback policy.
func (c *Controller) dispatchToolBatch(ctx context.Context, reqs []streamevent.ToolCallRequest, promptID string) continuationOutcome {
	requests := make([]toolcall.Request, len(reqs))
	for i, r := range reqs {
		requests[i] = toolcall.Request{CallID: r.CallID, Name: r.Name, Arguments: r.Args, PromptID: r.PromptID, ClientInitiated: r.ClientInitiated}
	}

	c.scheduler.Schedule(ctx, requests)
	batch := <-c.schedulerEvents

	items := make([]history.ToolGroupItem, len(batch))
	allCancelled := true
	for i, t := range batch {
		result := ""
		if len(t.Response) > 0 {
			result = t.Response[0].Text
		}
		items[i] = history.ToolGroupItem{CallID: t.CallID, Name: t.Name, Status: t.Status, Result: result}
		if t.Status != toolcall.StatusCancelled {
			allCancelled = false
		}
	}
	c.history.Append(history.Entry{Kind: history.KindToolGroup, ToolGroup: items})

	callIDs := make([]string, len(batch))
	for i, t := range batch {
		callIDs[i] = t.CallID
	}
	c.scheduler.MarkSubmitted(callIDs)

	if allCancelled {
		// spec.md §4.2: "the cancellation is injected into the model's conversation history
		// as a synthetic user-role message... and no new model request is issued." Our
		// modelclient.Client has no hook to inject arbitrary history into a provider-managed
		// thread (see DESIGN.md) so this is the full effect: the tool_group entry above already
		// records the cancellation, and the turn simply ends.
		return doneOutcome()
	}

	var results []modelclient.ToolResult
	for _, t := range batch {
		if t.ClientInitiated {
			continue
		}
		text := ""
		isErr := false
		if len(t.Response) > 0 {
			text = t.Response[0].Text
			isErr = t.Response[0].IsError
		}
		results = append(results, modelclient.ToolResult{CallID: t.CallID, Name: t.Name, Text: text, IsErr: isErr})
	}
	if len(results) == 0 {
		return doneOutcome()
	}

	return continuationOutcome{
		nextReq:      modelclient.Request{ToolResults: results, Tools: c.tools},
		nextPromptID: promptID,
		nextOpts:     Options{IsContinuation: true},
	}
}

// handleRetry implements stream-stall recovery (spec.md §4.3, category auto). Returns
// (outcome, true) when the stream loop must stop now.
func (c *Controller) handleRetry(buf *turnbuffer.Buffer, promptID string) (continuationOutcome, bool) {
	c.mu.Lock()
	c.turn.RetryAttempts++
	attempt := c.turn.RetryAttempts
	limit := c.cfg.Recovery.StreamRetryLimit
	c.mu.Unlock()

	buf.Reset()
	c.history.ClearPending()
	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.StreamStallInfo(attempt, limit)})

	if attempt < limit {
		return continuationOutcome{}, false
	}

	c.mu.Lock()
	canRecover := c.turn.AutoRecoveryAttempts < c.cfg.Recovery.AutoRecoveryMaxAttempts
	if canRecover {
		c.turn.AutoRecoveryAttempts++
	}
	c.mu.Unlock()

	if !canRecover {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.StreamStallExhaustedError()})
		c.log.Log("atc: auto recovery exhausted")
		return doneOutcome(), true
	}

	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.SelfRecoveryInfo()})
	plan := recovery.StreamStallPlan(c.snapshot())
	return c.continuationFromPlan(plan, promptID), true
}

func (c *Controller) handleMaxSessionTurns(promptID string) continuationOutcome {
	c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.MaxSessionTurnsError(c.cfg.MaxSessionTurns)})
	return c.resolveLimit(recovery.MaxSessionTurnsPlan(c.snapshot()), promptID)
}

func (c *Controller) handleSessionTokenLimit(p *streamevent.SessionTokenLimitPayload, promptID string) continuationOutcome {
	var current, limit int64
	if p != nil {
		current, limit = p.CurrentTokens, p.Limit
	}
	c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.SessionTokenLimitError(current, limit)})

	trim := ""
	if limit > 0 {
		trim = tokencount.EstimateTrimSuggestion(c.snapshot(), int(limit))
	}
	return c.resolveLimit(recovery.SessionTokenLimitPlan(current, limit, trim, c.snapshot()), promptID)
}

func (c *Controller) handleTurnBudgetExceeded(p *streamevent.TurnBudgetPayload, promptID string) continuationOutcome {
	var limit *int64
	if p != nil {
		limit = p.Limit
	}
	c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.TurnBudgetError(limit)})
	return c.resolveLimit(recovery.TurnBudgetPlan(limit, c.snapshot()), promptID)
}

// resolveLimit implements the shared limit-recovery budget (spec.md §4.3, category limit):
// reset the scheduler, clear pending, and either queue the plan or emit the exhausted error.
// The token is aborted by runOneTurn's deferred cancel() when it returns after this call.
func (c *Controller) resolveLimit(plan recovery.Plan, promptID string) continuationOutcome {
	c.scheduler.Reset("session limit reached")
	c.history.ClearPending()

	c.mu.Lock()
	canRecover := c.turn.LimitRecoveryAttempts < c.cfg.Recovery.LimitRecoveryMaxAttempts
	if canRecover {
		c.turn.LimitRecoveryAttempts++
	}
	c.mu.Unlock()

	if !canRecover {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.LimitExhaustedError()})
		c.log.Log("atc: limit recovery exhausted")
		return doneOutcome()
	}

	return c.continuationFromPlan(plan, promptID)
}

func (c *Controller) handleLoopDetected(promptID string) continuationOutcome {
	c.scheduler.Reset("potential tool loop detected")
	c.history.ClearPending()
	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.LoopSnapshotInfo(c.snapshot())})

	c.mu.Lock()
	canRecover := c.turn.LoopRecoveryAttempts < c.cfg.Recovery.LoopRecoveryMaxAttempts
	if canRecover {
		c.turn.LoopRecoveryAttempts++
	}
	c.mu.Unlock()

	if !canRecover {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.LoopExhaustedError()})
		c.log.Log("atc: loop recovery exhausted")
		return doneOutcome()
	}

	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.AutomaticRecoveryInfo()})
	return c.continuationFromPlan(recovery.LoopPlan(c.snapshot()), promptID)
}

func (c *Controller) handleFinishRecovery(reason streamevent.FinishReason, promptID string) continuationOutcome {
	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.FinishInfo(reason)})

	c.mu.Lock()
	canRecover := c.turn.FinishRecoveryAttempts < c.cfg.Recovery.FinishRecoveryMaxAttempts
	if canRecover {
		c.turn.FinishRecoveryAttempts++
	}
	c.mu.Unlock()

	if !canRecover {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.FinishExhaustedError(reason)})
		c.log.Log("atc: finish recovery exhausted", "reason", string(reason))
		return doneOutcome()
	}

	return c.continuationFromPlan(recovery.FinishPlan(reason, c.snapshot()), promptID)
}

func (c *Controller) handleProviderFailure(perr *modelclient.ProviderRetryExhaustedError, promptID string) continuationOutcome {
	c.history.Append(history.Entry{Kind: history.KindInfo, Text: recovery.ProviderFailureInfo(perr.Attempts, perr.ErrorCodes, perr.LastErr, c.snapshot())})

	if err := c.model.ResetChat(context.Background()); err != nil {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.ProviderResetFailedError(err)})
		return doneOutcome()
	}

	c.mu.Lock()
	canRecover := c.turn.ProviderRecoveryAttempts < c.cfg.Recovery.ProviderRecoveryMaxAttempts
	if canRecover {
		c.turn.ProviderRecoveryAttempts++
	}
	c.mu.Unlock()

	if !canRecover {
		c.history.Append(history.Entry{Kind: history.KindError, Text: recovery.ProviderExhaustedError()})
		c.log.Log("atc: provider recovery exhausted")
		return doneOutcome()
	}

	return c.continuationFromPlan(recovery.ProviderPlan(perr.Attempts, perr.ErrorCodes, c.snapshot()), promptID)
}

// continuationFromPlan turns a recovery.Plan into the next loop() iteration's inputs. The
// attempt number embedded in the prompt id is read back off the just-incremented counter for
// plan.Category (spec.md §6's "${parent_prompt_id}-{suffix}-recovery-${attempt}" format).
func (c *Controller) continuationFromPlan(plan recovery.Plan, parentPromptID string) continuationOutcome {
	c.mu.Lock()
	attempt := c.attemptForCategory(plan.Category)
	c.mu.Unlock()

	return continuationOutcome{
		nextReq:      modelclient.Request{Text: plan.Prompt, Tools: c.tools},
		nextPromptID: recovery.PromptID(parentPromptID, plan.PromptSuffix, attempt),
		nextOpts: Options{
			IsContinuation:    true,
			SkipLoopReset:     plan.SkipLoopReset,
			SkipProviderReset: plan.SkipProvider,
			SkipLimitReset:    plan.SkipLimit,
			SkipFinishReset:   plan.SkipFinish,
		},
	}
}

// attemptForCategory must be called with c.mu held; it reads the counter already incremented
// by the caller for plan.Category.
func (c *Controller) attemptForCategory(cat recovery.Category) int {
	switch cat {
	case recovery.CategoryAuto:
		return c.turn.AutoRecoveryAttempts
	case recovery.CategoryLoop:
		return c.turn.LoopRecoveryAttempts
	case recovery.CategoryLimit:
		return c.turn.LimitRecoveryAttempts
	case recovery.CategoryFinish:
		return c.turn.FinishRecoveryAttempts
	case recovery.CategoryProvider:
		return c.turn.ProviderRecoveryAttempts
	default:
		return 1
	}
}
