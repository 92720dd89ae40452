package toolsched

import (
	"context"
	"errors"
	"sync"

	"github.com/relayctl/atc/internal/toolcall"
)

// ErrApprovalDenied is returned when the user declines a pending tool-call approval request.
var ErrApprovalDenied = errors.New("toolsched: approval denied")

// UserRequest describes a tool call awaiting a human decision, delivered on Scheduler.Requests.
// Mirrors authdomain.UserRequest's Allow/Disallow closure shape, renamed to tool-call vocabulary.
type UserRequest struct {
	CallID   string
	ToolName string
	Prompt   string
	Allow    func()
	Disallow func()
}

type approvalDecision int

const (
	decisionPending approvalDecision = iota
	decisionAllow
	decisionDeny
)

type pendingApproval struct {
	once     sync.Once
	decision chan approvalDecision
}

func newPendingApproval() *pendingApproval {
	return &pendingApproval{decision: make(chan approvalDecision, 1)}
}

func (p *pendingApproval) finish(decision approvalDecision) {
	p.once.Do(func() {
		p.decision <- decision
	})
}

func (p *pendingApproval) wait(ctx context.Context) approvalDecision {
	select {
	case d := <-p.decision:
		return d
	case <-ctx.Done():
		return decisionDeny
	}
}

// awaitApproval enqueues an approval request for tracked and blocks until the user (or ctx
// cancellation) resolves it.
func (s *Scheduler) awaitApproval(ctx context.Context, tracked *toolcall.Tracked) error {
	pending := newPendingApproval()
	callID := tracked.Request.CallID

	s.mu.Lock()
	s.pending[callID] = pending
	s.mu.Unlock()

	req := UserRequest{
		CallID:   callID,
		ToolName: tracked.Request.Name,
		Prompt:   tracked.Request.Name + " requires approval",
	}
	req.Allow = func() { s.resolveApproval(callID, pending, decisionAllow) }
	req.Disallow = func() { s.resolveApproval(callID, pending, decisionDeny) }

	select {
	case s.Requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	switch pending.wait(ctx) {
	case decisionAllow:
		return nil
	default:
		return ErrApprovalDenied
	}
}

func (s *Scheduler) resolveApproval(callID string, pending *pendingApproval, decision approvalDecision) {
	s.mu.Lock()
	if cur, ok := s.pending[callID]; ok && cur == pending {
		delete(s.pending, callID)
	}
	s.mu.Unlock()
	pending.finish(decision)
}
