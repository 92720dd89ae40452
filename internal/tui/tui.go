// Package tui is a minimal terminal driver that exercises the Assistant Turn Controller
// end-to-end (cmd/atc-demo's engine room). Grounded on the teacher's own internal/tui.go
// Model/Update/View shape over internal/q/tui, generalized from "one agent.Agent, one
// append-only message log drawn by agentformatter" down to "one atc.Controller, one
// history.Store drawn as plain text" - colorization is dropped because the example pack's
// internal/q/termformat never actually defines the Color/Style types internal/tui/palette.go
// and banner.go referenced (see DESIGN.md); Cut/Sanitize/TextWidthWithANSICodes, which ARE
// defined, are kept for width-aware layout.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relayctl/atc/internal/atc"
	"github.com/relayctl/atc/internal/history"
	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/q/termformat"
	qtui "github.com/relayctl/atc/internal/q/tui"
	"github.com/relayctl/atc/internal/toolsched"
)

const minWindowWidth = 20

// Config controls runtime options for the demo TUI.
type Config struct {
	SandboxDir string
	Model      modelclient.Config
	ATC        atc.Config
}

// Run launches the demo TUI in an alternate screen buffer.
func Run(cfg Config) error {
	sess, err := newSession(sessionConfig{sandboxDir: cfg.SandboxDir, model: cfg.Model, atcConfig: cfg.ATC})
	if err != nil {
		return err
	}

	m := newModel(sess)
	return qtui.RunTUI(m, qtui.Options{Framerate: 30})
}

type tickMsg struct{}

type approvalRequestMsg struct {
	req toolsched.UserRequest
}

type turnDoneMsg struct {
	err error
}

type model struct {
	tui *qtui.TUI
	sess *session

	ready  bool
	width  int
	height int

	input       []rune
	running     bool
	pending     *toolsched.UserRequest
	lastErr     error
	renderedLen int // number of history.Entries() already rendered into scrollback
}

func newModel(sess *session) *model {
	return &model{sess: sess}
}

func (m *model) Init(t *qtui.TUI) {
	m.tui = t
	t.SendPeriodically(tickMsg{}, 150*time.Millisecond)
	m.listenForApprovals()
}

func (m *model) listenForApprovals() {
	if m.tui == nil || m.sess == nil {
		return
	}
	reqs := m.sess.UserRequests()
	if reqs == nil {
		return
	}
	m.tui.Go(func(ctx context.Context) qtui.Message {
		select {
		case req, ok := <-reqs:
			if !ok {
				return nil
			}
			return approvalRequestMsg{req: req}
		case <-ctx.Done():
			return nil
		}
	})
}

func (m *model) Update(t *qtui.TUI, msg qtui.Message) {
	if m.tui == nil {
		m.tui = t
	}

	switch ev := msg.(type) {
	case qtui.ResizeEvent:
		m.ready = true
		m.width, m.height = ev.Width, ev.Height

	case qtui.KeyEvent:
		m.handleKey(ev)

	case qtui.SigTermEvent:
		// nothing to flush; let the default (uncanceled) behavior stop the TUI.
	case qtui.SigIntEvent:
		if m.running {
			m.sess.CancelOngoing()
			ev.Cancel()
		}

	case tickMsg:
		// rendering is pull-based (View reads sess.store directly); the tick just forces
		// a repaint while a turn is streaming.

	case approvalRequestMsg:
		m.pending = &ev.req
		m.listenForApprovals()

	case turnDoneMsg:
		m.running = false
		m.lastErr = ev.err
	}
}

func (m *model) handleKey(ev qtui.KeyEvent) {
	if m.pending != nil {
		m.handleApprovalKey(ev)
		return
	}

	switch ev.ControlKey {
	case qtui.ControlKeyBreak:
		if m.running {
			m.sess.CancelOngoing()
		} else if m.tui != nil {
			m.tui.Quit()
		}
	case qtui.ControlKeyEnter:
		m.submit()
	case qtui.ControlKeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	default:
		if ev.IsRunes() {
			m.input = append(m.input, ev.Runes...)
		}
	}
}

func (m *model) handleApprovalKey(ev qtui.KeyEvent) {
	if !ev.IsRunes() {
		return
	}
	switch ev.Rune() {
	case 'y', 'Y':
		m.pending.Allow()
		m.pending = nil
	case 'n', 'N':
		m.pending.Disallow()
		m.pending = nil
	}
}

func (m *model) submit() {
	if m.running || m.pending != nil {
		return
	}
	query := strings.TrimSpace(string(m.input))
	if query == "" {
		return
	}
	m.input = nil
	m.running = true
	m.lastErr = nil

	if m.tui != nil {
		m.tui.Go(func(ctx context.Context) qtui.Message {
			return turnDoneMsg{err: m.sess.SubmitQuery(ctx, query)}
		})
	}
}

func (m *model) View() string {
	if !m.ready || m.width < minWindowWidth {
		return "starting up...\n"
	}

	var b strings.Builder
	b.WriteString(bannerLine(m.width, m.sess.ModelName()))
	b.WriteString("\n\n")

	for _, e := range m.sess.store.Entries() {
		b.WriteString(renderEntry(e))
		b.WriteString("\n")
	}

	if m.lastErr != nil {
		fmt.Fprintf(&b, "[demo] turn error: %v\n", m.lastErr)
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", clampWidth(m.width)))
	b.WriteString("\n")

	if m.pending != nil {
		fmt.Fprintf(&b, "approve tool call %q (call %s)? [y/n]\n%s\n", m.pending.ToolName, m.pending.CallID, m.pending.Prompt)
		return b.String()
	}

	state := m.sess.StreamingState()
	status := "idle"
	if state == atc.Responding {
		status = "responding... (ctrl+c to cancel)"
	} else if state == atc.WaitingForConfirmation {
		status = "waiting for confirmation"
	}
	fmt.Fprintf(&b, "[%s] > %s\n", status, termformat.Sanitize(string(m.input), 4))

	return b.String()
}

func clampWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

func bannerLine(width int, modelName string) string {
	title := "atc-demo"
	line := fmt.Sprintf("%s  (model: %s)", title, modelName)
	if termformat.TextWidthWithANSICodes(line) > width {
		return termformat.Cut(line, 0, termformat.TextWidthWithANSICodes(line)-width)
	}
	return line
}

func renderEntry(e history.Entry) string {
	switch e.Kind {
	case history.KindUser:
		return "you> " + e.Text
	case history.KindAssistant, history.KindAssistantContent:
		return "atc> " + e.Text
	case history.KindToolGroup:
		var b strings.Builder
		for _, item := range e.ToolGroup {
			fmt.Fprintf(&b, "tool[%s] %s: %s\n", item.Status, item.Name, item.Result)
		}
		return strings.TrimRight(b.String(), "\n")
	case history.KindInfo:
		return "* " + e.Text
	case history.KindError:
		return "! " + e.Text
	case history.KindCompression:
		return fmt.Sprintf("~ compressed history (%d -> %d tokens)", e.CompressionBefore, e.CompressionAfter)
	default:
		return string(e.Kind) + ": " + e.Text
	}
}
