// Command atc-demo is a thin terminal driver over the Assistant Turn Controller (internal/atc),
// proving the wiring compiles end to end and giving StreamingState's WaitingForConfirmation a
// visible surface. Grounded on the teacher's root main.go (a one-line call into internal/tui),
// generalized to also parse the handful of flags the ATC's Config needs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/relayctl/atc/internal/atc"
	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/recovery"
	"github.com/relayctl/atc/internal/tui"
	"golang.org/x/term"
)

func main() {
	var (
		sandboxDir   = flag.String("dir", "", "sandbox directory (defaults to the current directory)")
		model        = flag.String("model", "gpt-5", "model name passed to the OpenAI Responses endpoint")
		baseURL      = flag.String("base-url", "", "override the OpenAI-compatible base URL")
		effort       = flag.String("reasoning-effort", "", "reasoning effort: minimal, low, medium, high")
		maxTurns     = flag.Int("max-session-turns", 0, "0 disables the session turn limit")
		tokenLimit   = flag.Int64("session-token-limit", 0, "0 disables the session token limit")
		checkpoints  = flag.Bool("checkpoints", true, "write a checkpoint before each mutating tool call")
		approvalMode = flag.String("approval-mode", "default", `"default" (ask before mutating tools) or "yolo" (never ask)`)
	)
	flag.Parse()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "atc-demo: stdin is not a terminal")
		os.Exit(1)
	}

	cfg := tui.Config{
		SandboxDir: *sandboxDir,
		Model: modelclient.Config{
			APIKey:          os.Getenv("ATC_API_KEY"),
			BaseURL:         *baseURL,
			Model:           *model,
			ReasoningEffort: *effort,
		},
		ATC: atc.Config{
			Recovery:             recovery.DefaultConfig(),
			MaxSessionTurns:      *maxTurns,
			SessionTokenLimit:    *tokenLimit,
			CheckpointingEnabled: *checkpoints,
			ApprovalMode:         *approvalMode,
		},
	}

	if err := tui.Run(cfg); err != nil {
		log.Fatal(err)
	}
}

