package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relayctl/atc/internal/atc"
	"github.com/relayctl/atc/internal/checkpoint"
	"github.com/relayctl/atc/internal/clockid"
	"github.com/relayctl/atc/internal/demotools"
	"github.com/relayctl/atc/internal/history"
	"github.com/relayctl/atc/internal/modelclient"
	"github.com/relayctl/atc/internal/obslog"
	"github.com/relayctl/atc/internal/toolsched"
)

// sessionConfig configures a session, mirroring the teacher's sessionConfig (modelID + sandbox
// dir) but scoped to what the ATC's own Config exposes (spec.md §6) instead of agent-mode
// switches like packagePath/lintSteps.
type sessionConfig struct {
	sandboxDir string
	model      modelclient.Config
	atcConfig  atc.Config
}

// session wraps a single atc.Controller instance, the way the teacher's session wraps a single
// agent.Agent: one per TUI run, constructed once at startup.
type session struct {
	controller *atc.Controller
	store      *history.Store
	sandboxDir string
	modelName  string
}

func newSession(cfg sessionConfig) (*session, error) {
	sandboxDir := strings.TrimSpace(cfg.sandboxDir)
	if sandboxDir == "" {
		var err error
		sandboxDir, err = determineSandboxDir()
		if err != nil {
			return nil, err
		}
	}
	sandboxDir = filepath.Clean(sandboxDir)

	sessionID, err := clockid.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	ids := clockid.NewSource(clockid.SystemClock{}, sessionID)
	store := history.NewStore(ids)

	client := resolveModelClient(cfg.model)
	registry := demotools.Registry(sandboxDir)

	var writer *checkpoint.Writer
	if cfg.atcConfig.CheckpointingEnabled {
		writer = checkpoint.NewWriter(filepath.Join(sandboxDir, ".atc-checkpoints"))
	}

	log := obslog.Ctx{}
	controller := atc.New(store, ids, client, registry, writer, demoToolSpecs(), cfg.atcConfig, log, nil, nil)

	return &session{
		controller: controller,
		store:      store,
		sandboxDir: sandboxDir,
		modelName:  cfg.model.Model,
	}, nil
}

// resolveModelClient picks a real OpenAI-Responses client when an API key is configured,
// falling back to offlineFakeClient, which answers every turn with the same canned reply, so
// the demo still runs when no credentials are present - there is no sandboxed "dry run" mode in spec.md, but a demo
// binary shouldn't refuse to start just because ATC_API_KEY is unset.
func resolveModelClient(cfg modelclient.Config) modelclient.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return offlineFakeClient()
	}
	return modelclient.NewOpenAIResponses(cfg)
}

func (s *session) SubmitQuery(ctx context.Context, query string) error {
	if s == nil || s.controller == nil {
		return nil
	}
	return s.controller.SubmitQuery(ctx, query)
}

func (s *session) CancelOngoing() {
	if s == nil || s.controller == nil {
		return
	}
	s.controller.CancelOngoing()
}

func (s *session) StreamingState() atc.StreamingState {
	if s == nil || s.controller == nil {
		return atc.Idle
	}
	return s.controller.StreamingState()
}

func (s *session) UserRequests() <-chan toolsched.UserRequest {
	if s == nil || s.controller == nil {
		return nil
	}
	return s.controller.Scheduler().Requests
}

func (s *session) ModelName() string {
	if s == nil || strings.TrimSpace(s.modelName) == "" {
		return "(offline demo model)"
	}
	return s.modelName
}

func determineSandboxDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}

// demoToolSpecs declares the demo tool schemas surfaced to the model, mirroring the shape
// internal/tools/coretools's read_file.go advertises via llmstream.ToolInfo.
func demoToolSpecs() []modelclient.ToolSpec {
	return []modelclient.ToolSpec{
		{
			Name:        "read_file",
			Description: "Read a text file from the sandbox directory.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":         map[string]any{"type": "string"},
					"line_numbers": map[string]any{"type": "boolean"},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "write_file",
			Description: "Write (overwrite) a text file in the sandbox directory. Requires user approval.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"path", "content"},
			},
		},
	}
}
