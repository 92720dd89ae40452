package atc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/relayctl/atc/internal/checkpoint"
	"github.com/relayctl/atc/internal/history"
)

// checkpointAdapter implements toolsched.Checkpointer over *checkpoint.Writer, supplying the
// current history snapshot at call time (spec.md §4.2's checkpoint policy: "read the current
// conversation history" as of the moment checkpointing runs) and the mutated file's own path
// (spec.md §4.2/§6's args.file_path), extracted from the tool call's arguments.
type checkpointAdapter struct {
	writer *checkpoint.Writer
	store  *history.Store
}

func (a *checkpointAdapter) Checkpoint(ctx context.Context, toolName, callID string, args map[string]any) error {
	filePath := extractFilePath(args)

	entries := a.store.Entries()
	var clientHistory json.RawMessage
	path, err := a.writer.Write(entries, clientHistory, filePath, toolName, callID)
	if err != nil {
		return err
	}

	info := fmt.Sprintf("Checkpoint saved (%s, %s) at %s", toolName, filePath, path)
	if preview := diffPreview(filePath, args); preview != "" {
		info = fmt.Sprintf("%s\n%s", info, preview)
	}
	a.store.Append(history.Entry{Kind: history.KindInfo, Text: info})
	return nil
}

// extractFilePath pulls the mutated file's path out of a tool call's arguments: spec.md's own
// vocabulary is args.file_path, but internal/demotools' write_file tool (the only Mutating tool
// actually wired in this repo) names the same argument "path".
func extractFilePath(args map[string]any) string {
	if v, ok := args["file_path"].(string); ok && v != "" {
		return v
	}
	if v, ok := args["path"].(string); ok && v != "" {
		return v
	}
	return ""
}

// diffPreview renders a unified diff of filePath's current on-disk contents against the content
// the tool call is about to write, when both are available (SPEC_FULL.md §10 supplement #3:
// "the info entry accompanying a successful checkpoint additionally embeds a short unified
// diff... when the file already existed"). Any failure to read the pre-image or a missing/
// non-string content argument just suppresses the preview; it never fails the checkpoint.
func diffPreview(filePath string, args map[string]any) string {
	if filePath == "" {
		return ""
	}
	newContent, ok := args["content"].(string)
	if !ok {
		return ""
	}
	oldBytes, err := os.ReadFile(filePath)
	if err != nil {
		return ""
	}
	return checkpoint.DiffPreview(filePath, string(oldBytes), newContent)
}
