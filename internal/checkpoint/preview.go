package checkpoint

import (
	"github.com/relayctl/atc/internal/diff"
)

// DiffPreview renders a unified-diff preview of a mutating tool call's effect on a single file,
// used by the SUPPLEMENTED checkpoint-diff-preview feature (spec.md §10): the checkpoint info
// entry of a mutating call shows what the tool is about to change. The checkpoint is taken after
// the call is approved, so the approval prompt itself carries no diff. Reuses the teacher's line-oriented diff engine (internal/diff, itself
// built on github.com/sergi/go-diff/diffmatchpatch) unchanged.
func DiffPreview(path, oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	d := diff.DiffText(oldText, newText)
	return d.RenderUnifiedDiff(false, path, path, 3)
}
