// Package turnsnapshot implements the Context-Snapshot Builder from spec.md §4.4: a compact
// textual summary of recent user/assistant turns and tool-call outcomes, inlined into
// synthesized recovery prompts and also emitted to the user as info text.
package turnsnapshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relayctl/atc/internal/history"
	"github.com/relayctl/atc/internal/textwidth"
)

const (
	maxSnippetGraphemes = 280
	maxToolGroups       = 2
	maxToolEntries      = 4
)

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Build produces the recovery snapshot for entries (the finalized history log) plus pending
// (the in-flight entry, if any, already flushed by the caller before this is invoked per
// spec.md's Draining state). It returns up to three newline-joined segments: the most recent
// user text, the most recent assistant text, and a joined summary of the last maxToolGroups
// tool groups' calls. Empty segments are omitted (spec.md §4.4).
func Build(entries []history.Entry) string {
	var segments []string

	if s := lastTextSegment(entries, history.KindUser, history.KindUserShell); s != "" {
		segments = append(segments, s)
	}
	if s := lastTextSegment(entries, history.KindAssistant, history.KindAssistantContent); s != "" {
		segments = append(segments, s)
	}
	if s := toolGroupsSegment(entries); s != "" {
		segments = append(segments, s)
	}

	return strings.Join(segments, "\n")
}

// lastTextSegment returns the truncated, whitespace-collapsed text of the most recent entry
// whose Kind is one of kinds, or "" if none exists.
func lastTextSegment(entries []history.Entry, kinds ...history.Kind) string {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !containsKind(kinds, e.Kind) {
			continue
		}
		return truncate(collapseWhitespace.ReplaceAllString(strings.TrimSpace(e.Text), " "))
	}
	return ""
}

func containsKind(kinds []history.Kind, k history.Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// truncate collapses text to at most maxSnippetGraphemes grapheme clusters, ellipsis-suffixed
// if longer (spec.md §4.4: "truncated to 280 characters... with an ellipsis if longer").
func truncate(text string) string {
	return textwidth.TruncateGraphemes(text, maxSnippetGraphemes)
}

// toolGroupsSegment joins the last maxToolGroups tool groups' calls as "name: status", capped
// at maxToolEntries entries total with a trailing ", …" if more exist (spec.md §4.4).
func toolGroupsSegment(entries []history.Entry) string {
	var groups []history.Entry
	for i := len(entries) - 1; i >= 0 && len(groups) < maxToolGroups; i-- {
		if entries[i].Kind == history.KindToolGroup {
			groups = append(groups, entries[i])
		}
	}
	// groups is currently newest-first per group; within Build's intent the oldest-first
	// order reads more naturally, so reverse.
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}

	var all []string
	for _, g := range groups {
		for _, item := range g.ToolGroup {
			all = append(all, fmt.Sprintf("%s: %s", item.Name, strings.ToLower(string(item.Status))))
		}
	}
	if len(all) == 0 {
		return ""
	}

	truncated := false
	if len(all) > maxToolEntries {
		all = all[:maxToolEntries]
		truncated = true
	}

	joined := strings.Join(all, ", ")
	if truncated {
		joined += ", …"
	}
	return joined
}
