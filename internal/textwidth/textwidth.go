// Package textwidth wraps grapheme-cluster segmentation and terminal display-width
// calculation, used anywhere text authored by the model or the user needs to be truncated or
// padded without splitting a multi-byte grapheme (e.g. a combining sequence or ZWJ emoji).
package textwidth

import (
	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation. Currently only relevant for East Asian code points and
// their locale.
type Options struct {
	EastAsianWidth   bool // if true, treats CJK code points as 2 columns wide.
	TreatEmojiAsWide bool // only considered if EastAsianWidth; treats emoji as wide (2 columns).
}

// TextWidth returns the display width of str for monospace terminal fonts. If opts is nil,
// locale is assumed to be non-East Asian.
func TextWidth(str string, opts *Options) int {
	return conditionFromOptions(opts).StringWidth(str)
}

// TruncateGraphemes truncates str to at most maxGraphemes grapheme clusters, appending an
// ellipsis ("…") if truncation occurred. Truncating by grapheme cluster (rather than by byte
// or rune) ensures a combining sequence or multi-rune emoji is never split in half.
func TruncateGraphemes(str string, maxGraphemes int) string {
	if maxGraphemes <= 0 {
		return ""
	}

	iter := graphemes.FromString(str)
	count := 0
	cut := len(str)
	truncated := false

	for iter.Next() {
		count++
		if count > maxGraphemes {
			cut = iter.Start()
			truncated = true
			break
		}
	}

	if !truncated {
		return str
	}
	return str[:cut] + "…"
}

func conditionFromOptions(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true

	if opts == nil {
		return cond
	}

	cond.EastAsianWidth = opts.EastAsianWidth
	if opts.EastAsianWidth && opts.TreatEmojiAsWide {
		cond.StrictEmojiNeutral = false
	}

	return cond
}
