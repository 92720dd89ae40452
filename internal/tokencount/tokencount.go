// Package tokencount provides a local token-count estimate, used by the Limit recovery
// category (spec.md §4.3/§10) to size a recommended trim without a model round-trip.
package tokencount

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Count estimates the token count of text using a fixed o200k-base encoding. This is an
// approximation: it does not special-case any one provider's exact tokenizer, but it is close
// enough to guide a recovery prompt's trim-size recommendation (it does not need to match the
// provider's billed count exactly).
//
// On encoder failure (should not happen for a valid built-in encoding), falls back to a
// conservative characters/4 estimate.
func Count(text string) int {
	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return len(text) / 4
	}

	count, err := enc.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// EstimateTrimSuggestion returns a human-readable suggestion for how much of text (in
// characters, counted from the end) to keep to come in under targetTokens, used by the
// SessionTokenLimitExceeded recovery prompt (spec.md §10 supplement).
func EstimateTrimSuggestion(text string, targetTokens int) string {
	current := Count(text)
	if current <= targetTokens || current == 0 {
		return ""
	}

	keepFraction := float64(targetTokens) / float64(current)
	keepChars := int(float64(len(text)) * keepFraction)
	return fmt.Sprintf("roughly the most recent %d characters", keepChars)
}
