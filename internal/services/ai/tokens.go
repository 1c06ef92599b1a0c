package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used to count prompt tokens
const DefaultEncoding = "cl100k_base"

// TokenBudget counts and truncates prompt input by tokens. When no encoder
// is available it falls back to a four-characters-per-token estimate.
type TokenBudget struct {
	enc *tiktoken.Tiktoken
}

// NewTokenBudget loads the default encoding. Loading can fail offline, in
// which case the returned budget estimates.
func NewTokenBudget() *TokenBudget {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return &TokenBudget{}
	}
	return &TokenBudget{enc: enc}
}

// EstimatedTokenBudget returns a budget that never loads an encoder
func EstimatedTokenBudget() *TokenBudget {
	return &TokenBudget{}
}

// Count returns the number of tokens in text
func (b *TokenBudget) Count(text string) int {
	if b == nil || b.enc == nil {
		return estimateTokenCount(text)
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Truncate shortens text to at most maxTokens tokens
func (b *TokenBudget) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || b.Count(text) <= maxTokens {
		return text
	}
	if b == nil || b.enc == nil {
		runes := []rune(text)
		if limit := maxTokens * 4; limit < len(runes) {
			return string(runes[:limit])
		}
		return text
	}
	tokens := b.enc.Encode(text, nil, nil)
	return b.enc.Decode(tokens[:maxTokens])
}

// estimateTokenCount uses a rough ~4 characters per token heuristic
func estimateTokenCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len([]rune(text)) + 3) / 4
}
