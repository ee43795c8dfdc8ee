// Package tokenizer counts and trims tokens so tool output fits the model's
// context. It uses the cl100k_base encoding and falls back to a
// characters-per-token estimate when the encoding cannot be loaded.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoding is the BPE used by the gpt-4o family.
	DefaultEncoding = "cl100k_base"

	charsPerToken = 4
)

// Tokenizer counts tokens. A Tokenizer without an encoding estimates.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", DefaultEncoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// NewEstimator returns a Tokenizer that only estimates.
func NewEstimator() *Tokenizer {
	return &Tokenizer{}
}

// NewOrEstimate loads the encoding or falls back to estimating.
func NewOrEstimate() *Tokenizer {
	t, err := New()
	if err != nil {
		return NewEstimator()
	}
	return t
}

// Exact reports whether counts come from a real encoding.
func (t *Tokenizer) Exact() bool {
	return t != nil && t.enc != nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if !t.Exact() {
		return (len(text) + charsPerToken - 1) / charsPerToken
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate shortens text to at most maxTokens tokens and reports whether it
// cut anything. maxTokens <= 0 disables truncation.
func (t *Tokenizer) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || text == "" {
		return text, false
	}
	if !t.Exact() {
		maxChars := maxTokens * charsPerToken
		if len(text) <= maxChars {
			return text, false
		}
		return validUTF8Prefix(text, maxChars), true
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return t.enc.Decode(tokens[:maxTokens]), true
}

// validUTF8Prefix cuts s to at most n bytes without splitting a rune.
func validUTF8Prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
