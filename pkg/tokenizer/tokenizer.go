// Package tokenizer counts and truncates text by model tokens.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the BPE encoding used for counting.
const Encoding = "cl100k_base"

// charsPerToken is the estimate used when the encoding cannot be loaded.
const charsPerToken = 4

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the cl100k_base encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", Encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

var (
	shared     *Tokenizer
	sharedErr  error
	sharedOnce sync.Once
)

// Default returns a process-wide tokenizer, loading it on first use. A nil
// result means the encoding is unavailable and callers should estimate.
func Default() *Tokenizer {
	sharedOnce.Do(func() {
		shared, sharedErr = New()
	})
	if sharedErr != nil {
		return nil
	}
	return shared
}

// CountTokens returns the number of tokens in text. A nil Tokenizer
// estimates from the character count.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil {
		return (len(text) + charsPerToken - 1) / charsPerToken
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate cuts text to at most max tokens and reports whether it did.
func (t *Tokenizer) Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	if t == nil {
		limit := max * charsPerToken
		if len(text) <= limit {
			return text, false
		}
		return text[:limit], true
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text, false
	}
	return t.enc.Decode(tokens[:max]), true
}
