package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustNewTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := mustNewTokenizer(t)
	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Greater(t, tok.CountTokens("hello world"), 0)
}

func TestTruncate(t *testing.T) {
	tok := mustNewTokenizer(t)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)

	out, cut := tok.Truncate(text, 10)
	assert.True(t, cut)
	assert.LessOrEqual(t, tok.CountTokens(out), 10)

	out, cut = tok.Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)
}

func TestNilTokenizerEstimates(t *testing.T) {
	var tok *Tokenizer
	assert.Equal(t, 3, tok.CountTokens("abcdefghij"))

	out, cut := tok.Truncate(strings.Repeat("a", 100), 5)
	assert.True(t, cut)
	assert.Len(t, out, 20)

	out, cut = tok.Truncate("abc", 0)
	assert.False(t, cut)
	assert.Equal(t, "abc", out)
}
