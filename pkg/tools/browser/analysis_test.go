package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorStrategy(t *testing.T) {
	assert.Equal(t, StrategyXPath, selectorStrategy("//div[@id='a']"))
	assert.Equal(t, StrategyText, selectorStrategy("text=Sign in"))
	assert.Equal(t, StrategyCSS, selectorStrategy("#login"))
}

func TestSelectorWarnings(t *testing.T) {
	assert.Empty(t, selectorWarnings("#submit"))
	assert.Len(t, selectorWarnings("div.css-1a2b3c4d > span"), 2)
	assert.Len(t, selectorWarnings("#row-123456"), 1)
	assert.Len(t, selectorWarnings("a > b > c > d > e"), 1)
}

func TestSelectorSuggestions(t *testing.T) {
	assert.Equal(t, []string{"no matches: check spelling, or start broader and narrow down"}, selectorSuggestions(0, nil))

	samples := []map[string]any{{
		"id": "login",
		"attributes": []interface{}{
			map[string]interface{}{"name": "class", "value": "btn"},
			map[string]interface{}{"name": "data-testid", "value": "login-btn"},
		},
	}}
	assert.Equal(t, []string{
		"3 matches: add specificity for a unique match",
		"stable alternative: #login",
		`test id available: [data-testid="login-btn"]`,
	}, selectorSuggestions(3, samples))
}

func TestSummarizeResources(t *testing.T) {
	resources := resourceTimings([]interface{}{
		map[string]interface{}{"url": "https://example.com/app.js", "type": "script", "duration_ms": 120.0, "transfer_size_kb": 30.5},
		map[string]interface{}{"url": "https://example.com/logo.png", "type": "img", "duration_ms": 40.0, "cached": true},
		map[string]interface{}{"url": "https://example.com/x", "duration_ms": 5},
		"garbage",
	})
	sum := summarize(resources)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 30.5, sum.TotalSizeKB)
	assert.Equal(t, 165.0, sum.TotalDurationMS)
	assert.Equal(t, 1, sum.Cached)
	assert.Equal(t, map[string]int{"script": 1, "img": 1, "other": 1}, sum.ByType)
	assert.Equal(t, "https://example.com/app.js", sum.Slowest)
}
