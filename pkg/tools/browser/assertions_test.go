package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestCheckExpectation(t *testing.T) {
	tests := []struct {
		name    string
		params  expectParams
		wantErr bool
	}{
		{"state", expectParams{Assertion: "visible"}, false},
		{"text with expected", expectParams{Assertion: "has_text", Expected: "Welcome"}, false},
		{"text without expected", expectParams{Assertion: "has_text"}, true},
		{"class without expected", expectParams{Assertion: "has_class"}, true},
		{"attribute named", expectParams{Assertion: "has_attribute", Attribute: "aria-busy"}, false},
		{"attribute unnamed", expectParams{Assertion: "has_attribute", Expected: "true"}, true},
		{"unknown", expectParams{Assertion: "shiny"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkExpectation(tt.params)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
		})
	}
}

func TestTextAndClassMatching(t *testing.T) {
	assert.True(t, textMatches("  Hello world ", "world", false))
	assert.False(t, textMatches("  Hello world ", "world", true))
	assert.True(t, textMatches("  Hello world ", "Hello world", true))

	assert.True(t, hasClass("btn btn-primary active", "active"))
	assert.False(t, hasClass("btn btn-primary", "btn-pri"))
	assert.False(t, hasClass("", "btn"))
}

func TestCheckOrder(t *testing.T) {
	assert.Equal(t, -1, checkOrder(nil))
	assert.Equal(t, -1, checkOrder([]ListItem{{Y: 10}, {Y: 40}, {Y: 80}}))
	// same row, left to right
	assert.Equal(t, -1, checkOrder([]ListItem{{X: 0, Y: 10}, {X: 120, Y: 11}}))
	assert.Equal(t, 1, checkOrder([]ListItem{{X: 120, Y: 10}, {X: 0, Y: 10}}))
	assert.Equal(t, 2, checkOrder([]ListItem{{Y: 10}, {Y: 40}, {Y: 20}}))
}

func TestExpectElement(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()
	fc.page(0).addElement("#banner")

	res := h.mustCall("expect_element", map[string]any{"selector": "#banner", "assertion": "visible"}).(Verification)
	assert.True(t, res.Passed)

	res = h.mustCall("expect_element", map[string]any{"selector": "#gone", "assertion": "attached", "timeout": 100}).(Verification)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Message, "did not become attached")

	res = h.mustCall("expect_element", map[string]any{"selector": "#gone", "assertion": "has_text", "expected": "x", "timeout": 100}).(Verification)
	assert.False(t, res.Passed)
	assert.Equal(t, "no element matches #gone", res.Message)

	_, err := h.call("expect_element", map[string]any{"selector": "#banner", "assertion": "sparkly"})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))
}

func TestVerifyListVisibleRejectsEmpty(t *testing.T) {
	h := newHarness(t)

	_, err := h.call("verify_list_visible", map[string]any{"items": []string{}})
	assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err))

	_, err = h.call("verify_list_visible", map[string]any{"items": []string{"a", " "}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[1]")
}
