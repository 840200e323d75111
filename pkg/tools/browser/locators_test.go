package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorCandidates(t *testing.T) {
	got := locatorCandidates(ElementAttrs{
		Tag:        "button",
		ID:         "submit",
		TestIDAttr: "data-test",
		TestID:     "checkout",
		Role:       "button",
		Text:       "Place order",
	})
	require.Len(t, got, 4)
	assert.Equal(t, LocatorCandidate{Strategy: StrategyTestID, Selector: `[data-test="checkout"]`, Reliability: "high"}, got[0])
	assert.Equal(t, `role=button[name="Place order"]`, got[1].Selector)
	assert.Equal(t, `text="Place order"`, got[2].Selector)
	assert.Equal(t, LocatorCandidate{Strategy: StrategyCSS, Selector: "#submit", Reliability: "high"}, got[3])
}

func TestLocatorCandidatesForInput(t *testing.T) {
	got := locatorCandidates(ElementAttrs{
		Tag:         "input",
		ID:          "field-4821",
		Role:        "textbox",
		AriaLabel:   `Say "hi"`,
		Placeholder: "Email",
		Name:        "email",
	})
	selectors := map[string]string{}
	for _, c := range got {
		selectors[c.Selector] = c.Reliability
	}
	assert.Equal(t, map[string]string{
		`role=textbox[name="Say \"hi\""]`: "high",
		`[placeholder="Email"]`:           "medium",
		`[aria-label="Say \"hi\""]`:       "medium",
		"#field-4821":                     "low",
		`input[name="email"]`:             "medium",
	}, selectors)
}

func TestLocatorCandidatesSkipLongText(t *testing.T) {
	long := "This paragraph is far too long to make a sensible text locator for anything"
	got := locatorCandidates(ElementAttrs{Tag: "p", Text: long})
	assert.Empty(t, got)
}

func TestIDSelector(t *testing.T) {
	assert.Equal(t, "#main", idSelector("main"))
	assert.Equal(t, `[id="1st"]`, idSelector("1st"))
	assert.Equal(t, `[id="a.b"]`, idSelector("a.b"))
}
