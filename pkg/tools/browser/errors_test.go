package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want tools.Kind
	}{
		{"locator timeout", errors.New("Timeout 5000ms exceeded.\nCall log:\n  - waiting for locator('#go')"), tools.KindElementNotFound},
		{"navigation timeout", errors.New("page.goto: Timeout 30000ms exceeded."), tools.KindTimeout},
		{"wrapped timeout", fmt.Errorf("goto: %w", playwright.ErrTimeout), tools.KindTimeout},
		{"target closed", errors.New("Target page, context or browser has been closed"), tools.KindSessionClosed},
		{"bad selector", errors.New("'div[' is not a valid selector"), tools.KindInvalidArgument},
		{"selector syntax", errors.New("DOMException: SyntaxError: Failed to execute 'querySelectorAll': 'div[' is not a valid selector"), tools.KindInvalidArgument},
		{"strict mode", errors.New("strict mode violation: locator('a') resolved to 3 elements"), tools.KindInvalidArgument},
		{"bad url", errors.New("Cannot navigate to invalid URL"), tools.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, tools.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyScriptSyntaxError(t *testing.T) {
	err := Classify(errors.New("SyntaxError: unexpected token: ')'"))
	assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err))
	assert.Contains(t, err.Error(), "script syntax error")
	assert.NotContains(t, err.Error(), "malformed selector")

	err = Classify(errors.New("Error while parsing selector `div >> ` - unexpected token"))
	assert.Contains(t, err.Error(), "malformed selector")
}

func TestClassifyPassThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))

	already := tools.Errorf(tools.KindUnknownTab, "no tab 9")
	assert.Same(t, already, Classify(fmt.Errorf("wrapped: %w", already)))

	plain := errors.New("something odd")
	assert.Equal(t, plain, Classify(plain))
}
