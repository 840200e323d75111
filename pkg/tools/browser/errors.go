package browser

import (
	"errors"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// Classify maps driver errors onto the tool error taxonomy. Errors that are
// already classified pass through unchanged; unrecognised errors are returned
// as-is so the registry reports them as OperationFailed with the driver's
// message intact.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var te *tools.Error
	if errors.As(err, &te) {
		return te
	}

	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, playwright.ErrTargetClosed) || containsAny(lower,
		"target closed",
		"target page, context or browser has been closed",
		"browser has been closed",
		"page has been closed",
		"browser has disconnected"):
		return tools.Wrap(tools.KindSessionClosed, err, "browser or tab closed")

	case errors.Is(err, playwright.ErrTimeout) || (strings.Contains(lower, "timeout") && strings.Contains(lower, "exceeded")):
		if containsAny(lower, "waiting for locator", "waiting for selector", "waiting for get_by", "waiting for frame") {
			return tools.Wrap(tools.KindElementNotFound, err, "element not found")
		}
		return tools.Wrap(tools.KindTimeout, err, "operation timed out")

	case strings.Contains(lower, "syntaxerror") && !strings.Contains(lower, "selector"):
		return tools.Wrap(tools.KindInvalidArgument, err, "script syntax error")

	case containsAny(lower,
		"is not a valid selector",
		"unknown engine",
		"error while parsing selector",
		"failed to parse selector",
		"invalid selector"):
		return tools.Wrap(tools.KindInvalidArgument, err, "malformed selector")

	case strings.Contains(lower, "strict mode violation"):
		return tools.Wrap(tools.KindInvalidArgument, err, "selector matches more than one element")

	case containsAny(lower, "cannot navigate to invalid url", "invalid url"):
		return tools.Wrap(tools.KindInvalidArgument, err, "invalid url")
	}
	return err
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
