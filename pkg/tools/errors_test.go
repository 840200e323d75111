package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"typed", Errorf(KindUnknownTab, "tab 7"), KindUnknownTab},
		{"wrapped typed", fmt.Errorf("outer: %w", Errorf(KindAlreadyLaunched, "running")), KindAlreadyLaunched},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), KindSessionClosed},
		{"unknown", errors.New("net::ERR_NAME_NOT_RESOLVED"), KindOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, AsError(tt.err).Kind)
		})
	}

	assert.Nil(t, AsError(nil))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", AsError(errors.New("net::ERR_NAME_NOT_RESOLVED")).Message)
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("goto: %w", Errorf(KindTimeout, "navigation exceeded 30000ms"))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrElementNotFound))

	cause := errors.New("driver exploded")
	wrapped := Wrap(KindOperationFailed, cause, "launch")
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "launch: driver exploded", wrapped.Message)
	assert.Equal(t, "OperationFailed: launch: driver exploded", wrapped.Error())
}

func TestEnvelope(t *testing.T) {
	ok := Success(map[string]int{"count": 2})
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ok.JSON(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.NotContains(t, decoded, "error")

	fail := Failure(&Error{Kind: KindElementNotFound, Message: "no #x", Details: map[string]int{"failed_step": 1}})
	decoded = nil
	require.NoError(t, json.Unmarshal(fail.JSON(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	body := decoded["error"].(map[string]any)
	assert.Equal(t, "ElementNotFound", body["kind"])
	assert.Equal(t, "no #x", body["message"])
	assert.Equal(t, float64(1), body["details"].(map[string]any)["failed_step"])

	bad := Success(make(chan int))
	decoded = nil
	require.NoError(t, json.Unmarshal(bad.JSON(), &decoded))
	assert.Equal(t, false, decoded["ok"])
}

func TestDecode(t *testing.T) {
	p, err := Decode[clickParams](nil)
	require.NoError(t, err)
	assert.Equal(t, clickParams{}, p)

	p, err = Decode[clickParams](json.RawMessage(" null "))
	require.NoError(t, err)
	assert.Equal(t, clickParams{}, p)

	_, err = Decode[clickParams](json.RawMessage(`{"selector": []}`))
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}
