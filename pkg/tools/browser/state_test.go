package browser

import (
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestDiffMaps(t *testing.T) {
	d := diffMaps(
		map[string]string{"keep": "1", "change": "a", "drop": "x"},
		map[string]string{"keep": "1", "change": "b", "new": "y"},
	)
	assert.Equal(t, map[string]string{"new": "y"}, d.Added)
	assert.Equal(t, map[string]string{"drop": "x"}, d.Removed)
	assert.Equal(t, map[string][2]string{"change": {"a", "b"}}, d.Changed)
	assert.True(t, diffMaps(nil, map[string]string{}).Empty())
}

func TestCompareStates(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	before := StateSnapshot{
		ID:           "checkout",
		TakenAt:      at,
		Cookies:      map[string]string{"sid@example.com": "1"},
		LocalStorage: map[string]string{},
		DOM:          DOMSummary{URL: "https://example.com/cart", ElementCount: 100},
		RequestsSeen: 4,
	}
	after := before
	after.TakenAt = at.Add(1500 * time.Millisecond)
	after.Cookies = map[string]string{"sid@example.com": "2"}
	after.LocalStorage = map[string]string{"order": "42"}
	after.DOM = DOMSummary{URL: "https://example.com/done", ElementCount: 60}
	after.RequestsSeen = 9

	d := compareStates(before, after)
	assert.True(t, d.Changed)
	assert.Equal(t, int64(1500), d.ElapsedMS)
	assert.Equal(t, int64(5), d.NewRequests)
	assert.Equal(t, [2]any{100, 60}, d.DOM["element_count"])
	assert.Equal(t, []string{
		"cookies: +0 -0 ~1",
		"localStorage: +1 -0 ~0",
		"navigated from https://example.com/cart to https://example.com/done",
		"element count 100 -> 60",
		"5 new requests",
	}, d.Summary)

	same := compareStates(before, before)
	assert.False(t, same.Changed)
	assert.Empty(t, same.Summary)
}

func TestSnapshotAndDiffState(t *testing.T) {
	h := newHarness(t)
	fc := h.launch()

	_, err := h.call("diff_state", map[string]any{})
	assert.Equal(t, tools.KindPreconditionViolation, kindOf(t, err))

	res := h.mustCall("snapshot_state", map[string]any{}).(map[string]any)
	assert.Equal(t, "default", res["snapshot_id"])

	h.mustCall("set_local_storage", map[string]any{"key": "cart", "value": "3"})
	require.NoError(t, fc.AddCookies([]playwright.OptionalCookie{{Name: "sid", Value: "abc", Domain: playwright.String("example.com")}}))
	fc.page(0).addElement("#receipt")

	d := h.mustCall("diff_state", map[string]any{}).(StateDiff)
	assert.True(t, d.Changed)
	assert.Equal(t, map[string]string{"cart": "3"}, d.LocalStorage.Added)
	assert.Equal(t, map[string]string{"sid@example.com": "abc"}, d.Cookies.Added)
	assert.Equal(t, [2]any{10, 11}, d.DOM["element_count"])

	_, err = h.call("diff_state", map[string]any{"snapshot_id": "other"})
	require.Error(t, err)
	assert.Equal(t, tools.KindPreconditionViolation, tools.KindOf(err))
	assert.Contains(t, err.Error(), "default")
}

func TestSnapshotsDroppedOnClose(t *testing.T) {
	h := newHarness(t)
	h.launch()
	h.mustCall("snapshot_state", map[string]any{"snapshot_id": "a"})
	h.mustCall("close_browser", map[string]any{})
	h.launch()

	_, err := h.call("diff_state", map[string]any{"snapshot_id": "a"})
	assert.Equal(t, tools.KindPreconditionViolation, kindOf(t, err))
}
