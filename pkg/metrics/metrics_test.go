package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordToolCall(t *testing.T) {
	c := New()
	for i := 1; i <= 10; i++ {
		c.RecordToolCall("click", time.Duration(i)*time.Millisecond, "", "")
	}
	c.RecordToolCall("click", 100*time.Millisecond, "ElementNotFound", "no element matches #missing")

	snap, ok := c.Tool("click")
	require.True(t, ok)
	assert.Equal(t, 11, snap.CallCount)
	assert.Equal(t, 1, snap.ErrorCount)
	assert.InDelta(t, 9.09, snap.ErrorRatePercent, 0.01)
	assert.InDelta(t, 14.09, snap.AvgDurationMS, 0.01)
	assert.Equal(t, 6.0, snap.P50DurationMS)
	assert.Equal(t, 100.0, snap.P99DurationMS)
	assert.Equal(t, "ElementNotFound", snap.LastErrorKind)
	assert.Equal(t, "no element matches #missing", snap.LastError)
	assert.NotEmpty(t, snap.LastCallTime)

	_, ok = c.Tool("hover")
	assert.False(t, ok)
}

func TestDurationWindowIsBounded(t *testing.T) {
	c := New()
	for i := 0; i < MaxDurationSamples+50; i++ {
		c.RecordToolCall("goto", time.Millisecond, "", "")
	}
	c.mu.Lock()
	n := len(c.tools["goto"].durations)
	c.mu.Unlock()
	assert.Equal(t, MaxDurationSamples, n)
}

func TestSnapshotAndReset(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New()
	c.now = fixedClock(start)
	c.Reset()

	c.RecordLaunch()
	c.RecordPageCreated()
	c.RecordPageClosed()
	c.RecordCrash()
	c.RecordRequest("example.com", "document", false)
	c.RecordRequest("example.com", "script", true)
	c.RecordDroppedEvent()
	c.RecordToolCall("goto", 5*time.Millisecond, "Timeout", "navigation timed out")

	c.now = fixedClock(start.Add(90 * time.Second))
	snap := c.Snapshot()

	assert.Equal(t, 90.0, snap.Server.UptimeSeconds)
	assert.Equal(t, "2026-01-02T03:04:05Z", snap.Server.StartTime)
	assert.Equal(t, 1, snap.Server.TotalRequests)
	assert.Equal(t, 1, snap.Server.TotalErrors)
	assert.Equal(t, 100.0, snap.Server.ErrorRatePercent)
	assert.Equal(t, BrowserSnapshot{Launches: 1, Crashes: 1, PagesCreated: 2, PagesClosed: 1}, snap.Browser)
	assert.Equal(t, 2, snap.Network.RequestsByDomain["example.com"])
	assert.Equal(t, 1, snap.Network.RequestsByType["script"])
	assert.Equal(t, 1, snap.Network.Errors)
	assert.Equal(t, 1, snap.Network.DroppedEvents)
	assert.Contains(t, snap.Tools, "goto")

	c.Reset()
	snap = c.Snapshot()
	assert.Zero(t, snap.Server.TotalRequests)
	assert.Empty(t, snap.Tools)
	assert.Zero(t, snap.Browser.Launches)
	assert.Empty(t, snap.Network.RequestsByDomain)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 99))

	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 5.0, Percentile(sorted, 50))
	assert.Equal(t, 10.0, Percentile(sorted, 95))
	assert.Equal(t, 1.0, Percentile(sorted, 1))
}
