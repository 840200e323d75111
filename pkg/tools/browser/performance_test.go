package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalBlockingTime(t *testing.T) {
	assert.Equal(t, 0.0, totalBlockingTime(nil))
	assert.Equal(t, 0.0, totalBlockingTime([]LongTask{{DurationMS: 50}}))
	assert.Equal(t, 180.0, totalBlockingTime([]LongTask{{DurationMS: 80}, {DurationMS: 200}, {DurationMS: 20}}))
}

func TestAssessPerformanceClean(t *testing.T) {
	rep := assessPerformance(PerfSample{
		URL:           "https://example.com/",
		HasNavigation: true,
		TTFBMS:        120,
		LoadMS:        900,
		LCPMS:         -1,
		CLS:           -1,
		Resources:     []ResourceSample{{URL: "https://example.com/a.js", Type: "script", DurationMS: 40, Size: 2048}},
	})
	assert.Empty(t, rep.Issues)
	assert.Equal(t, 100, rep.Score)
	assert.Equal(t, "A", rep.Grade)
	assert.Equal(t, 120.0, rep.Metrics["ttfb_ms"])
	assert.NotContains(t, rep.Metrics, "lcp_ms")
	assert.NotContains(t, rep.Metrics, "cls")
}

func TestAssessPerformanceMedium(t *testing.T) {
	rep := assessPerformance(PerfSample{HasNavigation: true, TTFBMS: 300, LoadMS: 1000, LCPMS: 1200, CLS: 0.15})
	require.Len(t, rep.Issues, 2)
	assert.Equal(t, "TTFB", rep.Issues[0].Metric)
	assert.Equal(t, "medium", rep.Issues[0].Severity)
	assert.Equal(t, "CLS", rep.Issues[1].Metric)
	assert.Equal(t, 80, rep.Score)
	assert.Equal(t, "B", rep.Grade)
}

func TestAssessPerformancePoor(t *testing.T) {
	rep := assessPerformance(PerfSample{
		HasNavigation: true,
		TTFBMS:        700,
		LoadMS:        3500,
		LCPMS:         4500,
		CLS:           0.3,
		Resources: []ResourceSample{
			{URL: "https://example.com/slow.js", Type: "script", DurationMS: 800, Size: 1024, RenderBlocking: "blocking"},
			{URL: "https://example.com/hero.jpg", Type: "img", DurationMS: 100, Size: 300 * 1024},
		},
	})
	severities := map[string]string{}
	for _, is := range rep.Issues {
		severities[is.Metric] = is.Severity
	}
	assert.Equal(t, map[string]string{
		"TTFB":            "high",
		"Page Load":       "high",
		"Slow Resources":  "medium",
		"Large Resources": "medium",
		"Render Blocking": "medium",
		"LCP":             "high",
		"CLS":             "high",
	}, severities)
	assert.Equal(t, 0, rep.Score)
	assert.Equal(t, "F", rep.Grade)
	assert.NotEmpty(t, rep.Recommendations)
	assert.Equal(t, 1, rep.Metrics["render_blocking_count"])
}

func TestAssessPerformanceRequestCount(t *testing.T) {
	resources := make([]ResourceSample, 101)
	rep := assessPerformance(PerfSample{LCPMS: -1, CLS: -1, Resources: resources})
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "Request Count", rep.Issues[0].Metric)
	assert.Equal(t, "high", rep.Issues[0].Severity)
	assert.Equal(t, "B", rep.Grade)
}

func TestGrade(t *testing.T) {
	for score, want := range map[int]string{100: "A", 90: "A", 85: "B", 70: "C", 60: "D", 59: "F", 0: "F"} {
		assert.Equal(t, want, grade(score), score)
	}
}

func TestParsePerfSample(t *testing.T) {
	ps := parsePerfSample(map[string]interface{}{
		"url":            "https://example.com/",
		"has_navigation": true,
		"ttfb_ms":        250.5,
		"lcp_ms":         -1,
		"cls":            0.02,
		"resources": []interface{}{
			map[string]interface{}{"url": "https://example.com/a.css", "type": "link", "duration_ms": 30.0, "size": 512.0, "render_blocking": "blocking"},
			"garbage",
		},
	})
	assert.True(t, ps.HasNavigation)
	assert.Equal(t, 250.5, ps.TTFBMS)
	assert.Equal(t, -1.0, ps.LCPMS)
	require.Len(t, ps.Resources, 1)
	assert.Equal(t, "blocking", ps.Resources[0].RenderBlocking)
}
