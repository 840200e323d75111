// Package metrics keeps in-process counters for tool calls, the browser
// session and observed network traffic. Snapshots are JSON friendly so tools
// can return them directly.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// MaxDurationSamples bounds the per-tool latency window used for percentiles.
const MaxDurationSamples = 1000

type toolStats struct {
	calls         int
	errors        int
	totalMS       float64
	durations     []float64
	lastError     string
	lastErrorKind string
	lastErrorAt   time.Time
	lastCallAt    time.Time
}

// Collector aggregates metrics. The zero value is not usable; call New.
type Collector struct {
	mu sync.Mutex

	now     func() time.Time
	started time.Time

	totalCalls  int
	totalErrors int
	tools       map[string]*toolStats

	launches     int
	crashes      int
	pagesCreated int
	pagesClosed  int

	requestsByDomain map[string]int
	requestsByType   map[string]int
	networkErrors    int
	droppedEvents    int
}

// New returns an empty collector.
func New() *Collector {
	c := &Collector{now: time.Now}
	c.resetLocked()
	return c
}

func (c *Collector) resetLocked() {
	c.started = c.now()
	c.totalCalls = 0
	c.totalErrors = 0
	c.tools = make(map[string]*toolStats)
	c.launches = 0
	c.crashes = 0
	c.pagesCreated = 0
	c.pagesClosed = 0
	c.requestsByDomain = make(map[string]int)
	c.requestsByType = make(map[string]int)
	c.networkErrors = 0
	c.droppedEvents = 0
}

// Reset clears every counter and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// RecordToolCall records one tool invocation. errKind and errMsg are empty on
// success.
func (c *Collector) RecordToolCall(name string, d time.Duration, errKind, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := float64(d) / float64(time.Millisecond)
	now := c.now()

	st, ok := c.tools[name]
	if !ok {
		st = &toolStats{}
		c.tools[name] = st
	}
	c.totalCalls++
	st.calls++
	st.totalMS += ms
	st.lastCallAt = now
	st.durations = append(st.durations, ms)
	if len(st.durations) > MaxDurationSamples {
		st.durations = st.durations[len(st.durations)-MaxDurationSamples:]
	}

	if errKind != "" {
		c.totalErrors++
		st.errors++
		st.lastError = errMsg
		st.lastErrorKind = errKind
		st.lastErrorAt = now
	}
}

// RecordLaunch counts a browser launch and the tab it opens.
func (c *Collector) RecordLaunch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launches++
	c.pagesCreated++
}

// RecordCrash counts a recovery of a crashed or unresponsive browser.
func (c *Collector) RecordCrash() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.crashes++
}

// RecordPageCreated counts a new tab.
func (c *Collector) RecordPageCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagesCreated++
}

// RecordPageClosed counts a closed tab.
func (c *Collector) RecordPageClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagesClosed++
}

// RecordRequest counts an observed network request.
func (c *Collector) RecordRequest(domain, resourceType string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if domain != "" {
		c.requestsByDomain[domain]++
	}
	if resourceType != "" {
		c.requestsByType[resourceType]++
	}
	if failed {
		c.networkErrors++
	}
}

// RecordDroppedEvent counts a driver event discarded because the event queue
// was full.
func (c *Collector) RecordDroppedEvent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.droppedEvents++
}

// ToolSnapshot is the exported view of one tool's metrics.
type ToolSnapshot struct {
	CallCount        int     `json:"call_count"`
	ErrorCount       int     `json:"error_count"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
	AvgDurationMS    float64 `json:"avg_duration_ms"`
	P50DurationMS    float64 `json:"p50_duration_ms"`
	P95DurationMS    float64 `json:"p95_duration_ms"`
	P99DurationMS    float64 `json:"p99_duration_ms"`
	LastError        string  `json:"last_error,omitempty"`
	LastErrorKind    string  `json:"last_error_kind,omitempty"`
	LastErrorTime    string  `json:"last_error_time,omitempty"`
	LastCallTime     string  `json:"last_call_time,omitempty"`
}

// ServerSnapshot summarises every call made since start or the last reset.
type ServerSnapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	StartTime        string  `json:"start_time"`
	TotalRequests    int     `json:"total_requests"`
	TotalErrors      int     `json:"total_errors"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
}

// BrowserSnapshot counts browser lifecycle events.
type BrowserSnapshot struct {
	Launches     int `json:"launches"`
	Crashes      int `json:"crashes"`
	PagesCreated int `json:"pages_created"`
	PagesClosed  int `json:"pages_closed"`
}

// NetworkSnapshot counts observed requests.
type NetworkSnapshot struct {
	RequestsByDomain map[string]int `json:"requests_by_domain"`
	RequestsByType   map[string]int `json:"requests_by_type"`
	Errors           int            `json:"errors"`
	DroppedEvents    int            `json:"dropped_events"`
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Server  ServerSnapshot          `json:"server"`
	Browser BrowserSnapshot         `json:"browser"`
	Network NetworkSnapshot         `json:"network"`
	Tools   map[string]ToolSnapshot `json:"tools"`
}

// Snapshot copies the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Server: ServerSnapshot{
			UptimeSeconds:    round2(c.now().Sub(c.started).Seconds()),
			StartTime:        c.started.UTC().Format(time.RFC3339),
			TotalRequests:    c.totalCalls,
			TotalErrors:      c.totalErrors,
			ErrorRatePercent: rate(c.totalErrors, c.totalCalls),
		},
		Browser: BrowserSnapshot{
			Launches:     c.launches,
			Crashes:      c.crashes,
			PagesCreated: c.pagesCreated,
			PagesClosed:  c.pagesClosed,
		},
		Network: NetworkSnapshot{
			RequestsByDomain: copyCounts(c.requestsByDomain),
			RequestsByType:   copyCounts(c.requestsByType),
			Errors:           c.networkErrors,
			DroppedEvents:    c.droppedEvents,
		},
		Tools: make(map[string]ToolSnapshot, len(c.tools)),
	}
	for name, st := range c.tools {
		s.Tools[name] = st.snapshot()
	}
	return s
}

// Tool returns the metrics of one tool, or false if it was never called.
func (c *Collector) Tool(name string) (ToolSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tools[name]
	if !ok {
		return ToolSnapshot{}, false
	}
	return st.snapshot(), true
}

func (st *toolStats) snapshot() ToolSnapshot {
	sorted := append([]float64(nil), st.durations...)
	sort.Float64s(sorted)

	out := ToolSnapshot{
		CallCount:        st.calls,
		ErrorCount:       st.errors,
		ErrorRatePercent: rate(st.errors, st.calls),
		P50DurationMS:    round2(Percentile(sorted, 50)),
		P95DurationMS:    round2(Percentile(sorted, 95)),
		P99DurationMS:    round2(Percentile(sorted, 99)),
		LastError:        st.lastError,
		LastErrorKind:    st.lastErrorKind,
	}
	if st.calls > 0 {
		out.AvgDurationMS = round2(st.totalMS / float64(st.calls))
	}
	if !st.lastErrorAt.IsZero() {
		out.LastErrorTime = st.lastErrorAt.UTC().Format(time.RFC3339)
	}
	if !st.lastCallAt.IsZero() {
		out.LastCallTime = st.lastCallAt.UTC().Format(time.RFC3339)
	}
	return out
}

// Percentile returns the nearest-rank percentile p (0-100] of an ascending
// slice. An empty slice yields 0.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
