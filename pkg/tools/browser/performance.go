package browser

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const navigationTimingScript = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	const r = Math.round;
	if (nav) {
		return {
			type: nav.type,
			redirect_count: nav.redirectCount,
			dns_lookup_ms: r(nav.domainLookupEnd - nav.domainLookupStart),
			tcp_connect_ms: r(nav.connectEnd - nav.connectStart),
			tls_handshake_ms: nav.secureConnectionStart > 0 ? r(nav.connectEnd - nav.secureConnectionStart) : 0,
			request_ms: r(nav.responseStart - nav.requestStart),
			response_ms: r(nav.responseEnd - nav.responseStart),
			ttfb_ms: r(nav.responseStart - nav.fetchStart),
			dom_interactive_ms: r(nav.domInteractive - nav.responseEnd),
			dom_content_loaded_ms: r(nav.domContentLoadedEventEnd - nav.fetchStart),
			dom_complete_ms: r(nav.domComplete - nav.fetchStart),
			load_event_ms: r(nav.loadEventEnd - nav.fetchStart),
			transfer_size_kb: r(nav.transferSize / 1024),
			encoded_body_size_kb: r(nav.encodedBodySize / 1024),
			decoded_body_size_kb: r(nav.decodedBodySize / 1024),
		};
	}
	const t = performance.timing;
	return {
		type: 'legacy',
		dns_lookup_ms: t.domainLookupEnd - t.domainLookupStart,
		tcp_connect_ms: t.connectEnd - t.connectStart,
		request_ms: t.responseStart - t.requestStart,
		response_ms: t.responseEnd - t.responseStart,
		ttfb_ms: t.responseStart - t.navigationStart,
		dom_interactive_ms: t.domInteractive - t.responseEnd,
		dom_content_loaded_ms: t.domContentLoadedEventEnd - t.navigationStart,
		dom_complete_ms: t.domComplete - t.navigationStart,
		load_event_ms: t.loadEventEnd - t.navigationStart,
	};
}`

const resourceTimingScript = `([type, limit]) => performance.getEntriesByType('resource')
	.filter(e => !type || e.initiatorType === type)
	.slice(0, limit)
	.map(e => ({
		url: e.name,
		type: e.initiatorType,
		duration_ms: Math.round(e.duration),
		transfer_size_kb: Math.round(e.transferSize / 1024),
		dns_ms: Math.round(e.domainLookupEnd - e.domainLookupStart),
		tcp_ms: Math.round(e.connectEnd - e.connectStart),
		ttfb_ms: Math.round(e.responseStart - e.requestStart),
		download_ms: Math.round(e.responseEnd - e.responseStart),
		cached: e.transferSize === 0,
	}))`

const performanceMetricsScript = `() => {
	const r = Math.round;
	const nav = performance.getEntriesByType('navigation')[0];
	const paint = {};
	performance.getEntriesByType('paint').forEach(p => { paint[p.name.replace(/-/g, '_') + '_ms'] = r(p.startTime); });
	const resources = performance.getEntriesByType('resource');
	const mem = performance.memory;
	return {
		dom: {
			nodes: document.getElementsByTagName('*').length,
			frames: window.frames.length,
			scripts: document.scripts.length,
			stylesheets: document.styleSheets.length,
			images: document.images.length,
			forms: document.forms.length,
		},
		timing: nav ? {
			ttfb_ms: r(nav.responseStart - nav.fetchStart),
			dom_content_loaded_ms: r(nav.domContentLoadedEventEnd - nav.fetchStart),
			load_ms: r(nav.loadEventEnd - nav.fetchStart),
		} : null,
		paint,
		resources: {
			count: resources.length,
			transfer_kb: r(resources.reduce((sum, e) => sum + (e.transferSize || 0), 0) / 1024),
		},
		memory: mem ? {
			js_heap_used_mb: Math.round(mem.usedJSHeapSize / 10485.76) / 100,
			js_heap_total_mb: Math.round(mem.totalJSHeapSize / 10485.76) / 100,
		} : null,
		uptime_ms: r(performance.now()),
	};
}`

const memoryScript = `() => {
	const mem = performance.memory;
	return {
		js_heap: mem ? {
			limit_mb: Math.round(mem.jsHeapSizeLimit / 1048576),
			total_mb: Math.round(mem.totalJSHeapSize / 1048576),
			used_mb: Math.round(mem.usedJSHeapSize / 1048576),
		} : null,
		device_memory_gb: navigator.deviceMemory ?? null,
		dom_nodes: document.getElementsByTagName('*').length,
		event_listeners_hint: document.querySelectorAll('[onclick],[onload],[onchange],[oninput]').length,
	};
}`

const longTaskScript = `() => {
	const supported = (PerformanceObserver.supportedEntryTypes || []).includes('longtask');
	const tasks = performance.getEntriesByType('longtask').map(e => ({
		name: e.name,
		start_time_ms: Math.round(e.startTime),
		duration_ms: Math.round(e.duration),
		attribution: (e.attribution || []).map(a => ({name: a.name, container_type: a.containerType, container_name: a.containerName})),
	}));
	return {supported, tasks};
}`

// perfSampleScript gathers what assessPerformance needs in one round trip.
const perfSampleScript = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	const lcp = performance.getEntriesByType('largest-contentful-paint');
	const shifts = performance.getEntriesByType('layout-shift');
	return {
		url: location.href,
		has_navigation: !!nav,
		ttfb_ms: nav ? nav.responseStart - nav.fetchStart : 0,
		dom_content_loaded_ms: nav ? nav.domContentLoadedEventEnd - nav.fetchStart : 0,
		load_ms: nav ? nav.loadEventEnd - nav.fetchStart : 0,
		transfer_kb: nav ? nav.transferSize / 1024 : 0,
		lcp_ms: lcp.length ? lcp[lcp.length - 1].startTime : -1,
		cls: shifts.length ? shifts.reduce((sum, e) => sum + (e.hadRecentInput ? 0 : e.value), 0) : -1,
		resources: performance.getEntriesByType('resource').map(e => ({
			url: e.name,
			type: e.initiatorType,
			duration_ms: e.duration,
			size: e.transferSize || 0,
			start_ms: e.startTime,
			render_blocking: e.renderBlockingStatus || '',
		})),
	};
}`

// ResourceTiming is one entry of the page's resource timeline.
type ResourceTiming struct {
	URL            string  `json:"url"`
	Type           string  `json:"type"`
	DurationMS     float64 `json:"duration_ms"`
	TransferSizeKB float64 `json:"transfer_size_kb"`
	DNSMS          float64 `json:"dns_ms"`
	TCPMS          float64 `json:"tcp_ms"`
	TTFBMS         float64 `json:"ttfb_ms"`
	DownloadMS     float64 `json:"download_ms"`
	Cached         bool    `json:"cached"`
}

// ResourceSummary aggregates resource timings.
type ResourceSummary struct {
	Total           int            `json:"total_resources"`
	TotalSizeKB     float64        `json:"total_size_kb"`
	TotalDurationMS float64        `json:"total_duration_ms"`
	Cached          int            `json:"cached"`
	ByType          map[string]int `json:"by_type"`
	Slowest         string         `json:"slowest,omitempty"`
}

type resourceTimingParams struct {
	TabTarget
	ResourceType string `json:"resource_type"`
	Limit        int    `json:"limit"`
}

func (s *toolset) performanceTools() []tools.Tool {
	return []tools.Tool{
		tools.New("get_navigation_timing",
			"Return the page load timing breakdown: DNS, connect, TLS, TTFB, DOM and load event.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getNavigationTiming),

		tools.New("get_performance_metrics",
			"Return DOM, paint, navigation, resource and memory counters for the page.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getPerformanceMetrics),

		tools.New("get_memory_info",
			"Return JavaScript heap usage where the browser exposes it, with DOM size as a proxy.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getMemoryInfo),

		tools.New("get_long_tasks",
			"Return main-thread tasks longer than 50ms and the total blocking time.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getLongTasks),

		tools.New("analyze_performance",
			"Score page performance from load timing, LCP, CLS and resources, listing issues and recommendations.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.analyzePerformance),

		tools.New("get_resource_timing",
			"Return per-resource timings with a summary by initiator type.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"resource_type": tools.String("Initiator type filter: script, link, img, css, fetch, xmlhttprequest, ..."),
				"limit":         tools.IntegerRange("Maximum entries (default 50)", 1, 1000),
			}), nil),
			s.getResourceTiming),
	}
}

func (s *toolset) getNavigationTiming(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	timing, err := call(ctx, tab, func() (interface{}, error) { return tab.Page.Evaluate(navigationTimingScript) })
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": tab.Page.URL(), "timing": timing}, nil
}

// summarize aggregates resources.
func summarize(resources []ResourceTiming) ResourceSummary {
	sum := ResourceSummary{Total: len(resources), ByType: map[string]int{}}
	var slowest float64
	for _, r := range resources {
		sum.TotalSizeKB += r.TransferSizeKB
		sum.TotalDurationMS += r.DurationMS
		if r.Cached {
			sum.Cached++
		}
		t := r.Type
		if t == "" {
			t = "other"
		}
		sum.ByType[t]++
		if r.DurationMS > slowest {
			slowest = r.DurationMS
			sum.Slowest = r.URL
		}
	}
	return sum
}

func (s *toolset) getResourceTiming(ctx context.Context, p resourceTimingParams) (any, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	raw, err := call(ctx, tab, func() (interface{}, error) {
		return tab.Page.Evaluate(resourceTimingScript, []interface{}{p.ResourceType, limit})
	})
	if err != nil {
		return nil, err
	}
	resources := resourceTimings(raw)
	return map[string]any{"summary": summarize(resources), "resources": resources}, nil
}

// resourceTimings converts the evaluated array into typed entries.
func resourceTimings(raw any) []ResourceTiming {
	items, _ := raw.([]interface{})
	out := make([]ResourceTiming, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		cached, _ := m["cached"].(bool)
		out = append(out, ResourceTiming{
			URL:            str(m, "url"),
			Type:           str(m, "type"),
			DurationMS:     num(m, "duration_ms"),
			TransferSizeKB: num(m, "transfer_size_kb"),
			DNSMS:          num(m, "dns_ms"),
			TCPMS:          num(m, "tcp_ms"),
			TTFBMS:         num(m, "ttfb_ms"),
			DownloadMS:     num(m, "download_ms"),
			Cached:         cached,
		})
	}
	return out
}

// evalTab evaluates script on the target tab.
func (s *toolset) evalTab(ctx context.Context, target TabTarget, script string, args ...interface{}) (*Tab, any, error) {
	tab, err := s.page(target)
	if err != nil {
		return nil, nil, err
	}
	v, err := call(ctx, tab, func() (interface{}, error) { return tab.Page.Evaluate(script, args...) })
	if err != nil {
		return nil, nil, err
	}
	return tab, v, nil
}

func (s *toolset) getPerformanceMetrics(ctx context.Context, p tabParams) (any, error) {
	tab, v, err := s.evalTab(ctx, p.TabTarget, performanceMetricsScript)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": tab.Page.URL(), "tab_id": tab.ID, "metrics": v}, nil
}

func (s *toolset) getMemoryInfo(ctx context.Context, p tabParams) (any, error) {
	tab, v, err := s.evalTab(ctx, p.TabTarget, memoryScript)
	if err != nil {
		return nil, err
	}
	info, _ := v.(map[string]interface{})
	if info == nil {
		info = map[string]interface{}{}
	}
	info["heap_available"] = info["js_heap"] != nil
	info["tab_id"] = tab.ID
	return info, nil
}

// LongTask is a main-thread task over 50ms.
type LongTask struct {
	Name        string           `json:"name"`
	StartTimeMS float64          `json:"start_time_ms"`
	DurationMS  float64          `json:"duration_ms"`
	Attribution []map[string]any `json:"attribution,omitempty"`
}

// longTaskBudget is the duration above which a task counts as blocking.
const longTaskBudget = 50

// totalBlockingTime sums the part of each task beyond the 50ms budget.
func totalBlockingTime(tasks []LongTask) float64 {
	var tbt float64
	for _, t := range tasks {
		if t.DurationMS > longTaskBudget {
			tbt += t.DurationMS - longTaskBudget
		}
	}
	return tbt
}

func (s *toolset) getLongTasks(ctx context.Context, p tabParams) (any, error) {
	_, v, err := s.evalTab(ctx, p.TabTarget, longTaskScript)
	if err != nil {
		return nil, err
	}
	raw, _ := v.(map[string]interface{})
	supported, _ := raw["supported"].(bool)
	tasks := []LongTask{}
	items, _ := raw["tasks"].([]interface{})
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		t := LongTask{Name: str(m, "name"), StartTimeMS: num(m, "start_time_ms"), DurationMS: num(m, "duration_ms")}
		if attrs, ok := m["attribution"].([]interface{}); ok {
			for _, a := range attrs {
				if am, ok := a.(map[string]interface{}); ok {
					t.Attribution = append(t.Attribution, am)
				}
			}
		}
		tasks = append(tasks, t)
	}
	tbt := totalBlockingTime(tasks)
	out := map[string]any{
		"supported":              supported,
		"count":                  len(tasks),
		"total_blocking_time_ms": tbt,
		"tasks":                  tasks,
	}
	if tbt > 300 {
		out["warning"] = "high total blocking time may hurt interactivity"
	}
	return out, nil
}

// PerfSample is the raw page data behind analyze_performance.
type PerfSample struct {
	URL                string
	HasNavigation      bool
	TTFBMS             float64
	DOMContentLoadedMS float64
	LoadMS             float64
	TransferKB         float64
	// LCPMS and CLS are negative when the browser reported no entries.
	LCPMS     float64
	CLS       float64
	Resources []ResourceSample
}

// ResourceSample is one resource as seen by the performance analyzers.
type ResourceSample struct {
	URL            string  `json:"url"`
	Type           string  `json:"type"`
	DurationMS     float64 `json:"duration_ms"`
	Size           float64 `json:"size"`
	StartMS        float64 `json:"start_time_ms"`
	RenderBlocking string  `json:"render_blocking,omitempty"`
}

// PerfIssue is one finding of analyze_performance.
type PerfIssue struct {
	Severity  string `json:"severity"`
	Metric    string `json:"metric"`
	Value     string `json:"value"`
	Threshold string `json:"threshold,omitempty"`
	Message   string `json:"message"`
}

// PerfReport is the result of analyze_performance.
type PerfReport struct {
	URL             string         `json:"url"`
	Metrics         map[string]any `json:"metrics"`
	Issues          []PerfIssue    `json:"issues"`
	Recommendations []string       `json:"recommendations"`
	Score           int            `json:"score"`
	Grade           string         `json:"grade"`
}

const (
	slowResourceMS  = 500
	largeResourceKB = 100
	maxRequests     = 100
	perfListLimit   = 5
)

func parsePerfSample(v any) PerfSample {
	m, _ := v.(map[string]interface{})
	hasNav, _ := m["has_navigation"].(bool)
	ps := PerfSample{
		URL:                str(m, "url"),
		HasNavigation:      hasNav,
		TTFBMS:             num(m, "ttfb_ms"),
		DOMContentLoadedMS: num(m, "dom_content_loaded_ms"),
		LoadMS:             num(m, "load_ms"),
		TransferKB:         num(m, "transfer_kb"),
		LCPMS:              num(m, "lcp_ms"),
		CLS:                num(m, "cls"),
	}
	ps.Resources = parseResources(m["resources"])
	return ps
}

func parseResources(v any) []ResourceSample {
	items, _ := v.([]interface{})
	out := make([]ResourceSample, 0, len(items))
	for _, it := range items {
		r, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, ResourceSample{
			URL:            str(r, "url"),
			Type:           str(r, "type"),
			DurationMS:     num(r, "duration_ms"),
			Size:           num(r, "size"),
			StartMS:        num(r, "start_ms"),
			RenderBlocking: str(r, "render_blocking"),
		})
	}
	return out
}

// assessPerformance scores a page the way Lighthouse-style audits do:
// start at 100 and subtract per issue by severity.
func assessPerformance(ps PerfSample) PerfReport {
	rep := PerfReport{URL: ps.URL, Metrics: map[string]any{}, Issues: []PerfIssue{}, Recommendations: []string{}}
	issue := func(sev, metric, value, threshold, msg string) {
		rep.Issues = append(rep.Issues, PerfIssue{Severity: sev, Metric: metric, Value: value, Threshold: threshold, Message: msg})
	}
	recommend := func(r string) { rep.Recommendations = append(rep.Recommendations, r) }

	if ps.HasNavigation {
		ttfb := math.Round(ps.TTFBMS)
		load := math.Round(ps.LoadMS)
		rep.Metrics["ttfb_ms"] = ttfb
		rep.Metrics["dom_content_loaded_ms"] = math.Round(ps.DOMContentLoadedMS)
		rep.Metrics["load_complete_ms"] = load
		rep.Metrics["transfer_size_kb"] = math.Round(ps.TransferKB)
		switch {
		case ttfb > 600:
			issue("high", "TTFB", fmt.Sprintf("%.0fms", ttfb), "< 600ms", "time to first byte is too slow")
			recommend("optimize server response time or serve from a CDN")
		case ttfb > 200:
			issue("medium", "TTFB", fmt.Sprintf("%.0fms", ttfb), "< 200ms ideal", "time to first byte could be improved")
		}
		if load > 3000 {
			issue("high", "Page Load", fmt.Sprintf("%.0fms", load), "< 3000ms", "page load is too slow")
		}
	}

	var totalBytes float64
	byType := map[string]int{}
	var slow, large []ResourceSample
	blocking := 0
	for _, r := range ps.Resources {
		totalBytes += r.Size
		byType[r.Type]++
		if r.DurationMS > slowResourceMS {
			slow = append(slow, r)
		}
		if r.Size > largeResourceKB*1024 {
			large = append(large, r)
		}
		if r.RenderBlocking == "blocking" && (r.Type == "script" || r.Type == "css" || r.Type == "link") {
			blocking++
		}
	}
	rep.Metrics["resource_count"] = len(ps.Resources)
	rep.Metrics["total_transfer_kb"] = math.Round(totalBytes / 1024)
	rep.Metrics["resources_by_type"] = byType

	if len(slow) > 0 {
		sort.SliceStable(slow, func(i, j int) bool { return slow[i].DurationMS > slow[j].DurationMS })
		rep.Metrics["slow_resources"] = firstN(slow, perfListLimit)
		issue("medium", "Slow Resources", fmt.Sprintf("%d resources > %dms", len(slow), slowResourceMS), "", "some resources are loading slowly")
		recommend("optimize or lazy-load slow resources")
	}
	if len(large) > 0 {
		sort.SliceStable(large, func(i, j int) bool { return large[i].Size > large[j].Size })
		rep.Metrics["large_resources"] = firstN(large, perfListLimit)
		issue("medium", "Large Resources", fmt.Sprintf("%d resources > %dKB", len(large), largeResourceKB), "", "some resources are too large")
		recommend("compress images and minify JS/CSS")
	}
	if len(ps.Resources) > maxRequests {
		issue("high", "Request Count", fmt.Sprintf("%d", len(ps.Resources)), fmt.Sprintf("< %d", maxRequests), "too many HTTP requests")
		recommend("bundle resources and use HTTP/2")
	}
	if blocking > 0 {
		rep.Metrics["render_blocking_count"] = blocking
		issue("medium", "Render Blocking", fmt.Sprintf("%d resources", blocking), "", "render-blocking resources detected")
		recommend("defer non-critical scripts and inline critical CSS")
	}

	if ps.LCPMS >= 0 {
		lcp := math.Round(ps.LCPMS)
		rep.Metrics["lcp_ms"] = lcp
		switch {
		case lcp > 4000:
			issue("high", "LCP", fmt.Sprintf("%.0fms", lcp), "< 2500ms good, < 4000ms needs improvement", "largest contentful paint is poor")
		case lcp > 2500:
			issue("medium", "LCP", fmt.Sprintf("%.0fms", lcp), "< 2500ms", "largest contentful paint needs improvement")
		}
	}
	if ps.CLS >= 0 {
		cls := math.Round(ps.CLS*1000) / 1000
		rep.Metrics["cls"] = cls
		switch {
		case cls > 0.25:
			issue("high", "CLS", fmt.Sprintf("%.3f", cls), "< 0.1 good, < 0.25 needs improvement", "cumulative layout shift is poor")
			recommend("set explicit dimensions on images and embeds")
		case cls > 0.1:
			issue("medium", "CLS", fmt.Sprintf("%.3f", cls), "< 0.1", "cumulative layout shift needs improvement")
		}
	}

	score := 100
	for _, is := range rep.Issues {
		switch is.Severity {
		case "high":
			score -= 20
		case "medium":
			score -= 10
		default:
			score -= 5
		}
	}
	rep.Score = max(0, score)
	rep.Grade = grade(rep.Score)
	return rep
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	}
	return "F"
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (s *toolset) analyzePerformance(ctx context.Context, p tabParams) (any, error) {
	_, v, err := s.evalTab(ctx, p.TabTarget, perfSampleScript)
	if err != nil {
		return nil, err
	}
	return assessPerformance(parsePerfSample(v)), nil
}

func str(m map[string]interface{}, k string) string {
	v, _ := m[k].(string)
	return v
}

func num(m map[string]interface{}, k string) float64 {
	switch v := m[k].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
