package browser

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// NetworkEntry is one observed request and, once it arrives, its response.
type NetworkEntry struct {
	Seq             int64              `json:"seq"`
	TabID           string             `json:"tab_id"`
	URL             string             `json:"url"`
	Method          string             `json:"method"`
	ResourceType    string             `json:"resource_type,omitempty"`
	Status          int                `json:"status,omitempty"`
	StatusText      string             `json:"status_text,omitempty"`
	RequestHeaders  map[string]string  `json:"request_headers,omitempty"`
	ResponseHeaders map[string]string  `json:"response_headers,omitempty"`
	RequestBody     string             `json:"request_body,omitempty"`
	ResponseBody    string             `json:"response_body,omitempty"`
	Failure         string             `json:"failure,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	ResponseTime    *time.Time         `json:"response_time,omitempty"`
	DurationMS      float64            `json:"duration_ms,omitempty"`
	Timing          map[string]float64 `json:"timing,omitempty"`
}

// Completed reports whether a response or a failure has been recorded.
func (e NetworkEntry) Completed() bool {
	return e.Status != 0 || e.Failure != ""
}

// ResponseData is what the event pump knows about a response.
type ResponseData struct {
	TabID      string
	URL        string
	Status     int
	StatusText string
	Headers    map[string]string
	Timing     map[string]float64
	At         time.Time
}

// Phase selects which network events a subscription observes.
type Phase int

const (
	PhaseRequest Phase = iota
	PhaseResponse
)

// Observation is delivered to subscribers. Response carries the driver's
// response object when one exists, so a waiter can fetch the body itself.
type Observation struct {
	Entry    NetworkEntry
	Response any
}

type subscription struct {
	phase Phase
	tabID string
	match func(NetworkEntry) bool
	ch    chan Observation
}

// NetworkLog is a bounded, ordered buffer of network entries. It has its own
// lock: the event pump appends to it without touching tab state.
type NetworkLog struct {
	mu sync.Mutex

	maxEntries int
	maxBody    int

	entries []*NetworkEntry
	pending map[any]*NetworkEntry
	nextSeq int64

	subs    map[int]*subscription
	nextSub int
}

// NewNetworkLog creates a log holding at most maxEntries entries, with
// bodies truncated to maxBody bytes.
func NewNetworkLog(maxEntries, maxBody int) *NetworkLog {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &NetworkLog{
		maxEntries: maxEntries,
		maxBody:    maxBody,
		pending:    make(map[any]*NetworkEntry),
		subs:       make(map[int]*subscription),
	}
}

// AddRequest records a new request keyed by the driver's request identity.
// When capture is off the entry is not stored, but subscribers still see it.
func (l *NetworkLog) AddRequest(key any, e NetworkEntry, capture bool) NetworkEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	e.Seq = l.nextSeq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.RequestBody = l.truncate(e.RequestBody)

	if capture {
		if len(l.entries) >= l.maxEntries {
			l.evictLocked()
		}
		stored := e
		l.entries = append(l.entries, &stored)
		if key != nil {
			l.pending[key] = &stored
		}
	}
	l.notifyLocked(PhaseRequest, Observation{Entry: e})
	return e
}

func (l *NetworkLog) evictLocked() {
	oldest := l.entries[0]
	for k, p := range l.pending {
		if p == oldest {
			delete(l.pending, k)
		}
	}
	l.entries[0] = nil
	l.entries = l.entries[1:]
}

// CompleteResponse pairs a response with its request. Pairing is by request
// identity; only a response without one falls back to the newest open entry
// with the same tab and URL. The response is delivered to subscribers even if
// no stored entry matched.
func (l *NetworkLog) CompleteResponse(key any, r ResponseData, raw any) NetworkEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}

	entry := l.findOpenLocked(key, r.TabID, r.URL)
	if entry == nil {
		l.nextSeq++
		synthetic := NetworkEntry{
			Seq:       l.nextSeq,
			TabID:     r.TabID,
			URL:       r.URL,
			Timestamp: at,
		}
		entry = &synthetic
	}
	entry.Status = r.Status
	entry.StatusText = r.StatusText
	entry.ResponseHeaders = r.Headers
	entry.ResponseTime = &at
	if len(r.Timing) > 0 {
		entry.Timing = r.Timing
	}
	entry.DurationMS = durationMS(entry)

	out := *entry
	l.notifyLocked(PhaseResponse, Observation{Entry: out, Response: raw})
	return out
}

// Fail marks a request as failed.
func (l *NetworkLog) Fail(key any, tabID, rawURL, failure string) (NetworkEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.findOpenLocked(key, tabID, rawURL)
	if entry == nil {
		return NetworkEntry{}, false
	}
	if failure == "" {
		failure = "request failed"
	}
	entry.Failure = failure
	now := time.Now()
	entry.ResponseTime = &now
	entry.DurationMS = durationMS(entry)
	return *entry, true
}

// findOpenLocked returns the stored entry a response or failure belongs to.
// A keyed event whose request was never stored, or was evicted, matches
// nothing.
func (l *NetworkLog) findOpenLocked(key any, tabID, rawURL string) *NetworkEntry {
	if key != nil {
		e, ok := l.pending[key]
		if ok {
			delete(l.pending, key)
		}
		return e
	}
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.TabID == tabID && e.URL == rawURL && !e.Completed() {
			for k, p := range l.pending {
				if p == e {
					delete(l.pending, k)
				}
			}
			return e
		}
	}
	return nil
}

func durationMS(e *NetworkEntry) float64 {
	if start, ok := e.Timing["requestStart"]; ok {
		if end, ok := e.Timing["responseEnd"]; ok && end >= start && start >= 0 {
			return end - start
		}
	}
	if e.ResponseTime != nil {
		return float64(e.ResponseTime.Sub(e.Timestamp).Microseconds()) / 1000
	}
	return 0
}

// AttachBody stores a response body fetched after the response event.
func (l *NetworkLog) AttachBody(seq int64, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Seq == seq {
			l.entries[i].ResponseBody = l.truncate(body)
			return
		}
	}
}

func (l *NetworkLog) truncate(body string) string {
	if l.maxBody > 0 && len(body) > l.maxBody {
		return body[:l.maxBody]
	}
	return body
}

// Len returns the number of stored entries.
func (l *NetworkLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Seen returns how many requests the log has observed, stored or not,
// since it was created.
func (l *NetworkLog) Seen() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Entries returns a copy of every stored entry in capture order.
func (l *NetworkLog) Entries() []NetworkEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NetworkEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// Clear drops every entry and returns how many were removed. Subscriptions
// are left alone.
func (l *NetworkLog) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	l.entries = nil
	l.pending = make(map[any]*NetworkEntry)
	return n
}

// Filter selects entries in Query. Zero fields match everything.
type Filter struct {
	URLContains  string
	URLRegex     string
	URLGlob      string
	Method       string
	Status       int
	StatusMin    int
	StatusMax    int
	ResourceType string
	TabID        string
	// Limit keeps only the most recent matches. Zero means no limit.
	Limit int
}

func (f Filter) compile() (func(NetworkEntry) bool, error) {
	var re *regexp.Regexp
	if f.URLRegex != "" {
		var err error
		if re, err = regexp.Compile(f.URLRegex); err != nil {
			return nil, tools.Errorf(tools.KindInvalidArgument, "invalid url_regex: %v", err)
		}
	}
	var g glob.Glob
	if f.URLGlob != "" {
		var err error
		if g, err = glob.Compile(f.URLGlob); err != nil {
			return nil, tools.Errorf(tools.KindInvalidArgument, "invalid url_glob: %v", err)
		}
	}
	if f.StatusMin > 0 && f.StatusMax > 0 && f.StatusMin > f.StatusMax {
		return nil, tools.Errorf(tools.KindInvalidArgument, "status_min %d exceeds status_max %d", f.StatusMin, f.StatusMax)
	}

	method := strings.ToUpper(f.Method)
	urlSub := strings.ToLower(f.URLContains)
	return func(e NetworkEntry) bool {
		switch {
		case urlSub != "" && !strings.Contains(strings.ToLower(e.URL), urlSub):
			return false
		case re != nil && !re.MatchString(e.URL):
			return false
		case g != nil && !g.Match(e.URL):
			return false
		case method != "" && e.Method != method:
			return false
		case f.Status != 0 && e.Status != f.Status:
			return false
		case f.StatusMin != 0 && e.Status < f.StatusMin:
			return false
		case f.StatusMax != 0 && e.Status > f.StatusMax:
			return false
		case f.ResourceType != "" && e.ResourceType != f.ResourceType:
			return false
		case f.TabID != "" && e.TabID != f.TabID:
			return false
		}
		return true
	}, nil
}

// Query returns the entries matching f in capture order.
func (l *NetworkLog) Query(f Filter) ([]NetworkEntry, error) {
	match, err := f.compile()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []NetworkEntry
	for _, e := range l.entries {
		if match(*e) {
			out = append(out, *e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// URL match modes for waits.
const (
	MatchSubstring = "substring"
	MatchRegex     = "regex"
	MatchGlob      = "glob"
)

// URLMatcher compiles a URL pattern in the given mode. An empty mode means
// substring.
func URLMatcher(pattern, mode string) (func(NetworkEntry) bool, error) {
	switch mode {
	case "", MatchSubstring:
		return func(e NetworkEntry) bool { return strings.Contains(e.URL, pattern) }, nil
	case MatchRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, tools.Errorf(tools.KindInvalidArgument, "invalid regex %q: %v", pattern, err)
		}
		return func(e NetworkEntry) bool { return re.MatchString(e.URL) }, nil
	case MatchGlob:
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, tools.Errorf(tools.KindInvalidArgument, "invalid glob %q: %v", pattern, err)
		}
		return func(e NetworkEntry) bool { return g.Match(e.URL) }, nil
	}
	return nil, tools.Errorf(tools.KindInvalidArgument, "unknown match type %q", mode)
}

// Subscribe registers a one-shot subscription. The returned channel receives
// at most one observation; cancel must be called when the waiter gives up.
func (l *NetworkLog) Subscribe(phase Phase, tabID string, match func(NetworkEntry) bool) (<-chan Observation, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSub++
	id := l.nextSub
	sub := &subscription{phase: phase, tabID: tabID, match: match, ch: make(chan Observation, 1)}
	l.subs[id] = sub

	return sub.ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *NetworkLog) notifyLocked(phase Phase, obs Observation) {
	for id, sub := range l.subs {
		if sub.phase != phase {
			continue
		}
		if sub.tabID != "" && sub.tabID != obs.Entry.TabID {
			continue
		}
		if !sub.match(obs.Entry) {
			continue
		}
		select {
		case sub.ch <- obs:
		default:
		}
		delete(l.subs, id)
	}
}

// NetworkStats summarises the stored entries.
type NetworkStats struct {
	Total         int            `json:"total"`
	Completed     int            `json:"completed"`
	Pending       int            `json:"pending"`
	Failed        int            `json:"failed"`
	ByMethod      map[string]int `json:"by_method"`
	ByStatusClass map[string]int `json:"by_status_class"`
	ByType        map[string]int `json:"by_resource_type"`
	TopDomains    []DomainCount  `json:"top_domains"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	MaxDurationMS float64        `json:"max_duration_ms"`
	SlowestURL    string         `json:"slowest_url,omitempty"`
}

// DomainCount is a request count for one host.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

const topDomains = 10

// Stats aggregates the stored entries.
func (l *NetworkLog) Stats() NetworkStats {
	entries := l.Entries()
	s := NetworkStats{
		Total:         len(entries),
		ByMethod:      map[string]int{},
		ByStatusClass: map[string]int{},
		ByType:        map[string]int{},
	}
	domains := map[string]int{}
	var totalMS float64
	var timed int
	for _, e := range entries {
		s.ByMethod[e.Method]++
		if e.ResourceType != "" {
			s.ByType[e.ResourceType]++
		}
		if host := hostOf(e.URL); host != "" {
			domains[host]++
		}
		switch {
		case e.Failure != "":
			s.Failed++
		case e.Status != 0:
			s.Completed++
			s.ByStatusClass[statusClass(e.Status)]++
		default:
			s.Pending++
		}
		if e.DurationMS > 0 {
			totalMS += e.DurationMS
			timed++
			if e.DurationMS > s.MaxDurationMS {
				s.MaxDurationMS = e.DurationMS
				s.SlowestURL = e.URL
			}
		}
	}
	if timed > 0 {
		s.AvgDurationMS = totalMS / float64(timed)
	}
	for d, n := range domains {
		s.TopDomains = append(s.TopDomains, DomainCount{Domain: d, Count: n})
	}
	sort.Slice(s.TopDomains, func(i, j int) bool {
		if s.TopDomains[i].Count != s.TopDomains[j].Count {
			return s.TopDomains[i].Count > s.TopDomains[j].Count
		}
		return s.TopDomains[i].Domain < s.TopDomains[j].Domain
	})
	if len(s.TopDomains) > topDomains {
		s.TopDomains = s.TopDomains[:topDomains]
	}
	return s
}

func statusClass(status int) string {
	return string(rune('0'+status/100)) + "xx"
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
