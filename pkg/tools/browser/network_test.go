package browser

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func seedLog(t *testing.T) *NetworkLog {
	t.Helper()
	l := NewNetworkLog(100, 0)
	add := func(key, method, url, rtype string, status int) {
		l.AddRequest(key, NetworkEntry{TabID: "0", URL: url, Method: method, ResourceType: rtype}, true)
		if status != 0 {
			l.CompleteResponse(key, ResponseData{URL: url, Status: status}, nil)
		}
	}
	add("a", "GET", "https://example.com/index.html", "document", 200)
	add("b", "GET", "https://cdn.example.com/app.js", "script", 200)
	add("c", "POST", "https://api.example.com/v1/Login", "fetch", 401)
	add("d", "GET", "https://api.example.com/v1/items?page=2", "fetch", 500)
	add("e", "GET", "https://api.example.com/v1/slow", "fetch", 0)
	return l
}

func TestNetworkLogEvictsOldest(t *testing.T) {
	l := NewNetworkLog(3, 0)
	for i := 0; i < 5; i++ {
		l.AddRequest(i, NetworkEntry{URL: fmt.Sprintf("https://example.com/%d", i), Method: "GET"}, true)
	}

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[0].Seq)
	assert.Equal(t, int64(5), entries[2].Seq)

	// the evicted request's response has nowhere to land
	synthetic := l.CompleteResponse(0, ResponseData{URL: "https://example.com/0", Status: 200}, nil)
	assert.Equal(t, int64(6), synthetic.Seq)
	assert.Equal(t, 3, l.Len())
}

func TestNetworkLogCaptureOff(t *testing.T) {
	l := NewNetworkLog(10, 0)
	ch, cancel := l.Subscribe(PhaseRequest, "", func(NetworkEntry) bool { return true })
	defer cancel()

	l.AddRequest("k", NetworkEntry{URL: "https://example.com", Method: "GET"}, false)
	assert.Equal(t, 0, l.Len())

	select {
	case obs := <-ch:
		assert.Equal(t, "https://example.com", obs.Entry.URL)
	default:
		t.Fatal("subscribers should see requests while capture is off")
	}
}

func TestNetworkLogPairsByURL(t *testing.T) {
	l := NewNetworkLog(10, 4)
	l.AddRequest(nil, NetworkEntry{URL: "https://example.com/a", Method: "POST", RequestBody: "abcdefgh"}, true)

	e := l.CompleteResponse(nil, ResponseData{
		URL:    "https://example.com/a",
		Status: 204,
		Timing: map[string]float64{"requestStart": 10, "responseEnd": 35},
	}, nil)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, 204, e.Status)
	assert.Equal(t, 25.0, e.DurationMS)
	assert.Equal(t, "abcd", e.RequestBody)

	l.AttachBody(1, "0123456789")
	assert.Equal(t, "0123", l.Entries()[0].ResponseBody)
}

func TestNetworkLogResponseForUnstoredRequest(t *testing.T) {
	l := NewNetworkLog(10, 0)
	l.AddRequest("captured", NetworkEntry{TabID: "0", URL: "https://example.com/a", Method: "GET"}, true)
	l.AddRequest("skipped", NetworkEntry{TabID: "1", URL: "https://example.com/a", Method: "GET"}, false)

	e := l.CompleteResponse("skipped", ResponseData{TabID: "1", URL: "https://example.com/a", Status: 500}, nil)
	assert.Equal(t, "1", e.TabID)
	assert.Equal(t, int64(3), e.Seq)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "0", entries[0].TabID)
	assert.Zero(t, entries[0].Status)
	assert.False(t, entries[0].Completed())

	_, ok := l.Fail("skipped", "1", "https://example.com/a", "net::ERR_ABORTED")
	assert.False(t, ok)
	assert.False(t, l.Entries()[0].Completed())

	e = l.CompleteResponse("captured", ResponseData{TabID: "0", URL: "https://example.com/a", Status: 200}, nil)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, 200, e.Status)
}

func TestNetworkLogURLFallbackStaysOnTab(t *testing.T) {
	l := NewNetworkLog(10, 0)
	l.AddRequest(nil, NetworkEntry{TabID: "0", URL: "https://example.com/a", Method: "GET"}, true)

	e := l.CompleteResponse(nil, ResponseData{TabID: "1", URL: "https://example.com/a", Status: 404}, nil)
	assert.Equal(t, int64(2), e.Seq)
	assert.False(t, l.Entries()[0].Completed())

	e = l.CompleteResponse(nil, ResponseData{TabID: "0", URL: "https://example.com/a", Status: 200}, nil)
	assert.Equal(t, int64(1), e.Seq)
}

func TestNetworkLogFail(t *testing.T) {
	l := NewNetworkLog(10, 0)
	l.AddRequest("k", NetworkEntry{URL: "https://example.com/x", Method: "GET"}, true)

	e, ok := l.Fail("k", "", "https://example.com/x", "")
	require.True(t, ok)
	assert.Equal(t, "request failed", e.Failure)
	assert.True(t, e.Completed())

	_, ok = l.Fail("unknown", "", "https://example.com/other", "net::ERR")
	assert.False(t, ok)
}

func TestNetworkLogQuery(t *testing.T) {
	l := seedLog(t)

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"all", Filter{}, []int64{1, 2, 3, 4, 5}},
		{"substring ignores case", Filter{URLContains: "login"}, []int64{3}},
		{"regex", Filter{URLRegex: `/v1/(items|slow)`}, []int64{4, 5}},
		{"glob", Filter{URLGlob: "https://api.example.com/**"}, []int64{3, 4, 5}},
		{"method", Filter{Method: "post"}, []int64{3}},
		{"exact status", Filter{Status: 200}, []int64{1, 2}},
		{"status range", Filter{StatusMin: 400, StatusMax: 599}, []int64{3, 4}},
		{"resource type", Filter{ResourceType: "fetch"}, []int64{3, 4, 5}},
		{"limit keeps newest", Filter{ResourceType: "fetch", Limit: 2}, []int64{4, 5}},
		{"other tab", Filter{TabID: "1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Query(tt.filter)
			require.NoError(t, err)
			var seqs []int64
			for _, e := range got {
				seqs = append(seqs, e.Seq)
			}
			assert.Equal(t, tt.want, seqs)
		})
	}
}

func TestNetworkLogQueryRejectsBadFilters(t *testing.T) {
	l := seedLog(t)
	for _, f := range []Filter{
		{URLRegex: "("},
		{URLGlob: "[a"},
		{StatusMin: 500, StatusMax: 400},
	} {
		_, err := l.Query(f)
		assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err), "%+v", f)
	}
}

func TestURLMatcher(t *testing.T) {
	e := NetworkEntry{URL: "https://api.example.com/v1/items?page=2"}

	tests := []struct {
		pattern, mode string
		want          bool
	}{
		{"/v1/items", "", true},
		{"/v2/", MatchSubstring, false},
		{`items\?page=\d+$`, MatchRegex, true},
		{"https://cdn.example.com/*", MatchGlob, false},
		{"https://api.example.com/**", MatchGlob, true},
	}
	for _, tt := range tests {
		match, err := URLMatcher(tt.pattern, tt.mode)
		require.NoError(t, err)
		assert.Equal(t, tt.want, match(e), "%s %s", tt.mode, tt.pattern)
	}

	_, err := URLMatcher("x", "fuzzy")
	assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err))
}

func TestSubscribeFiltersPhaseAndTab(t *testing.T) {
	l := NewNetworkLog(10, 0)
	all := func(NetworkEntry) bool { return true }

	respCh, cancelResp := l.Subscribe(PhaseResponse, "1", all)
	defer cancelResp()
	reqCh, cancelReq := l.Subscribe(PhaseRequest, "1", all)
	defer cancelReq()

	l.AddRequest("a", NetworkEntry{TabID: "0", URL: "https://example.com/a"}, true)
	l.AddRequest("b", NetworkEntry{TabID: "1", URL: "https://example.com/b"}, true)
	l.CompleteResponse("b", ResponseData{TabID: "1", URL: "https://example.com/b", Status: 200}, "raw")

	select {
	case obs := <-reqCh:
		assert.Equal(t, "https://example.com/b", obs.Entry.URL)
	case <-time.After(time.Second):
		t.Fatal("request subscriber not notified")
	}
	select {
	case obs := <-respCh:
		assert.Equal(t, 200, obs.Entry.Status)
		assert.Equal(t, "raw", obs.Response)
	case <-time.After(time.Second):
		t.Fatal("response subscriber not notified")
	}
}

func TestNetworkStats(t *testing.T) {
	l := seedLog(t)
	l.Fail("e", "0", "https://api.example.com/v1/slow", "net::ERR_TIMED_OUT")

	s := l.Stats()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, map[string]int{"GET": 4, "POST": 1}, s.ByMethod)
	assert.Equal(t, map[string]int{"2xx": 2, "4xx": 1, "5xx": 1}, s.ByStatusClass)
	require.NotEmpty(t, s.TopDomains)
	assert.Equal(t, DomainCount{Domain: "api.example.com", Count: 3}, s.TopDomains[0])
}

func TestNetworkLogSeenSurvivesClear(t *testing.T) {
	l := seedLog(t)
	assert.Equal(t, int64(5), l.Seen())

	assert.Equal(t, 5, l.Clear())
	l.AddRequest("f", NetworkEntry{URL: "https://example.com/again", Method: "GET"}, false)
	assert.Equal(t, int64(6), l.Seen())
	assert.Equal(t, 0, l.Len())
}
