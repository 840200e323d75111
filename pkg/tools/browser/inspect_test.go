package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func TestNetworkPatterns(t *testing.T) {
	entries := seedLog(t).Entries()
	entries = append(entries,
		NetworkEntry{URL: "https://www.google-analytics.com/collect", Method: "POST", ResourceType: "ping"},
		NetworkEntry{URL: "https://example.com/graphql", Method: "POST", ResourceType: "fetch",
			RequestHeaders:  map[string]string{"Authorization": "Bearer x", "accept": "*/*"},
			ResponseHeaders: map[string]string{"Content-Type": "application/json; charset=utf-8"}},
		NetworkEntry{URL: "wss://example.com/live", Method: "GET", ResourceType: "websocket"},
	)

	p := networkPatterns(entries, "example.com")
	assert.Equal(t, 8, p.Requests)
	require.Len(t, p.APIEndpoints, 4)
	assert.Equal(t, "API endpoint", p.APIEndpoints[0].Pattern)
	assert.Equal(t, 401, p.APIEndpoints[0].Status)
	assert.Equal(t, "JSON", p.APIEndpoints[3].ResponseType)
	assert.Equal(t, []string{"https://example.com/graphql"}, p.GraphQLEndpoints)
	assert.Equal(t, []string{"wss://example.com/live"}, p.WebSocketURLs)
	assert.Equal(t, []string{"auth header: authorization"}, p.AuthHeaders)
	assert.Equal(t, []string{"cdn.example.com"}, p.CDNDomains)
	assert.Equal(t, []string{"api.example.com", "www.google-analytics.com"}, p.ThirdPartyDomains)
	assert.Equal(t, 4, p.ResourceStats["fetch"])
	assert.Empty(t, p.Note)
}

func TestNetworkPatternsEmpty(t *testing.T) {
	p := networkPatterns(nil, "")
	assert.Equal(t, 0, p.Requests)
	assert.NotEmpty(t, p.Note)
	assert.NotNil(t, p.APIEndpoints)
}

func TestSummarizeLoading(t *testing.T) {
	resources := []ResourceSample{
		{URL: "late.js", Type: "script", DurationMS: 900, Size: 4000, StartMS: 2000},
		{URL: "early.js", Type: "script", DurationMS: 100, Size: 1000, StartMS: 50},
		{URL: "style.css", Type: "link", DurationMS: 600, Size: 500, StartMS: 20, RenderBlocking: "blocking"},
		{URL: "logo.png", Type: "img", DurationMS: 30, Size: 800, StartMS: 300, RenderBlocking: "non-blocking"},
	}
	out := summarizeLoading(resources, map[string]float64{"dom_interactive_ms": 400})

	assert.Equal(t, 4, out.Total)
	assert.Equal(t, 6300.0, out.TotalTransfer)
	assert.Equal(t, TypeLoad{Count: 2, TotalSize: 5000, TotalDurationMS: 1000}, out.ByType["script"])

	var blocking []string
	for _, r := range out.RenderBlocking {
		blocking = append(blocking, r.URL)
	}
	assert.Equal(t, []string{"style.css", "early.js"}, blocking)

	require.Len(t, out.Slowest, 2)
	assert.Equal(t, "late.js", out.Slowest[0].URL)
	assert.Equal(t, "style.css", out.Slowest[1].URL)
}

func TestDetectAntibot(t *testing.T) {
	r := detectAntibot(
		[]string{"__cf_bm", "_pxvid", "_px3", "visid_incap_123"},
		map[string]string{"CF-RAY": "8a1b2c3d4e5f-AMS", "Server": "cloudflare"},
		AntibotSignals{DataDomeScript: true, Captcha: []string{"hCaptcha"}},
	)
	assert.True(t, r.Detected)
	assert.Equal(t, []string{"cf-ray header present", "server: cloudflare", "__cf_bm cookie"}, r.Cloudflare.Indicators)
	assert.False(t, r.Akamai.Detected)
	assert.Equal(t, []string{}, r.Akamai.Indicators)
	assert.Equal(t, []string{"PerimeterX cookies: _px3, _pxvid"}, r.PerimeterX.Indicators)
	assert.Equal(t, []string{"DataDome script detected"}, r.DataDome.Indicators)
	assert.Equal(t, []string{"hCaptcha element found"}, r.Captcha.Indicators)
	assert.Equal(t, []string{"Imperva/Incapsula"}, r.Other)
}

func TestDetectAntibotClean(t *testing.T) {
	r := detectAntibot([]string{"session"}, nil, AntibotSignals{})
	assert.False(t, r.Detected)
	assert.Empty(t, r.Other)
}

func TestDocumentHeaders(t *testing.T) {
	entries := []NetworkEntry{
		{TabID: "0", ResourceType: "document", ResponseHeaders: map[string]string{"server": "first"}},
		{TabID: "1", ResourceType: "document", ResponseHeaders: map[string]string{"server": "other-tab"}},
		{TabID: "0", ResourceType: "document", ResponseHeaders: map[string]string{"server": "second"}},
		{TabID: "0", ResourceType: "script", ResponseHeaders: map[string]string{"server": "asset"}},
	}
	assert.Equal(t, "second", documentHeaders(entries, "0")["server"])
	assert.Equal(t, "other-tab", documentHeaders(entries, "1")["server"])
	assert.Nil(t, documentHeaders(entries, "2"))
}

func TestMonitorFingerprintingBounds(t *testing.T) {
	h := newHarness(t)
	h.launch()

	// the schema rejects values outside the range before the handler runs
	for _, d := range []int{50, maxFingerprintMS + 1} {
		_, err := h.call("monitor_fingerprinting", map[string]any{"duration_ms": d})
		assert.Equal(t, tools.KindInvalidArgument, kindOf(t, err), d)
	}
}
