package browser

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHAR(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []NetworkEntry{
		{
			Seq:             1,
			URL:             "https://api.example.com/search?q=fox&lang=en",
			Method:          "POST",
			RequestHeaders:  map[string]string{"Content-Type": "application/json", "Accept": "*/*"},
			RequestBody:     `{"q":"fox"}`,
			Status:          200,
			StatusText:      "OK",
			ResponseHeaders: map[string]string{"content-type": "application/json"},
			ResponseBody:    `{"hits":3}`,
			Timestamp:       start,
			DurationMS:      42,
			Timing:          map[string]float64{"requestStart": 5, "responseStart": 30, "responseEnd": 47},
		},
		{
			Seq:       2,
			URL:       "https://cdn.example.com/app.js",
			Method:    "GET",
			Failure:   "net::ERR_BLOCKED_BY_CLIENT",
			Timestamp: start.Add(time.Second),
		},
	}

	har := BuildHAR(entries, "camoufox-mcp", "1.0.0")
	assert.Equal(t, "1.2", har.Log.Version)
	assert.Equal(t, HARCreator{Name: "camoufox-mcp", Version: "1.0.0"}, har.Log.Creator)
	require.Len(t, har.Log.Entries, 2)

	first := har.Log.Entries[0]
	assert.Equal(t, "2024-03-01T12:00:00Z", first.StartedDateTime)
	assert.Equal(t, []HARNameValue{{Name: "lang", Value: "en"}, {Name: "q", Value: "fox"}}, first.Request.QueryString)
	assert.Equal(t, []HARNameValue{{Name: "Accept", Value: "*/*"}, {Name: "Content-Type", Value: "application/json"}}, first.Request.Headers)
	require.NotNil(t, first.Request.PostData)
	assert.Equal(t, "application/json", first.Request.PostData.MimeType)
	assert.Equal(t, `{"q":"fox"}`, first.Request.PostData.Text)
	assert.Equal(t, "application/json", first.Response.Content.MimeType)
	assert.Equal(t, 10, first.Response.BodySize)
	assert.Equal(t, 25.0, first.Timings.Wait)
	assert.Equal(t, 17.0, first.Timings.Receive)

	second := har.Log.Entries[1]
	assert.Nil(t, second.Request.PostData)
	assert.Equal(t, "net::ERR_BLOCKED_BY_CLIENT", second.Comment)
	assert.Equal(t, -1, second.Response.BodySize)
	assert.Empty(t, second.Request.QueryString)

	raw, err := json.Marshal(har)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "log")
}
