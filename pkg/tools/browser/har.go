package browser

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// HAR 1.2 structures, limited to the fields the network log can fill.

type HAR struct {
	Log HARLog `json:"log"`
}

type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Cache           struct{}    `json:"cache"`
	Timings         HARTimings  `json:"timings"`
	Comment         string      `json:"comment,omitempty"`
}

type HARNameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

type HARRequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	HTTPVersion string         `json:"httpVersion"`
	Cookies     []HARNameValue `json:"cookies"`
	Headers     []HARNameValue `json:"headers"`
	QueryString []HARNameValue `json:"queryString"`
	PostData    *HARPostData   `json:"postData,omitempty"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int            `json:"bodySize"`
}

type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
}

type HARResponse struct {
	Status      int            `json:"status"`
	StatusText  string         `json:"statusText"`
	HTTPVersion string         `json:"httpVersion"`
	Cookies     []HARNameValue `json:"cookies"`
	Headers     []HARNameValue `json:"headers"`
	Content     HARContent     `json:"content"`
	RedirectURL string         `json:"redirectURL"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int            `json:"bodySize"`
}

type HARTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// BuildHAR converts network entries into a HAR document.
func BuildHAR(entries []NetworkEntry, creator, version string) HAR {
	har := HAR{Log: HARLog{
		Version: "1.2",
		Creator: HARCreator{Name: creator, Version: version},
		Entries: make([]HAREntry, 0, len(entries)),
	}}
	for _, e := range entries {
		har.Log.Entries = append(har.Log.Entries, harEntry(e))
	}
	return har
}

func harEntry(e NetworkEntry) HAREntry {
	req := HARRequest{
		Method:      e.Method,
		URL:         e.URL,
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARNameValue{},
		Headers:     harHeaders(e.RequestHeaders),
		QueryString: harQuery(e.URL),
		HeadersSize: -1,
		BodySize:    len(e.RequestBody),
	}
	if e.RequestBody != "" {
		req.PostData = &HARPostData{
			MimeType: headerValue(e.RequestHeaders, "content-type"),
			Text:     e.RequestBody,
		}
	}

	mime := headerValue(e.ResponseHeaders, "content-type")
	resp := HARResponse{
		Status:      e.Status,
		StatusText:  e.StatusText,
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARNameValue{},
		Headers:     harHeaders(e.ResponseHeaders),
		Content: HARContent{
			Size:     len(e.ResponseBody),
			MimeType: mime,
			Text:     e.ResponseBody,
		},
		RedirectURL: headerValue(e.ResponseHeaders, "location"),
		HeadersSize: -1,
		BodySize:    -1,
	}
	if e.ResponseBody != "" {
		resp.BodySize = len(e.ResponseBody)
	}

	return HAREntry{
		StartedDateTime: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Time:            e.DurationMS,
		Request:         req,
		Response:        resp,
		Timings:         harTimings(e),
		Comment:         e.Failure,
	}
}

func harTimings(e NetworkEntry) HARTimings {
	t := HARTimings{Send: 0, Wait: e.DurationMS, Receive: 0}
	start, okStart := e.Timing["requestStart"]
	respStart, okResp := e.Timing["responseStart"]
	end, okEnd := e.Timing["responseEnd"]
	if okStart && okResp && okEnd && respStart >= start && end >= respStart {
		t.Wait = respStart - start
		t.Receive = end - respStart
	}
	return t
}

func harHeaders(h map[string]string) []HARNameValue {
	out := make([]HARNameValue, 0, len(h))
	for k, v := range h {
		out = append(out, HARNameValue{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func harQuery(raw string) []HARNameValue {
	out := []HARNameValue{}
	u, err := url.Parse(raw)
	if err != nil {
		return out
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			out = append(out, HARNameValue{Name: k, Value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func headerValue(h map[string]string, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
