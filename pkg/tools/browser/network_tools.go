package browser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itchyny/gojq"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const defaultLogLimit = 50

type networkLogParams struct {
	URLFilter          string `json:"url_filter"`
	URLRegex           string `json:"url_regex"`
	URLGlob            string `json:"url_glob"`
	MethodFilter       string `json:"method_filter"`
	StatusFilter       int    `json:"status_filter"`
	StatusMin          int    `json:"status_min"`
	StatusMax          int    `json:"status_max"`
	ResourceTypeFilter string `json:"resource_type_filter"`
	TabID              string `json:"tab_id"`
	Limit              int    `json:"limit"`
	IncludeTiming      bool   `json:"include_timing"`
	JQ                 string `json:"jq"`
}

type captureParams struct {
	Enabled       *bool `json:"enabled"`
	CaptureBodies bool  `json:"capture_bodies"`
}

type waitNetworkParams struct {
	TabTarget
	URLPattern  string `json:"url_pattern"`
	MatchType   string `json:"match_type"`
	Timeout     int    `json:"timeout"`
	IncludeBody bool   `json:"include_body"`
}

type exportHARParams struct {
	Path string `json:"path"`
}

func (s *toolset) networkTools() []tools.Tool {
	matchEnum := tools.Enum("How url_pattern is matched (default substring)", MatchSubstring, MatchRegex, MatchGlob)
	return []tools.Tool{
		tools.New("get_network_log",
			"Get captured requests and responses in capture order, optionally filtered and post-processed with a jq expression.",
			tools.BaseToolSchema(map[string]interface{}{
				"url_filter":           tools.String("Case-insensitive URL substring"),
				"url_regex":            tools.String("URL regular expression"),
				"url_glob":             tools.String("URL glob, e.g. https://api.example.com/**"),
				"method_filter":        tools.String("HTTP method"),
				"status_filter":        tools.IntegerRange("Exact status code", 100, 599),
				"status_min":           tools.IntegerRange("Minimum status code", 100, 599),
				"status_max":           tools.IntegerRange("Maximum status code", 100, 599),
				"resource_type_filter": tools.String("Resource type: document, script, xhr, fetch, image, ..."),
				"tab_id":               tools.String("Only entries from this tab"),
				"limit":                tools.IntegerRange("Return the newest N matches (default 50)", 1, 10000),
				"include_timing":       tools.Boolean("Include timing breakdown and duration"),
				"jq":                   tools.String("jq expression applied to the entry array, e.g. map(.url)"),
			}, nil),
			s.getNetworkLog),

		tools.New("clear_network_log",
			"Remove every captured network entry.",
			tools.BaseToolSchema(nil, nil),
			s.clearNetworkLog),

		tools.New("set_network_capture",
			"Enable or disable network capture for every tab, and whether bodies are kept.",
			tools.BaseToolSchema(map[string]interface{}{
				"enabled":        tools.Boolean("Capture requests (default true)"),
				"capture_bodies": tools.Boolean("Also keep request and response bodies (can be large)"),
			}, nil),
			s.setNetworkCapture),

		tools.New("wait_for_request",
			"Wait for the tab to issue a request whose URL matches. Fails with Timeout if none arrives in time.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"url_pattern": tools.String("URL pattern to match"),
				"match_type":  matchEnum,
				"timeout":     tools.Timeout(),
			}), []string{"url_pattern"}),
			s.waitForRequest),

		tools.New("wait_for_response",
			"Wait for a response whose URL matches. Fails with Timeout if none arrives in time.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"url_pattern":  tools.String("URL pattern to match"),
				"match_type":   matchEnum,
				"timeout":      tools.Timeout(),
				"include_body": tools.Boolean("Include the response body"),
			}), []string{"url_pattern"}),
			s.waitForResponse),

		tools.New("get_network_stats",
			"Summarise captured traffic: totals, failures, methods, status classes, resource types, top domains and slowest request.",
			tools.BaseToolSchema(nil, nil),
			s.getNetworkStats),

		tools.New("export_har",
			"Write the captured traffic as a HAR 1.2 file.",
			tools.BaseToolSchema(map[string]interface{}{
				"path": tools.String("Output path (defaults to a new file in the screenshot directory)"),
			}, nil),
			s.exportHAR),
	}
}

func (s *toolset) getNetworkLog(ctx context.Context, p networkLogParams) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	entries, err := s.m.Network().Query(Filter{
		URLContains:  p.URLFilter,
		URLRegex:     p.URLRegex,
		URLGlob:      p.URLGlob,
		Method:       p.MethodFilter,
		Status:       p.StatusFilter,
		StatusMin:    p.StatusMin,
		StatusMax:    p.StatusMax,
		ResourceType: p.ResourceTypeFilter,
		TabID:        p.TabID,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	if !p.IncludeTiming {
		for i := range entries {
			entries[i].Timing = nil
			entries[i].DurationMS = 0
		}
	}
	if entries == nil {
		entries = []NetworkEntry{}
	}
	if p.JQ == "" {
		return map[string]any{"count": len(entries), "entries": entries}, nil
	}
	return applyJQ(ctx, p.JQ, entries)
}

// applyJQ runs expr over v encoded as generic JSON. A single output is
// returned as-is; several are returned as an array.
func applyJQ(ctx context.Context, expr string, v any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, invalid("failed to parse jq expression %q: %v", expr, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "encode entries")
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "decode entries")
	}

	var results []any
	iter := query.RunWithContext(ctx, input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return nil, invalid("jq evaluation error for %q: %v", expr, err)
		}
		results = append(results, out)
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

func (s *toolset) clearNetworkLog(ctx context.Context, _ tools.Empty) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	n := s.m.Network().Clear()
	return map[string]int{"cleared": n}, nil
}

func (s *toolset) setNetworkCapture(ctx context.Context, p captureParams) (any, error) {
	enabled := p.Enabled == nil || *p.Enabled
	if err := s.m.SetCapture(enabled, p.CaptureBodies); err != nil {
		return nil, err
	}
	capture, bodies := s.m.CaptureFlags()
	s.logger.Info("network capture changed", "enabled", capture, "bodies", bodies)
	return map[string]bool{"capture": capture, "capture_bodies": bodies}, nil
}

// awaitNetwork subscribes before returning control to the driver so an event
// arriving right after the call starts is not missed.
func (s *toolset) awaitNetwork(ctx context.Context, p waitNetworkParams, phase Phase) (*Tab, Observation, error) {
	if p.URLPattern == "" {
		return nil, Observation{}, invalid("url_pattern cannot be empty")
	}
	match, err := URLMatcher(p.URLPattern, p.MatchType)
	if err != nil {
		return nil, Observation{}, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, Observation{}, err
	}
	ch, cancel := s.m.Network().Subscribe(phase, tab.ID, match)
	defer cancel()

	what := "request matching " + p.URLPattern
	if phase == PhaseResponse {
		what = "response matching " + p.URLPattern
	}
	timeout := time.Duration(s.t.network(p.Timeout)) * time.Millisecond
	obs, err := await(ctx, tab, ch, timeout, what)
	return tab, obs, err
}

func (s *toolset) waitForRequest(ctx context.Context, p waitNetworkParams) (any, error) {
	_, obs, err := s.awaitNetwork(ctx, p, PhaseRequest)
	if err != nil {
		return nil, err
	}
	e := obs.Entry
	return map[string]any{
		"url":           e.URL,
		"method":        e.Method,
		"headers":       e.RequestHeaders,
		"post_data":     e.RequestBody,
		"resource_type": e.ResourceType,
		"tab_id":        e.TabID,
	}, nil
}

func (s *toolset) waitForResponse(ctx context.Context, p waitNetworkParams) (any, error) {
	tab, obs, err := s.awaitNetwork(ctx, p, PhaseResponse)
	if err != nil {
		return nil, err
	}
	e := obs.Entry
	result := map[string]any{
		"url":         e.URL,
		"status":      e.Status,
		"status_text": e.StatusText,
		"headers":     e.ResponseHeaders,
		"tab_id":      e.TabID,
	}
	if p.IncludeBody {
		result["body"] = nil
		if resp, ok := obs.Response.(playwright.Response); ok && resp != nil {
			if body, err := call(ctx, tab, resp.Text); err == nil {
				if limit := s.m.Config().Network.MaxBodySize; limit > 0 {
					body = clip(body, limit)
				}
				result["body"] = body
			}
		}
	}
	return result, nil
}

func (s *toolset) getNetworkStats(ctx context.Context, _ tools.Empty) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	return s.m.Network().Stats(), nil
}

func (s *toolset) exportHAR(ctx context.Context, p exportHARParams) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	path, err := s.artifacts.Path(p.Path, ".har")
	if err != nil {
		return nil, err
	}
	entries := s.m.Network().Entries()
	data, err := json.MarshalIndent(BuildHAR(entries, "camoufox-mcp", s.version), "", "  ")
	if err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "encode har")
	}
	if err := s.artifacts.Write(path, data); err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "write har")
	}
	s.logger.Info("har exported", "path", path, "entries", len(entries))
	return map[string]any{"path": path, "entries": len(entries), "size_bytes": len(data)}, nil
}
