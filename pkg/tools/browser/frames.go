package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// FrameInfo describes one frame of a tab.
type FrameInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	IsMain bool   `json:"is_main"`
	Parent int    `json:"parent"`
}

type frameActionParams struct {
	TabTarget
	FrameSelector   string  `json:"frame_selector"`
	ElementSelector string  `json:"element_selector"`
	Action          string  `json:"action"`
	FillValue       *string `json:"fill_value"`
	Timeout         int     `json:"timeout"`
}

type frameNameParams struct {
	TabTarget
	FrameName string `json:"frame_name"`
}

type frameURLParams struct {
	TabTarget
	URLPattern string `json:"url_pattern"`
	MatchType  string `json:"match_type"`
}

type dialogParams struct {
	Action     string `json:"action"`
	PromptText string `json:"prompt_text"`
	Persistent bool   `json:"persistent"`
}

type logParams struct {
	Clear bool   `json:"clear"`
	TabID string `json:"tab_id"`
	Type  string `json:"type"`
}

func (s *toolset) frameTools() []tools.Tool {
	return []tools.Tool{
		tools.New("list_frames",
			"List the frames of a tab with name, URL and parent index (-1 for the main frame).",
			tools.BaseToolSchema(withTab(nil), nil),
			s.listFrames),

		tools.New("frame_locator",
			"Act on an element inside an iframe: click, fill, get_text or get_html.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"frame_selector":   tools.String("Selector of the iframe element"),
				"element_selector": tools.String("Selector of the element inside the frame"),
				"action":           tools.Enum("Action (default click)", "click", "fill", "get_text", "get_html"),
				"fill_value":       tools.String("Value for the fill action"),
				"timeout":          tools.Timeout(),
			}), []string{"frame_selector", "element_selector"}),
			s.frameLocator),

		tools.New("frame_by_name",
			"Find a frame by its name attribute.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"frame_name": tools.String("Frame name"),
			}), []string{"frame_name"}),
			s.frameByName),

		tools.New("frame_by_url",
			"Find the first frame whose URL matches a pattern.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"url_pattern": tools.String("URL pattern"),
				"match_type":  tools.Enum("How url_pattern is matched (default substring)", MatchSubstring, MatchRegex, MatchGlob),
			}), []string{"url_pattern"}),
			s.frameByURL),

		tools.New("handle_dialog",
			"Arm the response to the next alert, confirm or prompt dialog. Persistent handlers answer every dialog until replaced. Unarmed dialogs are dismissed.",
			tools.BaseToolSchema(map[string]interface{}{
				"action":      tools.Enum("accept (default) or dismiss", "accept", "dismiss"),
				"prompt_text": tools.String("Text entered into prompt dialogs"),
				"persistent":  tools.Boolean("Keep handling dialogs after the first"),
			}, nil),
			s.handleDialog),

		tools.New("get_console_logs",
			"Return console messages captured from every tab since launch.",
			tools.BaseToolSchema(map[string]interface{}{
				"clear":  tools.Boolean("Clear the captured messages after returning them"),
				"tab_id": tools.String("Only messages from this tab"),
				"type":   tools.String("Only messages of this type, e.g. error or warning"),
			}, nil),
			s.getConsoleLogs),

		tools.New("get_page_errors",
			"Return uncaught exceptions thrown by pages since launch.",
			tools.BaseToolSchema(map[string]interface{}{
				"clear":  tools.Boolean("Clear the captured errors after returning them"),
				"tab_id": tools.String("Only errors from this tab"),
			}, nil),
			s.getPageErrors),
	}
}

// frameInfos describes every frame of page in document order.
func frameInfos(page playwright.Page) []FrameInfo {
	frames := page.Frames()
	main := page.MainFrame()
	index := make(map[playwright.Frame]int, len(frames))
	for i, f := range frames {
		index[f] = i
	}
	out := make([]FrameInfo, 0, len(frames))
	for i, f := range frames {
		info := FrameInfo{Index: i, Name: f.Name(), URL: f.URL(), IsMain: f == main, Parent: -1}
		if parent := f.ParentFrame(); parent != nil {
			if pi, ok := index[parent]; ok {
				info.Parent = pi
			}
		}
		out = append(out, info)
	}
	return out
}

func (s *toolset) listFrames(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	frames, err := call(ctx, tab, func() ([]FrameInfo, error) { return frameInfos(tab.Page), nil })
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(frames), "frames": frames}, nil
}

func (s *toolset) frameLocator(ctx context.Context, p frameActionParams) (any, error) {
	if err := ValidateSelector(p.FrameSelector); err != nil {
		return nil, err
	}
	if err := ValidateSelector(p.ElementSelector); err != nil {
		return nil, err
	}
	action := p.Action
	if action == "" {
		action = "click"
	}
	if action == "fill" && p.FillValue == nil {
		return nil, invalid("fill_value is required for the fill action")
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	loc := tab.Page.FrameLocator(normalizeSelector(p.FrameSelector)).
		Locator(normalizeSelector(p.ElementSelector)).First()
	timeout := playwright.Float(s.t.action(p.Timeout))

	result := map[string]any{"frame_selector": p.FrameSelector, "element_selector": p.ElementSelector, "action": action}
	switch action {
	case "click":
		err = run(ctx, tab, func() error { return loc.Click(playwright.LocatorClickOptions{Timeout: timeout}) })
	case "fill":
		err = run(ctx, tab, func() error { return loc.Fill(*p.FillValue, playwright.LocatorFillOptions{Timeout: timeout}) })
	case "get_text":
		var text string
		text, err = call(ctx, tab, func() (string, error) {
			return loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
		})
		result["text"] = text
	case "get_html":
		var html string
		html, err = call(ctx, tab, func() (string, error) {
			return loc.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: timeout})
		})
		result["html"] = html
	default:
		return nil, invalid("invalid action %q (must be click, fill, get_text or get_html)", p.Action)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// findFrame returns the first frame accepted by match.
func (s *toolset) findFrame(ctx context.Context, target TabTarget, match func(FrameInfo) bool) (any, error) {
	tab, err := s.page(target)
	if err != nil {
		return nil, err
	}
	frames, err := call(ctx, tab, func() ([]FrameInfo, error) { return frameInfos(tab.Page), nil })
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if match(f) {
			return map[string]any{"found": true, "frame": f}, nil
		}
	}
	return map[string]any{"found": false}, nil
}

func (s *toolset) frameByName(ctx context.Context, p frameNameParams) (any, error) {
	if p.FrameName == "" {
		return nil, invalid("frame_name cannot be empty")
	}
	return s.findFrame(ctx, p.TabTarget, func(f FrameInfo) bool { return f.Name == p.FrameName })
}

func (s *toolset) frameByURL(ctx context.Context, p frameURLParams) (any, error) {
	if p.URLPattern == "" {
		return nil, invalid("url_pattern cannot be empty")
	}
	match, err := URLMatcher(p.URLPattern, p.MatchType)
	if err != nil {
		return nil, err
	}
	return s.findFrame(ctx, p.TabTarget, func(f FrameInfo) bool { return match(NetworkEntry{URL: f.URL}) })
}

func (s *toolset) handleDialog(ctx context.Context, p dialogParams) (any, error) {
	action := p.Action
	if action == "" {
		action = "accept"
	}
	if action != "accept" && action != "dismiss" {
		return nil, invalid("invalid action %q (must be accept or dismiss)", p.Action)
	}
	if !s.m.Running() {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	armed := DialogAction{Accept: action == "accept", PromptText: p.PromptText, Persistent: p.Persistent}
	s.m.Dialogs().Arm(armed)
	return map[string]any{"armed": armed, "handled": s.m.Dialogs().History()}, nil
}

func (s *toolset) getConsoleLogs(ctx context.Context, p logParams) (any, error) {
	if !s.m.Running() {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	var out []ConsoleEntry
	for _, e := range s.m.Console(p.Clear) {
		if (p.TabID == "" || e.TabID == p.TabID) && (p.Type == "" || e.Type == p.Type) {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []ConsoleEntry{}
	}
	return map[string]any{"count": len(out), "messages": out}, nil
}

func (s *toolset) getPageErrors(ctx context.Context, p logParams) (any, error) {
	if !s.m.Running() {
		return nil, tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	var out []PageError
	for _, e := range s.m.PageErrors(p.Clear) {
		if p.TabID == "" || e.TabID == p.TabID {
			out = append(out, e)
		}
	}
	if out == nil {
		out = []PageError{}
	}
	return map[string]any{"count": len(out), "errors": out}, nil
}
