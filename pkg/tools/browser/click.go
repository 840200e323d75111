package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

var mouseButtons = map[string]*playwright.MouseButton{
	"left":   playwright.MouseButtonLeft,
	"right":  playwright.MouseButtonRight,
	"middle": playwright.MouseButtonMiddle,
}

func mouseButton(name string) *playwright.MouseButton {
	if b, ok := mouseButtons[name]; ok {
		return b
	}
	return playwright.MouseButtonLeft
}

// element resolves selector to the first matching element on the tab.
func (s *toolset) element(target TabTarget, selector string) (*Tab, playwright.Locator, error) {
	if err := ValidateSelector(selector); err != nil {
		return nil, nil, err
	}
	tab, err := s.page(target)
	if err != nil {
		return nil, nil, err
	}
	return tab, locate(tab.Page, selector).First(), nil
}

type clickParams struct {
	TabTarget
	Selector   string `json:"selector"`
	Button     string `json:"button"`
	ClickCount int    `json:"click_count"`
	Delay      int    `json:"delay"`
	Timeout    int    `json:"timeout"`
}

type selectorParams struct {
	TabTarget
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

type scrollParams struct {
	TabTarget
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p *point) position() *playwright.Position {
	if p == nil {
		return nil
	}
	return &playwright.Position{X: p.X, Y: p.Y}
}

type dragParams struct {
	TabTarget
	SourceSelector string `json:"source_selector"`
	TargetSelector string `json:"target_selector"`
	SourcePosition *point `json:"source_position"`
	TargetPosition *point `json:"target_position"`
	Timeout        int    `json:"timeout"`
}

func positionSchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": desc,
		"properties": map[string]interface{}{
			"x": tools.Number("X offset in pixels from the element's top-left corner"),
			"y": tools.Number("Y offset in pixels from the element's top-left corner"),
		},
		"required": []string{"x", "y"},
	}
}

func (s *toolset) clickTools() []tools.Tool {
	selectorOnly := func() map[string]interface{} {
		return tools.BaseToolSchema(withTab(map[string]interface{}{
			"selector": tools.String("CSS or XPath selector"),
			"timeout":  tools.Timeout(),
		}), []string{"selector"})
	}
	return []tools.Tool{
		tools.New("click",
			"Click an element.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":    tools.String("CSS or XPath selector"),
				"button":      tools.Enum("Mouse button", "left", "right", "middle"),
				"click_count": tools.IntegerRange("Number of clicks (2 for double click)", 1, 3),
				"delay":       tools.IntegerRange("Milliseconds between mousedown and mouseup", 0, 5000),
				"timeout":     tools.Timeout(),
			}), []string{"selector"}),
			s.click),

		tools.New("hover", "Hover over an element.", selectorOnly(), s.hover),
		tools.New("check", "Check a checkbox or radio button.", selectorOnly(), s.check),
		tools.New("uncheck", "Uncheck a checkbox.", selectorOnly(), s.uncheck),

		tools.New("scroll",
			"Scroll the page by an offset, or scroll an element into view when a selector is given.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"x":        tools.IntegerRange("Horizontal scroll in pixels", -100000, 100000),
				"y":        tools.IntegerRange("Vertical scroll in pixels (positive is down)", -100000, 100000),
				"selector": tools.String("Element to scroll into view instead"),
				"timeout":  tools.Timeout(),
			}), nil),
			s.scroll),

		tools.New("drag_and_drop",
			"Drag one element onto another.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"source_selector": tools.String("Element to drag"),
				"target_selector": tools.String("Element to drop onto"),
				"source_position": positionSchema("Point inside the source to grab"),
				"target_position": positionSchema("Point inside the target to drop at"),
				"timeout":         tools.Timeout(),
			}), []string{"source_selector", "target_selector"}),
			s.dragAndDrop),
	}
}

func (s *toolset) click(ctx context.Context, p clickParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	opts := playwright.LocatorClickOptions{
		Button:  mouseButton(p.Button),
		Timeout: playwright.Float(s.t.action(p.Timeout)),
	}
	if p.ClickCount > 0 {
		opts.ClickCount = playwright.Int(p.ClickCount)
	}
	if p.Delay > 0 {
		opts.Delay = playwright.Float(float64(p.Delay))
	}
	if err := run(ctx, tab, func() error { return loc.Click(opts) }); err != nil {
		return nil, err
	}
	return map[string]any{"clicked": p.Selector, "url": tab.Page.URL()}, nil
}

func (s *toolset) hover(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.Hover(playwright.LocatorHoverOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"hovered": p.Selector}, nil
}

func (s *toolset) check(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.Check(playwright.LocatorCheckOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"selector": p.Selector, "checked": true}, nil
}

func (s *toolset) uncheck(ctx context.Context, p selectorParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.Uncheck(playwright.LocatorUncheckOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"selector": p.Selector, "checked": false}, nil
}

func (s *toolset) scroll(ctx context.Context, p scrollParams) (any, error) {
	if p.Selector != "" {
		tab, loc, err := s.element(p.TabTarget, p.Selector)
		if err != nil {
			return nil, err
		}
		err = run(ctx, tab, func() error {
			return loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
				Timeout: playwright.Float(s.t.action(p.Timeout)),
			})
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"scrolled_into_view": p.Selector}, nil
	}

	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	pos, err := call(ctx, tab, func() (interface{}, error) {
		return tab.Page.Evaluate(`([x, y]) => { window.scrollBy(x, y); return {x: window.scrollX, y: window.scrollY}; }`, []int{p.X, p.Y})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"scrolled_by": map[string]int{"x": p.X, "y": p.Y}, "position": pos}, nil
}

func (s *toolset) dragAndDrop(ctx context.Context, p dragParams) (any, error) {
	if err := ValidateSelector(p.TargetSelector); err != nil {
		return nil, err
	}
	tab, source, err := s.element(p.TabTarget, p.SourceSelector)
	if err != nil {
		return nil, err
	}
	target := locate(tab.Page, p.TargetSelector).First()
	err = run(ctx, tab, func() error {
		return source.DragTo(target, playwright.LocatorDragToOptions{
			SourcePosition: p.SourcePosition.position(),
			TargetPosition: p.TargetPosition.position(),
			Timeout:        playwright.Float(s.t.action(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"dragged": p.SourceSelector, "dropped_on": p.TargetSelector}, nil
}
