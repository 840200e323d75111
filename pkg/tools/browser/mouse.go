package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const maxMoveSteps = 1000

type mouseMoveParams struct {
	TabTarget
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Steps int     `json:"steps"`
}

type mouseClickParams struct {
	TabTarget
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Button     string  `json:"button"`
	ClickCount int     `json:"click_count"`
	Delay      int     `json:"delay"`
}

type mouseDragParams struct {
	TabTarget
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
	Steps  int     `json:"steps"`
}

type mouseWheelParams struct {
	TabTarget
	DeltaX float64 `json:"delta_x"`
	DeltaY float64 `json:"delta_y"`
}

type mouseButtonParams struct {
	TabTarget
	Button     string `json:"button"`
	ClickCount int    `json:"click_count"`
}

func (s *toolset) mouseTools() []tools.Tool {
	button := tools.Enum("Mouse button (default left)", "left", "right", "middle")
	coord := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "minimum": 0, "description": desc}
	}
	return []tools.Tool{
		tools.New("mouse_move_xy",
			"Move the mouse to viewport coordinates.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"x":     coord("X in CSS pixels"),
				"y":     coord("Y in CSS pixels"),
				"steps": tools.IntegerRange("Intermediate move events (default 1)", 1, maxMoveSteps),
			}), []string{"x", "y"}),
			s.mouseMove),

		tools.New("mouse_click_xy",
			"Click at viewport coordinates.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"x":           coord("X in CSS pixels"),
				"y":           coord("Y in CSS pixels"),
				"button":      button,
				"click_count": tools.IntegerRange("Number of clicks, 2 for a double click", 1, 3),
				"delay":       tools.IntegerRange("Delay between press and release in ms", 0, 10000),
			}), []string{"x", "y"}),
			s.mouseClick),

		tools.New("mouse_drag_xy",
			"Press at one point, move to another and release.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"start_x": coord("Start X"),
				"start_y": coord("Start Y"),
				"end_x":   coord("End X"),
				"end_y":   coord("End Y"),
				"steps":   tools.IntegerRange("Intermediate move events (default 5)", 1, maxMoveSteps),
			}), []string{"start_x", "start_y", "end_x", "end_y"}),
			s.mouseDrag),

		tools.New("mouse_wheel",
			"Dispatch a wheel event. Positive delta_y scrolls down.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"delta_x": tools.Number("Horizontal delta in pixels"),
				"delta_y": tools.Number("Vertical delta in pixels"),
			}), nil),
			s.mouseWheel),

		tools.New("mouse_down",
			"Press a mouse button at the current position.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"button":      button,
				"click_count": tools.IntegerRange("Click count reported to the page", 1, 3),
			}), nil),
			s.mouseDown),

		tools.New("mouse_up",
			"Release a mouse button at the current position.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"button":      button,
				"click_count": tools.IntegerRange("Click count reported to the page", 1, 3),
			}), nil),
			s.mouseUp),
	}
}

func checkButton(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := mouseButtons[name]; !ok {
		return invalid("invalid button %q (must be left, right or middle)", name)
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (s *toolset) mouseMove(ctx context.Context, p mouseMoveParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	steps := orDefault(p.Steps, 1)
	err = run(ctx, tab, func() error {
		return tab.Page.Mouse().Move(p.X, p.Y, playwright.MouseMoveOptions{Steps: playwright.Int(steps)})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"x": p.X, "y": p.Y, "steps": steps}, nil
}

func (s *toolset) mouseClick(ctx context.Context, p mouseClickParams) (any, error) {
	if err := checkButton(p.Button); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	count := orDefault(p.ClickCount, 1)
	err = run(ctx, tab, func() error {
		return tab.Page.Mouse().Click(p.X, p.Y, playwright.MouseClickOptions{
			Button:     mouseButton(p.Button),
			ClickCount: playwright.Int(count),
			Delay:      playwright.Float(float64(p.Delay)),
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"x": p.X, "y": p.Y, "button": *mouseButton(p.Button), "click_count": count}, nil
}

func (s *toolset) mouseDrag(ctx context.Context, p mouseDragParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	steps := orDefault(p.Steps, 5)
	err = run(ctx, tab, func() error {
		mouse := tab.Page.Mouse()
		if err := mouse.Move(p.StartX, p.StartY); err != nil {
			return err
		}
		if err := mouse.Down(); err != nil {
			return err
		}
		if err := mouse.Move(p.EndX, p.EndY, playwright.MouseMoveOptions{Steps: playwright.Int(steps)}); err != nil {
			_ = mouse.Up()
			return err
		}
		return mouse.Up()
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"from":  point{X: p.StartX, Y: p.StartY},
		"to":    point{X: p.EndX, Y: p.EndY},
		"steps": steps,
	}, nil
}

func (s *toolset) mouseWheel(ctx context.Context, p mouseWheelParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, tab, func() error { return tab.Page.Mouse().Wheel(p.DeltaX, p.DeltaY) }); err != nil {
		return nil, err
	}
	return map[string]float64{"delta_x": p.DeltaX, "delta_y": p.DeltaY}, nil
}

func (s *toolset) mouseDown(ctx context.Context, p mouseButtonParams) (any, error) {
	if err := checkButton(p.Button); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return tab.Page.Mouse().Down(playwright.MouseDownOptions{
			Button:     mouseButton(p.Button),
			ClickCount: playwright.Int(orDefault(p.ClickCount, 1)),
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"pressed": *mouseButton(p.Button)}, nil
}

func (s *toolset) mouseUp(ctx context.Context, p mouseButtonParams) (any, error) {
	if err := checkButton(p.Button); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return tab.Page.Mouse().Up(playwright.MouseUpOptions{
			Button:     mouseButton(p.Button),
			ClickCount: playwright.Int(orDefault(p.ClickCount, 1)),
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"released": *mouseButton(p.Button)}, nil
}
