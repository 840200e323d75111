package browser

import (
	"context"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const maxTypedText = 100000

type fillParams struct {
	TabTarget
	Selector string `json:"selector"`
	Value    string `json:"value"`
	Timeout  int    `json:"timeout"`
}

type typeTextParams struct {
	TabTarget
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Delay    *int   `json:"delay"`
	Timeout  int    `json:"timeout"`
}

type pressKeyParams struct {
	TabTarget
	Key      string `json:"key"`
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

type selectOptionParams struct {
	TabTarget
	Selector string  `json:"selector"`
	Value    *string `json:"value"`
	Label    *string `json:"label"`
	Index    *int    `json:"index"`
	Timeout  int     `json:"timeout"`
}

type uploadParams struct {
	TabTarget
	Selector string `json:"selector"`
	FilePath string `json:"file_path"`
	Timeout  int    `json:"timeout"`
}

func (s *toolset) fillTools() []tools.Tool {
	return []tools.Tool{
		tools.New("fill",
			"Clear an input and fill it with a value.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector of the input"),
				"value":    tools.String("Value to fill"),
				"timeout":  tools.Timeout(),
			}), []string{"selector", "value"}),
			s.fill),

		tools.New("type_text",
			"Type text key by key into an element, like a person would.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector of the element"),
				"text":     tools.String("Text to type"),
				"delay":    tools.IntegerRange("Milliseconds between keystrokes (default 50)", 0, 1000),
				"timeout":  tools.Timeout(),
			}), []string{"selector", "text"}),
			s.typeText),

		tools.New("press_key",
			"Press a key or chord such as Enter, Tab or Control+A, optionally focused on an element.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"key":      tools.String("Key name, e.g. Enter, ArrowDown, Control+A"),
				"selector": tools.String("Element to focus first"),
				"timeout":  tools.Timeout(),
			}), []string{"key"}),
			s.pressKey),

		tools.New("select_option",
			"Select an option in a <select> element by value, label or index.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("CSS or XPath selector of the select element"),
				"value":    tools.String("Option value"),
				"label":    tools.String("Option label"),
				"index":    map[string]interface{}{"type": "integer", "minimum": 0, "description": "Option index"},
				"timeout":  tools.Timeout(),
			}), []string{"selector"}),
			s.selectOption),

		tools.New("upload_file",
			"Set the file of an <input type=file>.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector":  tools.String("CSS or XPath selector of the file input"),
				"file_path": tools.String("Local path of the file to upload"),
				"timeout":   tools.Timeout(),
			}), []string{"selector", "file_path"}),
			s.uploadFile),
	}
}

func (s *toolset) fill(ctx context.Context, p fillParams) (any, error) {
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.Fill(p.Value, playwright.LocatorFillOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"filled": p.Selector, "length": len(p.Value)}, nil
}

func (s *toolset) typeText(ctx context.Context, p typeTextParams) (any, error) {
	if len(p.Text) > maxTypedText {
		return nil, invalid("text too long (max %d characters)", maxTypedText)
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	delay := 50
	if p.Delay != nil {
		delay = *p.Delay
	}
	err = run(ctx, tab, func() error {
		return loc.PressSequentially(p.Text, playwright.LocatorPressSequentiallyOptions{
			Delay:   playwright.Float(float64(delay)),
			Timeout: playwright.Float(s.t.action(p.Timeout)),
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"typed": len(p.Text), "selector": p.Selector}, nil
}

func (s *toolset) pressKey(ctx context.Context, p pressKeyParams) (any, error) {
	if p.Key == "" {
		return nil, invalid("key cannot be empty")
	}
	if p.Selector != "" {
		tab, loc, err := s.element(p.TabTarget, p.Selector)
		if err != nil {
			return nil, err
		}
		err = run(ctx, tab, func() error {
			return loc.Press(p.Key, playwright.LocatorPressOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"pressed": p.Key, "selector": p.Selector}, nil
	}

	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, tab, func() error { return tab.Page.Keyboard().Press(p.Key) }); err != nil {
		return nil, err
	}
	return map[string]string{"pressed": p.Key}, nil
}

func (s *toolset) selectOption(ctx context.Context, p selectOptionParams) (any, error) {
	var values playwright.SelectOptionValues
	switch {
	case p.Value != nil:
		values.Values = &[]string{*p.Value}
	case p.Label != nil:
		values.Labels = &[]string{*p.Label}
	case p.Index != nil:
		values.Indexes = &[]int{*p.Index}
	default:
		return nil, invalid("one of value, label or index is required")
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	selected, err := call(ctx, tab, func() ([]string, error) {
		return loc.SelectOption(values, playwright.LocatorSelectOptionOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"selector": p.Selector, "selected": selected}, nil
}

func (s *toolset) uploadFile(ctx context.Context, p uploadParams) (any, error) {
	if err := ValidatePath(p.FilePath, true); err != nil {
		return nil, err
	}
	tab, loc, err := s.element(p.TabTarget, p.Selector)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.SetInputFiles(p.FilePath, playwright.LocatorSetInputFilesOptions{Timeout: playwright.Float(s.t.action(p.Timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"uploaded": filepath.Base(p.FilePath), "selector": p.Selector}, nil
}
