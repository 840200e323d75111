package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const (
	maxBatchSteps   = 100
	defaultStepWait = 1000
)

// BatchStep is one action of batch_actions.
type BatchStep struct {
	Action   string `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    any    `json:"value,omitempty"`
	Key      string `json:"key,omitempty"`
	Label    string `json:"label,omitempty"`
	Index    *int   `json:"index,omitempty"`
	MS       *int   `json:"ms,omitempty"`
	Delay    *int   `json:"delay,omitempty"`
	State    string `json:"state,omitempty"`
}

// StepResult reports a completed step.
type StepResult struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

// Progress is the result of a compound tool. When a step fails it is
// attached to the error as details.
type Progress struct {
	Completed  int          `json:"completed"`
	Total      int          `json:"total"`
	FailedStep *int         `json:"failed_step,omitempty"`
	ErrorKind  tools.Kind   `json:"error_kind,omitempty"`
	Error      string       `json:"error,omitempty"`
	Results    []StepResult `json:"results"`
}

// fail stops progress at step and returns an error of the step's kind that
// carries the partial results.
func (p *Progress) fail(step int, err error) error {
	te := tools.AsError(err)
	p.FailedStep = &step
	p.ErrorKind = te.Kind
	p.Error = te.Message
	return &tools.Error{
		Kind:    te.Kind,
		Message: fmt.Sprintf("step %d of %d failed: %s", step, p.Total, te.Message),
		Details: p,
		Cause:   te,
	}
}

// FormField is one selector/value pair of fill_form.
type FormField struct {
	Selector string
	Value    string
}

// FormFields decodes a JSON object into fields, keeping document order.
type FormFields []FormField

// UnmarshalJSON walks the object's tokens so fields are filled in the order
// the caller wrote them.
func (f *FormFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields must be an object mapping selectors to values")
	}
	var out FormFields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, FormField{Selector: key, Value: stepValue(v)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// stepValue renders a JSON scalar the way it would be typed.
func stepValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

type batchParams struct {
	TabTarget
	Actions []BatchStep `json:"actions"`
	Timeout int         `json:"timeout"`
}

type fillFormParams struct {
	TabTarget
	Fields         FormFields `json:"fields"`
	SubmitSelector string     `json:"submit_selector"`
	Timeout        int        `json:"timeout"`
}

type clickTextParams struct {
	TabTarget
	Text    string `json:"text"`
	Exact   bool   `json:"exact"`
	Tag     string `json:"tag"`
	Timeout int    `json:"timeout"`
}

type fillByLabelParams struct {
	TabTarget
	Label   string `json:"label"`
	Value   string `json:"value"`
	Exact   bool   `json:"exact"`
	Timeout int    `json:"timeout"`
}

type clickRoleParams struct {
	TabTarget
	Role    string `json:"role"`
	Name    string `json:"name"`
	Exact   bool   `json:"exact"`
	Timeout int    `json:"timeout"`
}

type fillPlaceholderParams struct {
	TabTarget
	Placeholder string `json:"placeholder"`
	Value       string `json:"value"`
	Exact       bool   `json:"exact"`
	Timeout     int    `json:"timeout"`
}

func (s *toolset) compoundTools() []tools.Tool {
	step := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":   tools.Enum("Step action", "click", "fill", "type", "press", "select", "check", "uncheck", "hover", "wait", "wait_for"),
			"selector": tools.String("Target selector"),
			"value":    map[string]interface{}{"description": "Value for fill, type and select"},
			"key":      tools.String("Key for press"),
			"label":    tools.String("Option label for select"),
			"index":    tools.Integer("Option index for select"),
			"ms":       tools.IntegerRange("Milliseconds for wait (default 1000)", 0, maxSleep),
			"delay":    tools.Integer("Per-key delay for type (default 50)"),
			"state":    tools.Enum("State for wait_for (default visible)", "attached", "detached", "visible", "hidden"),
		},
		"required": []string{"action"},
	}
	return []tools.Tool{
		tools.New("batch_actions",
			"Run several actions in order, stopping at the first failure. A failure reports how many steps completed and which one failed.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"actions": tools.Array("Steps to run, e.g. [{\"action\":\"fill\",\"selector\":\"#q\",\"value\":\"go\"},{\"action\":\"press\",\"key\":\"Enter\"}]", step),
				"timeout": tools.Timeout(),
			}), []string{"actions"}),
			s.batchActions),

		tools.New("fill_form",
			"Fill several fields in the order given, then optionally click a submit button. Stops at the first failure.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"fields":          tools.Object("Map of selector to value, e.g. {\"#user\": \"john\", \"#pass\": \"secret\"}"),
				"submit_selector": tools.String("Button to click after filling"),
				"timeout":         tools.Timeout(),
			}), []string{"fields"}),
			s.fillForm),

		tools.New("click_text",
			"Click the first element containing the given text. No selector needed.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"text":    tools.String("Visible text to click"),
				"exact":   tools.Boolean("Match the whole text exactly"),
				"tag":     tools.String("Restrict to a tag, e.g. button or a"),
				"timeout": tools.Timeout(),
			}), []string{"text"}),
			s.clickText),

		tools.New("fill_by_label",
			"Fill the input associated with a label. No selector needed.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"label":   tools.String("Label text"),
				"value":   tools.String("Value to fill"),
				"exact":   tools.Boolean("Match the label exactly"),
				"timeout": tools.Timeout(),
			}), []string{"label", "value"}),
			s.fillByLabel),

		tools.New("click_role",
			"Click the first element with an ARIA role and optional accessible name.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"role":    tools.String("ARIA role, e.g. button, link, checkbox, tab"),
				"name":    tools.String("Accessible name"),
				"exact":   tools.Boolean("Match the name exactly"),
				"timeout": tools.Timeout(),
			}), []string{"role"}),
			s.clickRole),

		tools.New("fill_placeholder",
			"Fill the input with the given placeholder text. No selector needed.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"placeholder": tools.String("Placeholder text"),
				"value":       tools.String("Value to fill"),
				"exact":       tools.Boolean("Match the placeholder exactly"),
				"timeout":     tools.Timeout(),
			}), []string{"placeholder", "value"}),
			s.fillPlaceholder),
	}
}

// runStep dispatches one batch step to the matching single-action handler.
func (s *toolset) runStep(ctx context.Context, target TabTarget, st BatchStep, timeout int) (string, error) {
	needSelector := func() error {
		if st.Selector == "" {
			return invalid("%s requires selector", st.Action)
		}
		return nil
	}
	switch st.Action {
	case "click":
		if err := needSelector(); err != nil {
			return "", err
		}
		_, err := s.click(ctx, clickParams{TabTarget: target, Selector: st.Selector, Timeout: timeout})
		return st.Selector, err
	case "fill":
		if err := needSelector(); err != nil {
			return "", err
		}
		if st.Value == nil {
			return "", invalid("fill requires value")
		}
		_, err := s.fill(ctx, fillParams{TabTarget: target, Selector: st.Selector, Value: stepValue(st.Value), Timeout: timeout})
		return st.Selector, err
	case "type":
		if err := needSelector(); err != nil {
			return "", err
		}
		if st.Value == nil {
			return "", invalid("type requires value")
		}
		_, err := s.typeText(ctx, typeTextParams{TabTarget: target, Selector: st.Selector, Text: stepValue(st.Value), Delay: st.Delay, Timeout: timeout})
		return st.Selector, err
	case "press":
		if st.Key == "" {
			return "", invalid("press requires key")
		}
		_, err := s.pressKey(ctx, pressKeyParams{TabTarget: target, Key: st.Key, Selector: st.Selector, Timeout: timeout})
		return st.Key, err
	case "select":
		if err := needSelector(); err != nil {
			return "", err
		}
		p := selectOptionParams{TabTarget: target, Selector: st.Selector, Index: st.Index, Timeout: timeout}
		if st.Value != nil {
			v := stepValue(st.Value)
			p.Value = &v
		} else if st.Label != "" {
			p.Label = &st.Label
		}
		_, err := s.selectOption(ctx, p)
		return st.Selector, err
	case "check":
		if err := needSelector(); err != nil {
			return "", err
		}
		_, err := s.check(ctx, selectorParams{TabTarget: target, Selector: st.Selector, Timeout: timeout})
		return st.Selector, err
	case "uncheck":
		if err := needSelector(); err != nil {
			return "", err
		}
		_, err := s.uncheck(ctx, selectorParams{TabTarget: target, Selector: st.Selector, Timeout: timeout})
		return st.Selector, err
	case "hover":
		if err := needSelector(); err != nil {
			return "", err
		}
		_, err := s.hover(ctx, selectorParams{TabTarget: target, Selector: st.Selector, Timeout: timeout})
		return st.Selector, err
	case "wait":
		ms := defaultStepWait
		if st.MS != nil {
			ms = *st.MS
		}
		_, err := s.sleep(ctx, sleepParams{TabTarget: target, Milliseconds: ms})
		return strconv.Itoa(ms) + "ms", err
	case "wait_for":
		if err := needSelector(); err != nil {
			return "", err
		}
		_, err := s.waitForSelector(ctx, waitSelectorParams{TabTarget: target, Selector: st.Selector, State: st.State, Timeout: timeout})
		return st.Selector, err
	}
	return "", invalid("unknown action %q", st.Action)
}

func (s *toolset) batchActions(ctx context.Context, p batchParams) (any, error) {
	if len(p.Actions) == 0 {
		return nil, invalid("no actions provided")
	}
	if len(p.Actions) > maxBatchSteps {
		return nil, invalid("too many actions (max %d)", maxBatchSteps)
	}
	if _, err := s.page(p.TabTarget); err != nil {
		return nil, err
	}

	progress := &Progress{Total: len(p.Actions), Results: []StepResult{}}
	for i, st := range p.Actions {
		target, err := s.runStep(ctx, p.TabTarget, st, p.Timeout)
		if err != nil {
			s.logger.Debug("batch step failed", "step", i, "action", st.Action, "error", err)
			return nil, progress.fail(i, err)
		}
		progress.Completed++
		progress.Results = append(progress.Results, StepResult{Step: i, Action: st.Action, Target: target})
	}
	return progress, nil
}

func (s *toolset) fillForm(ctx context.Context, p fillFormParams) (any, error) {
	if len(p.Fields) == 0 {
		return nil, invalid("no fields provided")
	}
	for _, f := range p.Fields {
		if err := ValidateSelector(f.Selector); err != nil {
			return nil, err
		}
	}
	if p.SubmitSelector != "" {
		if err := ValidateSelector(p.SubmitSelector); err != nil {
			return nil, err
		}
	}
	if _, err := s.page(p.TabTarget); err != nil {
		return nil, err
	}

	total := len(p.Fields)
	if p.SubmitSelector != "" {
		total++
	}
	progress := &Progress{Total: total, Results: []StepResult{}}
	for i, f := range p.Fields {
		if _, err := s.fill(ctx, fillParams{TabTarget: p.TabTarget, Selector: f.Selector, Value: f.Value, Timeout: p.Timeout}); err != nil {
			return nil, progress.fail(i, err)
		}
		progress.Completed++
		progress.Results = append(progress.Results, StepResult{Step: i, Action: "fill", Target: f.Selector})
	}
	if p.SubmitSelector != "" {
		step := len(p.Fields)
		if _, err := s.click(ctx, clickParams{TabTarget: p.TabTarget, Selector: p.SubmitSelector, Timeout: p.Timeout}); err != nil {
			return nil, progress.fail(step, err)
		}
		progress.Completed++
		progress.Results = append(progress.Results, StepResult{Step: step, Action: "click", Target: p.SubmitSelector})
	}
	return progress, nil
}

// clickQuery clicks the first element q resolves to.
func (s *toolset) clickQuery(ctx context.Context, target TabTarget, q Query, timeout int) (any, error) {
	tab, err := s.page(target)
	if err != nil {
		return nil, err
	}
	loc, desc, err := q.resolve(tab.Page)
	if err != nil {
		return nil, err
	}
	return s.clickFirst(ctx, tab, loc, desc, timeout)
}

func (s *toolset) clickFirst(ctx context.Context, tab *Tab, loc playwright.Locator, desc string, timeout int) (any, error) {
	err := run(ctx, tab, func() error {
		return loc.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(s.t.action(timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"clicked": desc, "url": tab.Page.URL()}, nil
}

// fillQuery fills the element q resolves to.
func (s *toolset) fillQuery(ctx context.Context, target TabTarget, q Query, value string, timeout int) (any, error) {
	tab, err := s.page(target)
	if err != nil {
		return nil, err
	}
	loc, desc, err := q.resolve(tab.Page)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		return loc.First().Fill(value, playwright.LocatorFillOptions{Timeout: playwright.Float(s.t.action(timeout))})
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"filled": desc, "length": len(value)}, nil
}

func (s *toolset) clickText(ctx context.Context, p clickTextParams) (any, error) {
	if p.Text == "" {
		return nil, invalid("text cannot be empty")
	}
	if p.Tag == "" {
		return s.clickQuery(ctx, p.TabTarget, Query{Text: p.Text, Exact: p.Exact}, p.Timeout)
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	pseudo := ":has-text"
	if p.Exact {
		pseudo = ":text-is"
	}
	selector := p.Tag + pseudo + "(" + strconv.Quote(p.Text) + ")"
	return s.clickFirst(ctx, tab, tab.Page.Locator(selector), selector, p.Timeout)
}

func (s *toolset) fillByLabel(ctx context.Context, p fillByLabelParams) (any, error) {
	if p.Label == "" {
		return nil, invalid("label cannot be empty")
	}
	return s.fillQuery(ctx, p.TabTarget, Query{Label: p.Label, Exact: p.Exact}, p.Value, p.Timeout)
}

func (s *toolset) clickRole(ctx context.Context, p clickRoleParams) (any, error) {
	if p.Role == "" {
		return nil, invalid("role cannot be empty")
	}
	return s.clickQuery(ctx, p.TabTarget, Query{Role: p.Role, Name: p.Name, Exact: p.Exact}, p.Timeout)
}

func (s *toolset) fillPlaceholder(ctx context.Context, p fillPlaceholderParams) (any, error) {
	if p.Placeholder == "" {
		return nil, invalid("placeholder cannot be empty")
	}
	return s.fillQuery(ctx, p.TabTarget, Query{Placeholder: p.Placeholder, Exact: p.Exact}, p.Value, p.Timeout)
}
