package browser

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const domSummaryScript = `() => ({
	url: location.href,
	title: document.title,
	element_count: document.getElementsByTagName('*').length,
	text_length: (document.body ? document.body.innerText : '').length,
	forms: document.forms.length,
	links: document.links.length,
	inputs: document.querySelectorAll('input, textarea, select').length,
})`

// DOMSummary is the coarse page shape recorded in a state snapshot.
type DOMSummary struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	ElementCount int    `json:"element_count"`
	TextLength   int    `json:"text_length"`
	Forms        int    `json:"forms"`
	Links        int    `json:"links"`
	Inputs       int    `json:"inputs"`
}

// StateSnapshot is the browser-visible state of one tab at a point in time.
type StateSnapshot struct {
	ID             string            `json:"snapshot_id"`
	TabID          string            `json:"tab_id"`
	TakenAt        time.Time         `json:"taken_at"`
	Cookies        map[string]string `json:"cookies"`
	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
	DOM            DOMSummary        `json:"dom"`
	RequestsSeen   int64             `json:"requests_seen"`
}

// MapDiff lists key-level changes between two string maps.
type MapDiff struct {
	Added   map[string]string    `json:"added,omitempty"`
	Removed map[string]string    `json:"removed,omitempty"`
	Changed map[string][2]string `json:"changed,omitempty"`
}

// Empty reports whether nothing changed.
func (d MapDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// StateDiff is the result of diff_state.
type StateDiff struct {
	SnapshotID     string            `json:"snapshot_id"`
	ElapsedMS      int64             `json:"elapsed_ms"`
	Cookies        MapDiff           `json:"cookies"`
	LocalStorage   MapDiff           `json:"local_storage"`
	SessionStorage MapDiff           `json:"session_storage"`
	DOM            map[string][2]any `json:"dom,omitempty"`
	NewRequests    int64             `json:"new_requests"`
	Changed        bool              `json:"changed"`
	Summary        []string          `json:"summary"`
}

type snapshotParams struct {
	TabTarget
	SnapshotID string `json:"snapshot_id"`
}

func (p snapshotParams) id() string {
	if p.SnapshotID == "" {
		return "default"
	}
	return p.SnapshotID
}

func (s *toolset) stateTools() []tools.Tool {
	schema := func() map[string]interface{} {
		return tools.BaseToolSchema(withTab(map[string]interface{}{
			"snapshot_id": tools.String("Snapshot name (default \"default\")"),
		}), nil)
	}
	return []tools.Tool{
		tools.New("snapshot_state",
			"Record cookies, storage, page shape and the request counter under a name for a later diff_state.",
			schema(),
			s.snapshotState),

		tools.New("diff_state",
			"Compare the current state against a snapshot taken with snapshot_state.",
			schema(),
			s.diffState),
	}
}

// saveSnapshot stores snap for the running session.
func (m *Manager) saveSnapshot(snap StateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inst == nil {
		return tools.Errorf(tools.KindPreconditionViolation, errNotLaunchedMsg)
	}
	if m.snapshots == nil {
		m.snapshots = make(map[string]StateSnapshot)
	}
	m.snapshots[snap.ID] = snap
	return nil
}

func (m *Manager) snapshot(id string) (StateSnapshot, []string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[id]
	ids := make([]string, 0, len(m.snapshots))
	for k := range m.snapshots {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return snap, ids, ok
}

// captureState reads the current state of the target tab.
func (s *toolset) captureState(ctx context.Context, target TabTarget, id string) (StateSnapshot, error) {
	tab, err := s.page(target)
	if err != nil {
		return StateSnapshot{}, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return StateSnapshot{}, err
	}
	snap := StateSnapshot{ID: id, TabID: tab.ID, TakenAt: time.Now(), Cookies: map[string]string{}}

	cookies, err := call(ctx, nil, func() ([]playwright.Cookie, error) { return bc.Cookies() })
	if err != nil {
		return StateSnapshot{}, err
	}
	for _, c := range cookies {
		snap.Cookies[c.Name+"@"+c.Domain] = c.Value
	}
	if snap.LocalStorage, err = s.readStorage(ctx, target, areaLocal); err != nil {
		return StateSnapshot{}, err
	}
	if snap.SessionStorage, err = s.readStorage(ctx, target, areaSession); err != nil {
		return StateSnapshot{}, err
	}
	v, err := call(ctx, tab, func() (interface{}, error) { return tab.Page.Evaluate(domSummaryScript) })
	if err != nil {
		return StateSnapshot{}, err
	}
	m, _ := v.(map[string]interface{})
	snap.DOM = DOMSummary{
		URL:          str(m, "url"),
		Title:        str(m, "title"),
		ElementCount: int(num(m, "element_count")),
		TextLength:   int(num(m, "text_length")),
		Forms:        int(num(m, "forms")),
		Links:        int(num(m, "links")),
		Inputs:       int(num(m, "inputs")),
	}
	snap.RequestsSeen = s.m.Network().Seen()
	return snap, nil
}

func (s *toolset) snapshotState(ctx context.Context, p snapshotParams) (any, error) {
	snap, err := s.captureState(ctx, p.TabTarget, p.id())
	if err != nil {
		return nil, err
	}
	if err := s.m.saveSnapshot(snap); err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot_id":     snap.ID,
		"tab_id":          snap.TabID,
		"url":             snap.DOM.URL,
		"cookies":         len(snap.Cookies),
		"local_storage":   len(snap.LocalStorage),
		"session_storage": len(snap.SessionStorage),
		"element_count":   snap.DOM.ElementCount,
	}, nil
}

func (s *toolset) diffState(ctx context.Context, p snapshotParams) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	before, ids, ok := s.m.snapshot(p.id())
	if !ok {
		if len(ids) == 0 {
			return nil, tools.Errorf(tools.KindPreconditionViolation, "no snapshot %q; call snapshot_state first", p.id())
		}
		return nil, tools.Errorf(tools.KindPreconditionViolation, "no snapshot %q; available: %v", p.id(), ids)
	}
	after, err := s.captureState(ctx, p.TabTarget, before.ID)
	if err != nil {
		return nil, err
	}
	return compareStates(before, after), nil
}

// diffMaps reports keys added, removed or changed going from before to after.
func diffMaps(before, after map[string]string) MapDiff {
	d := MapDiff{}
	for k, a := range after {
		b, ok := before[k]
		switch {
		case !ok:
			if d.Added == nil {
				d.Added = map[string]string{}
			}
			d.Added[k] = a
		case a != b:
			if d.Changed == nil {
				d.Changed = map[string][2]string{}
			}
			d.Changed[k] = [2]string{b, a}
		}
	}
	for k, b := range before {
		if _, ok := after[k]; !ok {
			if d.Removed == nil {
				d.Removed = map[string]string{}
			}
			d.Removed[k] = b
		}
	}
	return d
}

func compareStates(before, after StateSnapshot) StateDiff {
	d := StateDiff{
		SnapshotID:     before.ID,
		ElapsedMS:      after.TakenAt.Sub(before.TakenAt).Milliseconds(),
		Cookies:        diffMaps(before.Cookies, after.Cookies),
		LocalStorage:   diffMaps(before.LocalStorage, after.LocalStorage),
		SessionStorage: diffMaps(before.SessionStorage, after.SessionStorage),
		NewRequests:    after.RequestsSeen - before.RequestsSeen,
		Summary:        []string{},
	}
	dom := map[string][2]any{}
	note := func(field string, b, a any) {
		if b != a {
			dom[field] = [2]any{b, a}
		}
	}
	note("url", before.DOM.URL, after.DOM.URL)
	note("title", before.DOM.Title, after.DOM.Title)
	note("element_count", before.DOM.ElementCount, after.DOM.ElementCount)
	note("text_length", before.DOM.TextLength, after.DOM.TextLength)
	note("forms", before.DOM.Forms, after.DOM.Forms)
	note("links", before.DOM.Links, after.DOM.Links)
	note("inputs", before.DOM.Inputs, after.DOM.Inputs)
	if len(dom) > 0 {
		d.DOM = dom
	}

	summarize := func(what string, md MapDiff) {
		if !md.Empty() {
			d.Summary = append(d.Summary, fmt.Sprintf("%s: +%d -%d ~%d", what, len(md.Added), len(md.Removed), len(md.Changed)))
		}
	}
	summarize("cookies", d.Cookies)
	summarize("localStorage", d.LocalStorage)
	summarize("sessionStorage", d.SessionStorage)
	if _, ok := dom["url"]; ok {
		d.Summary = append(d.Summary, fmt.Sprintf("navigated from %s to %s", before.DOM.URL, after.DOM.URL))
	}
	if _, ok := dom["element_count"]; ok {
		d.Summary = append(d.Summary, fmt.Sprintf("element count %d -> %d", before.DOM.ElementCount, after.DOM.ElementCount))
	}
	if d.NewRequests > 0 {
		d.Summary = append(d.Summary, fmt.Sprintf("%d new requests", d.NewRequests))
	}
	d.Changed = len(d.Summary) > 0 || len(dom) > 0
	return d
}
