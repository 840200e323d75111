package browser

import (
	"sync"
	"time"
)

const (
	maxConsoleEntries = 1000
	maxPageErrors     = 200
	maxDialogHistory  = 50
)

// ring is a bounded, ordered, concurrency-safe list.
type ring[T any] struct {
	mu    sync.Mutex
	max   int
	items []T
}

func newRing[T any](max int) *ring[T] {
	return &ring[T]{max: max}
}

func (r *ring[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) >= r.max {
		r.items = r.items[1:]
	}
	r.items = append(r.items, v)
}

// snapshot copies the items, optionally clearing them.
func (r *ring[T]) snapshot(clear bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	if clear {
		r.items = nil
	}
	return out
}

func (r *ring[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// ConsoleEntry is one console message emitted by a page.
type ConsoleEntry struct {
	TabID     string    `json:"tab_id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PageError is an uncaught exception thrown in a page.
type PageError struct {
	TabID     string    `json:"tab_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// dialog is the subset of playwright.Dialog the handler needs.
type dialog interface {
	Type() string
	Message() string
	Accept(promptText ...string) error
	Dismiss() error
}

// DialogAction is an armed response to the next dialog.
type DialogAction struct {
	Accept     bool   `json:"accept"`
	PromptText string `json:"prompt_text,omitempty"`
	// Persistent actions stay armed after handling a dialog.
	Persistent bool `json:"persistent,omitempty"`
}

// DialogRecord describes a dialog that was handled.
type DialogRecord struct {
	TabID     string    `json:"tab_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Armed     bool      `json:"armed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogHandler answers page dialogs. One action is armed at a time; it is
// consumed by the next dialog unless persistent. Dialogs arriving with
// nothing armed are dismissed so the page never blocks.
type DialogHandler struct {
	mu      sync.Mutex
	armed   *DialogAction
	history *ring[DialogRecord]
}

// NewDialogHandler creates a handler with nothing armed.
func NewDialogHandler() *DialogHandler {
	return &DialogHandler{history: newRing[DialogRecord](maxDialogHistory)}
}

// Arm replaces the pending action.
func (h *DialogHandler) Arm(a DialogAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = &a
}

// Armed returns the pending action, if any.
func (h *DialogHandler) Armed() (DialogAction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.armed == nil {
		return DialogAction{}, false
	}
	return *h.armed, true
}

// Reset disarms the handler and forgets its history.
func (h *DialogHandler) Reset() {
	h.mu.Lock()
	h.armed = nil
	h.mu.Unlock()
	h.history.snapshot(true)
}

// History returns handled dialogs, oldest first.
func (h *DialogHandler) History() []DialogRecord {
	return h.history.snapshot(false)
}

func (h *DialogHandler) handle(tabID string, d dialog) DialogRecord {
	h.mu.Lock()
	action := h.armed
	if action != nil && !action.Persistent {
		h.armed = nil
	}
	h.mu.Unlock()

	rec := DialogRecord{
		TabID:     tabID,
		Type:      d.Type(),
		Message:   d.Message(),
		Armed:     action != nil,
		Timestamp: time.Now(),
	}

	var err error
	switch {
	case action != nil && action.Accept:
		rec.Action = "accept"
		if action.PromptText != "" && rec.Type == "prompt" {
			err = d.Accept(action.PromptText)
		} else {
			err = d.Accept()
		}
	default:
		rec.Action = "dismiss"
		err = d.Dismiss()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	h.history.add(rec)
	return rec
}
