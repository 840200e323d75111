package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

type eventKind int

const (
	evRequest eventKind = iota
	evResponse
	evRequestFailed
	evDialog
	evConsole
	evPageError
	evPageClosed
	evPopup
)

// event is a driver callback turned into data. Callbacks run on the driver's
// dispatch goroutine, so they only copy what they need and enqueue.
type event struct {
	kind  eventKind
	tabID string
	at    time.Time

	key     any
	entry   NetworkEntry
	resp    ResponseData
	raw     playwright.Response
	failure string

	dialog  dialog
	console ConsoleEntry
	pageErr PageError
	page    playwright.Page
}

// eventSink is the queue between driver callbacks and the pump. It belongs to
// one launch; callbacks from an earlier browser push into a dead sink.
type eventSink struct {
	ch     chan event
	closed chan struct{}
	once   sync.Once
	onDrop func()
}

func newEventSink(size int, onDrop func()) *eventSink {
	return &eventSink{
		ch:     make(chan event, size),
		closed: make(chan struct{}),
		onDrop: onDrop,
	}
}

// push enqueues ev without blocking; a full queue drops it.
func (s *eventSink) push(ev event) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.ch <- ev:
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// pushReliable enqueues events that must not be lost (dialogs block the
// page until answered). When the queue is full delivery moves to a
// goroutine so the driver's dispatcher never blocks.
func (s *eventSink) pushReliable(ev event) {
	select {
	case s.ch <- ev:
		return
	case <-s.closed:
		return
	default:
	}
	go func() {
		select {
		case s.ch <- ev:
		case <-s.closed:
		}
	}()
}

func (s *eventSink) close() {
	s.once.Do(func() { close(s.closed) })
}

// attach subscribes to the page's driver events.
func (m *Manager) attach(t *Tab, sink *eventSink) {
	if sink == nil {
		return
	}
	id := t.ID
	page := t.Page

	page.OnRequest(func(req playwright.Request) {
		e := NetworkEntry{
			TabID:          id,
			URL:            req.URL(),
			Method:         req.Method(),
			ResourceType:   req.ResourceType(),
			RequestHeaders: req.Headers(),
			Timestamp:      time.Now(),
		}
		if body, err := req.PostData(); err == nil {
			e.RequestBody = body
		}
		sink.push(event{kind: evRequest, tabID: id, key: req, entry: e, at: e.Timestamp})
	})

	page.OnResponse(func(resp playwright.Response) {
		data := ResponseData{
			TabID:      id,
			URL:        resp.URL(),
			Status:     resp.Status(),
			StatusText: resp.StatusText(),
			Headers:    resp.Headers(),
			At:         time.Now(),
		}
		var key any
		if req := resp.Request(); req != nil {
			key = req
			data.Timing = timingMap(req.Timing())
		}
		sink.push(event{kind: evResponse, tabID: id, key: key, resp: data, raw: resp, at: data.At})
	})

	page.OnRequestFailed(func(req playwright.Request) {
		failure := "request failed"
		if err := req.Failure(); err != nil {
			failure = err.Error()
		}
		sink.push(event{kind: evRequestFailed, tabID: id, key: req, entry: NetworkEntry{URL: req.URL(), ResourceType: req.ResourceType()}, failure: failure, at: time.Now()})
	})

	page.OnDialog(func(d playwright.Dialog) {
		sink.pushReliable(event{kind: evDialog, tabID: id, dialog: d, at: time.Now()})
	})

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		entry := ConsoleEntry{TabID: id, Type: msg.Type(), Text: msg.Text(), Timestamp: time.Now()}
		if loc := msg.Location(); loc != nil && loc.URL != "" {
			entry.Location = fmt.Sprintf("%s:%d:%d", loc.URL, loc.LineNumber, loc.ColumnNumber)
		}
		sink.push(event{kind: evConsole, tabID: id, console: entry, at: entry.Timestamp})
	})

	page.OnPageError(func(err error) {
		sink.push(event{kind: evPageError, tabID: id, pageErr: PageError{TabID: id, Message: err.Error(), Timestamp: time.Now()}})
	})

	page.OnClose(func(p playwright.Page) {
		sink.pushReliable(event{kind: evPageClosed, tabID: id, page: page, at: time.Now()})
	})
}

// pump is the single consumer of a sink. It feeds the network log, the
// dialog handler and the console buffers until the sink closes.
func (m *Manager) pump(sink *eventSink) {
	for {
		select {
		case <-sink.closed:
			return
		case ev := <-sink.ch:
			m.dispatch(ev)
		}
	}
}

func (m *Manager) dispatch(ev event) {
	switch ev.kind {
	case evRequest:
		capture, bodies := m.CaptureFlags()
		if !bodies {
			ev.entry.RequestBody = ""
		}
		m.network.AddRequest(ev.key, ev.entry, capture)
		if capture {
			m.metrics.RecordRequest(hostname(ev.entry.URL), ev.entry.ResourceType, false)
		}

	case evResponse:
		entry := m.network.CompleteResponse(ev.key, ev.resp, ev.raw)
		capture, bodies := m.CaptureFlags()
		if capture && bodies && ev.raw != nil {
			go m.fetchBody(entry.Seq, ev.raw)
		}

	case evRequestFailed:
		if _, ok := m.network.Fail(ev.key, ev.tabID, ev.entry.URL, ev.failure); ok {
			m.metrics.RecordRequest("", "", true)
		}

	case evDialog:
		rec := m.dialogs.handle(ev.tabID, ev.dialog)
		m.logger.Info("dialog handled", "tab", ev.tabID, "type", rec.Type, "action", rec.Action, "armed", rec.Armed)

	case evConsole:
		m.console.add(ev.console)

	case evPageError:
		m.pageErrors.add(ev.pageErr)

	case evPageClosed:
		m.forget(ev.page)

	case evPopup:
		m.mu.Lock()
		inst := m.inst
		m.mu.Unlock()
		if inst == nil {
			return
		}
		if t, created, err := m.adopt(inst, ev.page, "", false); err == nil && created {
			m.metrics.RecordPageCreated()
			m.logger.Info("popup adopted", "tab", t.ID)
		}
	}
}

func (m *Manager) fetchBody(seq int64, resp playwright.Response) {
	body, err := resp.Body()
	if err != nil {
		m.logger.Debug("response body unavailable", "seq", seq, "error", err)
		return
	}
	m.network.AttachBody(seq, string(body))
}

func timingMap(t *playwright.RequestTiming) map[string]float64 {
	if t == nil {
		return nil
	}
	return map[string]float64{
		"startTime":             t.StartTime,
		"domainLookupStart":     t.DomainLookupStart,
		"domainLookupEnd":       t.DomainLookupEnd,
		"connectStart":          t.ConnectStart,
		"secureConnectionStart": t.SecureConnectionStart,
		"connectEnd":            t.ConnectEnd,
		"requestStart":          t.RequestStart,
		"responseStart":         t.ResponseStart,
		"responseEnd":           t.ResponseEnd,
	}
}
