package tracker

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/platform"
	"github.com/mj1618/page-tracker/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
)

type download struct {
	name string
	data []byte
}

type fakePage struct {
	mu        sync.Mutex
	scroll    platform.ScrollState
	listeners platform.Listeners
	downloads []download
	styleErr  error
}

func (p *fakePage) Location() platform.Location {
	return platform.Location{
		Href:     "https://example.com/shop?x=1",
		Pathname: "/shop",
		Title:    "Shop",
		Protocol: "https:",
		Host:     "example.com",
	}
}

func (p *fakePage) Viewport() platform.Viewport {
	return platform.Viewport{Width: 1000, Height: 500, DevicePixelRatio: 2}
}

func (p *fakePage) Screen() platform.Screen {
	return platform.Screen{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040, ColorDepth: 24}
}

func (p *fakePage) Navigator() platform.Navigator {
	return platform.Navigator{UserAgent: "test", Language: "en-US", Platform: "Linux", CookieEnabled: true, OnLine: true}
}

func (p *fakePage) Scroll() platform.ScrollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scroll
}

func (p *fakePage) setScroll(s platform.ScrollState) {
	p.mu.Lock()
	p.scroll = s
	p.mu.Unlock()
}

func (p *fakePage) ComputedStyle(n dom.Node, pseudo string) (dom.Style, error) {
	if p.styleErr != nil {
		return nil, p.styleErr
	}
	if pseudo != "" {
		return dom.Style{"content": "none"}, nil
	}
	return dom.Style{"display": "block", "visibility": "visible", "opacity": "1"}, nil
}

func (p *fakePage) BoundingRect(dom.Node) (*dom.Rect, error) {
	return &dom.Rect{Left: 1, Top: 2, Width: 3, Height: 4}, nil
}

func (p *fakePage) Subscribe(fn func(platform.Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listeners.Add(fn)
}

func (p *fakePage) dispatch(ev platform.Event) {
	p.mu.Lock()
	fns := p.listeners.Snapshot()
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *fakePage) Download(name string, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloads = append(p.downloads, download{name: name, data: data})
	return "/downloads/" + name, nil
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func first(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := first(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func started(t *testing.T, opts ...Option) (*Tracker, *fakePage) {
	t.Helper()
	page := &fakePage{}
	tr := New(page, opts...)
	tr.Start()
	t.Cleanup(tr.Close)
	return tr, page
}

func TestStart_RecordsPageView(t *testing.T) {
	tr, _ := started(t)
	events := tr.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != model.EventPageView || ev.Sequence != 1 {
		t.Errorf("got %s #%d", ev.Type, ev.Sequence)
	}
	pv := ev.PageView
	if pv == nil {
		t.Fatal("missing page view payload")
	}
	if pv.Page.Referrer != "Direct" {
		t.Errorf("referrer: got %q, want Direct", pv.Page.Referrer)
	}
	if pv.Viewport.Width != 1000 || pv.Screen.ColorDepth != 24 || pv.Browser.Language != "en-US" {
		t.Errorf("unexpected page view: %+v", pv)
	}
}

func TestStart_Twice(t *testing.T) {
	tr, _ := started(t)
	tr.Start()
	if n := len(tr.Events()); n != 1 {
		t.Errorf("expected a single page view, got %d events", n)
	}
}

func TestClick_BuildsDescriptor(t *testing.T) {
	tr, page := started(t)
	doc := parse(t, `<div id="app"><button class="buy">Buy now</button></div>`)
	btn := first(doc, "button")

	page.dispatch(&platform.ClickEvent{
		Target:    dom.FromHTML(btn.FirstChild, nil),
		ClientX:   250,
		ClientY:   125,
		Button:    platform.MouseRight,
		Buttons:   2,
		Modifiers: platform.Modifiers{Shift: true},
		Trusted:   true,
		TimeStamp: 1234.5,
	})

	events := tr.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	c := events[1].Click
	if c == nil {
		t.Fatal("missing click payload")
	}
	if c.Element.TagName != "button" {
		t.Errorf("tagName: got %q", c.Element.TagName)
	}
	if c.Element.Path != "div#app > button.buy:nth-child(1)" {
		t.Errorf("path: got %q", c.Element.Path)
	}
	if c.Position.ViewportPercent != (model.PercentPoint{X: 25, Y: 25}) {
		t.Errorf("viewport percent: got %+v", c.Position.ViewportPercent)
	}
	if c.Mouse.Button != "Right" || !c.Mouse.ShiftKey || c.Mouse.Buttons != 2 {
		t.Errorf("mouse: got %+v", c.Mouse)
	}
	if !c.Timing.IsTrusted || c.Timing.TimeStamp != 1234.5 {
		t.Errorf("timing: got %+v", c.Timing)
	}
	if c.Element.IsVisible == nil || !*c.Element.IsVisible {
		t.Error("element should be visible")
	}
}

func TestClick_UnknownButtonOmitted(t *testing.T) {
	tr, page := started(t)
	page.dispatch(&platform.ClickEvent{Button: platform.MouseButton(3)})
	c := tr.Events()[1].Click
	if c.Mouse.Button != "" {
		t.Errorf("button: got %q, want empty", c.Mouse.Button)
	}
	if c.Element.TagName != model.UnknownTag {
		t.Errorf("nil target should give unknown descriptor, got %q", c.Element.TagName)
	}
}

func TestClick_StyleFailureStillRecords(t *testing.T) {
	page := &fakePage{styleErr: errors.New("detached")}
	tr := New(page)
	tr.Start()
	defer tr.Close()

	doc := parse(t, `<p>x</p>`)
	page.dispatch(&platform.ClickEvent{Target: dom.FromHTML(first(doc, "p"), nil)})
	c := tr.Events()[1].Click
	if c.Element.IsVisible != nil {
		t.Error("isVisible should be null when styles fail")
	}
	if c.CSS.Computed != nil {
		t.Error("computed style should be empty when styles fail")
	}
}

func TestPause_DropsEvents(t *testing.T) {
	tr, page := started(t)
	calls := 0
	tr.Observe(func(model.Event) { calls++ })

	tr.PauseTracking()
	page.dispatch(&platform.ClickEvent{})
	page.dispatch(&platform.KeyEvent{Key: "a"})
	page.dispatch(&platform.VisibilityEvent{Hidden: true, State: "hidden"})
	if n := len(tr.Events()); n != 1 {
		t.Errorf("events while paused: got %d, want 1", n)
	}

	tr.ResumeTracking()
	page.dispatch(&platform.KeyEvent{Key: "b"})
	events := tr.Events()
	if len(events) != 2 || events[1].Sequence != 2 {
		t.Fatalf("expected the key event as #2, got %d events", len(events))
	}
	if calls != 1 {
		t.Errorf("observer calls: got %d, want 1", calls)
	}
}

func TestClear_ThenRecord(t *testing.T) {
	tr, page := started(t)
	for i := 0; i < 5; i++ {
		page.dispatch(&platform.KeyEvent{Key: "x"})
	}
	if n := tr.ClearTrackingData(); n != 6 {
		t.Errorf("cleared: got %d, want 6", n)
	}
	page.dispatch(&platform.VisibilityEvent{Hidden: false, State: "visible"})
	events := tr.Events()
	if len(events) != 1 || events[0].Sequence != 1 {
		t.Errorf("expected a single event #1 after clear, got %+v", events)
	}
}

func TestKeyDown_Target(t *testing.T) {
	tr, page := started(t)
	doc := parse(t, `<input id="q" type="search">`)
	page.dispatch(&platform.KeyEvent{
		Target:    dom.FromHTML(first(doc, "input"), nil),
		Key:       "Enter",
		Code:      "Enter",
		KeyCode:   13,
		Modifiers: platform.Modifiers{Ctrl: true},
	})
	k := tr.Events()[1].KeyDown
	if k.Target.TagName != "input" || k.Target.ID == nil || *k.Target.ID != "q" || *k.Target.Type != "search" {
		t.Errorf("target: got %+v", k.Target)
	}
	if k.Key.KeyCode != 13 || !k.Key.CtrlKey {
		t.Errorf("key: got %+v", k.Key)
	}

	page.dispatch(&platform.KeyEvent{Target: dom.FromHTML(first(doc, "body"), nil), Key: "a"})
	k = tr.Events()[2].KeyDown
	if k.Target.TagName != "body" || k.Target.ID != nil || k.Target.Type != nil {
		t.Errorf("body target: got %+v", k.Target)
	}
}

func TestFormSubmit_ExcludesPasswords(t *testing.T) {
	tr, page := started(t)
	doc := parse(t, `<form id="login" name="login" action="/session" method="post"></form>`)
	page.dispatch(&platform.SubmitEvent{
		Form:   dom.FromHTML(first(doc, "form"), nil),
		Action: "https://example.com/session",
		Method: "post",
		Fields: []platform.FormField{
			{Name: "user", Type: "text", Value: "ada"},
			{Name: "pass", Type: "password", Value: "hunter2"},
			{Name: "remember", Type: "checkbox", Value: "on"},
			{Name: "", Type: "submit", Value: "Go"},
			{Name: "token", Type: "hidden", Value: "abc"},
		},
	})
	f := tr.Events()[1].FormSubmit.Form
	if _, ok := f.Fields["pass"]; ok {
		t.Error("password field must not be captured")
	}
	if len(f.Fields) != 3 || f.Fields["user"] != "ada" || f.Fields["token"] != "abc" {
		t.Errorf("fields: got %v", f.Fields)
	}
	if *f.ID != "login" || *f.Name != "login" || *f.Method != "post" {
		t.Errorf("form: got %+v", f)
	}

	data, err := json.Marshal(tr.Events()[1])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("password value leaked into serialized event")
	}
}

func TestScroll_Debounced(t *testing.T) {
	tr, page := started(t, WithScrollDebounce(20*time.Millisecond))
	got := make(chan model.Event, 4)
	tr.Observe(func(ev model.Event) { got <- ev })

	for y := 100.0; y <= 500; y += 100 {
		page.setScroll(platform.ScrollState{Y: y, ScrollWidth: 1000, ScrollHeight: 1500})
		page.dispatch(platform.ScrollEvent{})
	}

	select {
	case ev := <-got:
		s := ev.Scroll
		if s == nil {
			t.Fatalf("expected scroll event, got %s", ev.Type)
		}
		if s.Position.Y != 500 || s.Position.Direction != model.ScrollDown {
			t.Errorf("position: got %+v", s.Position)
		}
		if s.Percentage.Vertical != 50 || s.Percentage.Horizontal != 0 {
			t.Errorf("percentage: got %+v", s.Percentage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced scroll was never recorded")
	}

	time.Sleep(60 * time.Millisecond)
	if n := len(tr.Events()); n != 2 {
		t.Errorf("expected one scroll record for the burst, got %d events", n)
	}
}

func TestScroll_DirectionAndFlush(t *testing.T) {
	tr, page := started(t, WithScrollDebounce(time.Hour))

	page.setScroll(platform.ScrollState{Y: 400, ScrollHeight: 900})
	page.dispatch(platform.ScrollEvent{})
	if !tr.FlushScroll() {
		t.Fatal("expected a pending scroll")
	}
	page.setScroll(platform.ScrollState{Y: 100, ScrollHeight: 900})
	page.dispatch(platform.ScrollEvent{})
	tr.FlushScroll()

	events := tr.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if d := events[1].Scroll.Position.Direction; d != model.ScrollDown {
		t.Errorf("first scroll direction: got %s", d)
	}
	if d := events[2].Scroll.Position.Direction; d != model.ScrollUp {
		t.Errorf("second scroll direction: got %s", d)
	}
	if p := events[1].Scroll.Percentage.Vertical; p != 100 {
		t.Errorf("400 of 900-500 should clamp to 100, got %d", p)
	}
	if tr.FlushScroll() {
		t.Error("nothing should be pending after flush")
	}
}

func TestScroll_NoScrollableRange(t *testing.T) {
	tr, page := started(t, WithScrollDebounce(time.Hour))
	page.setScroll(platform.ScrollState{Y: 0, ScrollWidth: 1000, ScrollHeight: 500})
	page.dispatch(platform.ScrollEvent{})
	tr.FlushScroll()
	s := tr.Events()[1].Scroll
	if s.Percentage.Vertical != 0 || s.Percentage.Horizontal != 0 {
		t.Errorf("percentage: got %+v, want zeros", s.Percentage)
	}
	if s.Position.Direction != model.ScrollUp {
		t.Errorf("unchanged y should read as up, got %s", s.Position.Direction)
	}
}

func TestClose_CancelsPendingScroll(t *testing.T) {
	page := &fakePage{}
	tr := New(page, WithScrollDebounce(10*time.Millisecond))
	tr.Start()
	page.dispatch(platform.ScrollEvent{})
	tr.Close()
	time.Sleep(40 * time.Millisecond)

	if n := len(tr.Events()); n != 1 {
		t.Errorf("scroll fired after close: %d events", n)
	}
	page.dispatch(&platform.KeyEvent{Key: "a"})
	if n := len(tr.Events()); n != 1 {
		t.Errorf("events recorded after close: %d", n)
	}
}

func TestSummary(t *testing.T) {
	tr, page := started(t)
	page.dispatch(&platform.ClickEvent{})
	page.dispatch(&platform.ClickEvent{})
	page.dispatch(&platform.KeyEvent{})

	sum, err := tr.GetTrackingSummary()
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalEvents != 4 || sum.EventsByType[model.EventClick] != 2 || sum.EventsByType[model.EventKeyDown] != 1 {
		t.Errorf("summary: got %+v", sum)
	}

	tr.ClearTrackingData()
	if _, err := tr.GetTrackingSummary(); !errors.Is(err, session.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestExport(t *testing.T) {
	tr, page := started(t)
	tr.ClearTrackingData()
	if _, err := tr.ExportTrackingData(); !errors.Is(err, session.ErrNoData) {
		t.Fatalf("expected ErrNoData on empty log, got %v", err)
	}
	if len(page.downloads) != 0 {
		t.Fatal("empty export must not download")
	}

	page.dispatch(&platform.VisibilityEvent{Hidden: true, State: "hidden"})
	page.dispatch(&platform.KeyEvent{Key: "q"})
	path, err := tr.ExportTrackingData()
	if err != nil {
		t.Fatal(err)
	}
	want := "tracking-data-" + tr.Session().ID() + ".json"
	if path != "/downloads/"+want || page.downloads[0].name != want {
		t.Errorf("download name: got %q (path %q)", page.downloads[0].name, path)
	}

	var bundle model.ExportBundle
	if err := json.Unmarshal(page.downloads[0].data, &bundle); err != nil {
		t.Fatal(err)
	}
	if bundle.TotalEvents != len(bundle.Events) || bundle.TotalEvents != 2 {
		t.Errorf("totalEvents %d, events %d", bundle.TotalEvents, len(bundle.Events))
	}
	if bundle.EndTime.Before(bundle.StartTime) {
		t.Error("endTime before startTime")
	}
	if !strings.Contains(string(page.downloads[0].data), "\n  \"sessionId\"") {
		t.Error("export should be indented with two spaces")
	}
}

func TestObserve_Cancel(t *testing.T) {
	tr, page := started(t)
	var seen []int
	cancel := tr.Observe(func(ev model.Event) { seen = append(seen, ev.Sequence) })
	page.dispatch(&platform.KeyEvent{})
	cancel()
	cancel()
	page.dispatch(&platform.KeyEvent{})
	if len(seen) != 1 || seen[0] != 2 {
		t.Errorf("observer saw %v, want [2]", seen)
	}
}

func TestScrollPercent(t *testing.T) {
	tests := []struct {
		pos, total, view float64
		want             int
	}{
		{0, 500, 500, 0},
		{0, 400, 500, 0},
		{250, 1500, 500, 25},
		{6, 1000, 0, 1},
		{4.9, 1000, 0, 0},
		{-20, 1500, 500, 0},
		{2000, 1500, 500, 100},
	}
	for _, tt := range tests {
		if got := scrollPercent(tt.pos, tt.total, tt.view); got != tt.want {
			t.Errorf("scrollPercent(%v, %v, %v) = %d, want %d", tt.pos, tt.total, tt.view, got, tt.want)
		}
	}
}

func TestJSRound(t *testing.T) {
	tests := map[float64]int{2.5: 3, -2.5: -2, 2.4999: 2, 0: 0, -0.6: -1}
	for in, want := range tests {
		if got := jsRound(in); got != want {
			t.Errorf("jsRound(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestScroll_ObserversSeeSequenceOrder(t *testing.T) {
	tr, page := started(t, WithScrollDebounce(10*time.Millisecond))

	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})
	tr.Observe(func(ev model.Event) {
		if ev.Type == model.EventScroll {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		seen = append(seen, ev.Sequence)
		if len(seen) == 2 {
			close(done)
		}
		mu.Unlock()
	})

	page.setScroll(platform.ScrollState{Y: 200, ScrollHeight: 1500})
	page.dispatch(platform.ScrollEvent{})
	time.Sleep(25 * time.Millisecond)
	page.dispatch(&platform.KeyEvent{Key: "a"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not receive both events")
	}
	mu.Lock()
	defer mu.Unlock()
	if seen[0] != 2 || seen[1] != 3 {
		t.Errorf("observer saw sequences %v, want [2 3]", seen)
	}
	if events := tr.Events(); events[1].Type != model.EventScroll || events[2].Type != model.EventKeyDown {
		t.Errorf("log order: %s, %s", events[1].Type, events[2].Type)
	}
}

func TestExportBundle_WarnsOnEmptyLog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tr, _ := started(t, WithLogger(zap.New(core)))
	tr.ClearTrackingData()

	if _, err := tr.ExportBundle(); !errors.Is(err, session.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := tr.ExportTrackingData(); !errors.Is(err, session.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if n := logs.FilterMessage("no tracking data available to export").Len(); n != 2 {
		t.Errorf("expected one warning per export attempt, got %d", n)
	}

	if _, err := tr.Bundle(); !errors.Is(err, session.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if n := logs.Len(); n != 2 {
		t.Errorf("Bundle should not warn, got %d log entries", n)
	}
}
