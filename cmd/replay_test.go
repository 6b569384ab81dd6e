package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/platform/static"
	"github.com/mj1618/page-tracker/internal/session"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/mj1618/page-tracker/internal/tracker"
)

const shopPage = `<html><head><title>Shop</title></head><body>
<div id="app">
  <button class="buy">Buy</button>
  <input id="q" type="search">
  <form id="signup" action="/join" method="post">
    <input name="email" value="">
    <input name="pw" type="password" value="secret">
  </form>
</div></body></html>`

func newReplay(t *testing.T) (*static.Page, *tracker.Tracker) {
	t.Helper()
	opts := static.DefaultOptions()
	opts.URL = "https://shop.test/"
	opts.ScrollHeight = 2720
	opts.DownloadDir = t.TempDir()
	p, err := static.Load(strings.NewReader(shopPage), opts)
	if err != nil {
		t.Fatal(err)
	}
	tr := tracker.New(p)
	t.Cleanup(tr.Close)
	tr.Start()
	return p, tr
}

func TestParseScript(t *testing.T) {
	steps, err := parseScript([]byte("- click: { selector: button }\n- pause:\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if _, ok := steps[1]["pause"]; !ok {
		t.Error("a bare step key should parse")
	}
	if _, err := parseScript(nil); err == nil {
		t.Error("empty script should fail")
	}
	if _, err := parseScript([]byte("click: x")); err == nil {
		t.Error("a non-list script should fail")
	}
}

func TestRunScript_AllSteps(t *testing.T) {
	p, tr := newReplay(t)
	steps, err := parseScript([]byte(`
- click: { selector: "button.buy", x: 100, y: 50, button: right }
- scroll: { y: 1000 }
- key: { selector: "#q", key: "Enter", ctrl: true }
- submit: { selector: "form#signup", values: { email: "a@b.test" } }
- visibility: { hidden: true }
- pause:
- click: { selector: "button.buy" }
- resume:
- summary:
`))
	if err != nil {
		t.Fatal(err)
	}
	res := runScript(p, tr, steps, true)
	if !res.OK || res.Completed != 9 {
		t.Fatalf("replay failed: %+v", res)
	}
	if res.Results[0].Recorded != 1 || res.Results[6].Recorded != 0 {
		t.Errorf("recorded counts: %+v", res.Results)
	}

	events := tr.Events()
	kinds := make([]model.EventType, len(events))
	for i, ev := range events {
		kinds[i] = ev.Type
	}
	want := []model.EventType{model.EventPageView, model.EventClick, model.EventScroll, model.EventKeyDown, model.EventFormSubmit, model.EventVisibilityChange}
	if len(kinds) != len(want) {
		t.Fatalf("events: got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, kinds[i], want[i])
		}
	}

	if events[1].Click.Mouse.Button != "Right" {
		t.Errorf("button: got %q", events[1].Click.Mouse.Button)
	}
	if events[2].Scroll.Percentage.Vertical != 50 {
		t.Errorf("scroll percent: got %d", events[2].Scroll.Percentage.Vertical)
	}
	fields := events[4].FormSubmit.Form.Fields
	if fields["email"] != "a@b.test" {
		t.Errorf("email: got %q", fields["email"])
	}
	if _, ok := fields["pw"]; ok {
		t.Error("password field must not be recorded")
	}
	if res.Results[8].Summary == nil || res.Results[8].Summary.TotalEvents != 6 {
		t.Errorf("summary step: %+v", res.Results[8].Summary)
	}
}

func TestRunScript_StopOnError(t *testing.T) {
	p, tr := newReplay(t)
	steps, _ := parseScript([]byte(`
- click: { selector: "#missing" }
- click: { selector: "button.buy" }
`))
	res := runScript(p, tr, steps, true)
	if res.OK || len(res.Results) != 1 || !strings.HasPrefix(res.Error, "step 1:") {
		t.Errorf("expected stop at step 1: %+v", res)
	}

	res = runScript(p, tr, steps, false)
	if res.OK || len(res.Results) != 2 || res.Completed != 1 {
		t.Errorf("expected to continue past step 1: %+v", res)
	}
}

func TestRunScript_UnknownAndMultiKey(t *testing.T) {
	p, tr := newReplay(t)
	res := runScript(p, tr, []map[string]map[string]interface{}{{"hover": nil}}, true)
	if res.OK || !strings.Contains(res.Error, "unknown step type") {
		t.Errorf("unknown step: %+v", res)
	}
	res = runScript(p, tr, []map[string]map[string]interface{}{{"pause": nil, "resume": nil}}, true)
	if res.OK || !strings.Contains(res.Error, "exactly one action key") {
		t.Errorf("multi-key step: %+v", res)
	}
}

func TestRunScript_Export(t *testing.T) {
	p, tr := newReplay(t)
	cfg.Export.Dir = t.TempDir()
	t.Cleanup(func() { cfg.Export.Dir = "." })

	steps, _ := parseScript([]byte("- export: { format: yaml }\n"))
	res := runScript(p, tr, steps, true)
	if !res.OK {
		t.Fatalf("export failed: %+v", res)
	}
	want := filepath.Join(cfg.Export.Dir, model.ExportFileName(tr.Session().ID(), "yaml"))
	if res.Results[0].Path != want {
		t.Errorf("path: got %q, want %q", res.Results[0].Path, want)
	}
}

func TestHandleControl(t *testing.T) {
	p, tr := newReplay(t)
	var out bytes.Buffer
	con := output.NewConsole(&out)

	if handleControl("pause", tr, con, &out) {
		t.Fatal("pause should not quit")
	}
	p.Click("button.buy", static.ClickOptions{})
	handleControl("resume", tr, con, &out)
	p.Click("button.buy", static.ClickOptions{})
	handleControl("events 1", tr, con, &out)
	handleControl("clear", tr, con, &out)
	handleControl("summary", tr, con, &out)
	handleControl("bogus", tr, con, &out)

	s := out.String()
	for _, want := range []string{"Tracking PAUSED", "Tracking RESUMED", "CLICK #2", "Cleared 2 tracked events", "No tracking data available", `unknown command "bogus"`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in:\n%s", want, s)
		}
	}
	if strings.Contains(s, "PAGE VIEW") {
		t.Error("events 1 should only print the last event")
	}
	if !handleControl("quit", tr, con, &out) {
		t.Error("quit should stop the loop")
	}
}

func TestExportSession_FormatsIntoMissingDir(t *testing.T) {
	_, tr := newReplay(t)
	for _, format := range []string{"sqlite", "yaml", "json"} {
		dir := filepath.Join(t.TempDir(), "not", "yet")
		path, err := exportSession(tr, format, dir)
		if format == "json" {
			// JSON goes through the page's download dir.
			if err != nil {
				t.Fatalf("json export: %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s export into a missing directory: %v", format, err)
		}
		b, err := store.ReadBundle(path)
		if err != nil {
			t.Fatalf("reading %s export: %v", format, err)
		}
		if b.SessionID != tr.Session().ID() || b.TotalEvents != 1 {
			t.Errorf("%s export: %s with %d events", format, b.SessionID, b.TotalEvents)
		}
	}
}

func TestExportSession_EmptyLog(t *testing.T) {
	_, tr := newReplay(t)
	tr.ClearTrackingData()
	for _, format := range []string{"json", "yaml", "sqlite"} {
		if _, err := exportSession(tr, format, t.TempDir()); !errors.Is(err, session.ErrNoData) {
			t.Errorf("%s: expected ErrNoData, got %v", format, err)
		}
	}
}
