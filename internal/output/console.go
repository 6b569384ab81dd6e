package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mj1618/page-tracker/internal/model"
)

const rule = "============================================================"

// Console echoes tracking activity as human-readable lines. It is safe for
// concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to w. A nil writer discards everything.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// Banner announces a new session and the available commands.
func (c *Console) Banner(sessionID string, commands []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nEVENT TRACKER INITIALIZED  session %s\n%s\n", rule, sessionID, rule)
	if len(commands) > 0 {
		fmt.Fprintf(&b, "Commands: %s\n", strings.Join(commands, ", "))
	}
	c.printf("%s", b.String())
}

// Event prints one recorded event.
func (c *Console) Event(ev model.Event) {
	c.printf("%s", FormatEvent(ev))
}

// FormatEvent renders ev as one or more lines, each ending in a newline.
func FormatEvent(ev model.Event) string {
	var b strings.Builder
	ts := ev.Timestamp.UTC().Format(time.RFC3339Nano)
	switch {
	case ev.PageView != nil:
		pv := ev.PageView
		fmt.Fprintf(&b, "PAGE VIEW #%d  %s\n", ev.Sequence, ts)
		fmt.Fprintf(&b, "  title:    %s\n", pv.Page.Title)
		fmt.Fprintf(&b, "  url:      %s\n", pv.Page.URL)
		fmt.Fprintf(&b, "  viewport: %dx%d  screen: %dx%d\n", pv.Viewport.Width, pv.Viewport.Height, pv.Screen.Width, pv.Screen.Height)
		fmt.Fprintf(&b, "  browser:  %s - %s\n", pv.Browser.Platform, pv.Browser.Language)
	case ev.Click != nil:
		c := ev.Click
		fmt.Fprintf(&b, "CLICK #%d  %s\n", ev.Sequence, ts)
		fmt.Fprintf(&b, "  element:  %s\n", c.Element.TagName)
		if c.Element.ID != nil {
			fmt.Fprintf(&b, "  id:       #%s\n", *c.Element.ID)
		}
		if len(c.Element.Classes) > 0 {
			fmt.Fprintf(&b, "  classes:  %s\n", strings.Join(c.Element.Classes, ", "))
		}
		if c.Element.Text != nil {
			fmt.Fprintf(&b, "  text:     %s\n", *c.Element.Text)
		}
		fmt.Fprintf(&b, "  position: X:%g, Y:%g\n", c.Position.ClientX, c.Position.ClientY)
		if c.Mouse.Button != "" {
			fmt.Fprintf(&b, "  button:   %s\n", c.Mouse.Button)
		}
		if c.Element.Path != "" {
			fmt.Fprintf(&b, "  path:     %s\n", c.Element.Path)
		}
	case ev.Scroll != nil:
		s := ev.Scroll
		fmt.Fprintf(&b, "SCROLL #%d  Y:%gpx (%d%%) %s\n", ev.Sequence, s.Position.Y, s.Percentage.Vertical, strings.ToUpper(string(s.Position.Direction)))
	case ev.Visibility != nil:
		state := "VISIBLE"
		if ev.Visibility.Hidden {
			state = "HIDDEN"
		}
		fmt.Fprintf(&b, "VISIBILITY CHANGE #%d  page is now %s\n", ev.Sequence, state)
	case ev.KeyDown != nil:
		fmt.Fprintf(&b, "KEYDOWN #%d  key %q on %s\n", ev.Sequence, ev.KeyDown.Key.Key, ev.KeyDown.Target.TagName)
	case ev.FormSubmit != nil:
		f := ev.FormSubmit.Form
		name := "form"
		if f.ID != nil {
			name += "#" + *f.ID
		}
		fmt.Fprintf(&b, "FORM SUBMIT #%d  %s", ev.Sequence, name)
		if f.Method != nil || f.Action != nil {
			fmt.Fprintf(&b, " %s %s", strings.ToUpper(deref(f.Method)), deref(f.Action))
		}
		fmt.Fprintf(&b, "  fields: %s\n", strings.Join(sortedKeys(f.Fields), ", "))
	default:
		fmt.Fprintf(&b, "%s #%d  %s\n", ev.Type, ev.Sequence, ts)
	}
	return b.String()
}

// Summary prints a tracking summary with counts sorted by kind.
func (c *Console) Summary(s model.Summary) {
	c.printf("%s", FormatSummary(s))
}

// FormatSummary renders a summary block.
func FormatSummary(s model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nTRACKING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "session:       %s\n", s.SessionID)
	fmt.Fprintf(&b, "session start: %s\n", s.SessionStart.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "total events:  %d\n", s.TotalEvents)
	fmt.Fprintf(&b, "events by type:\n")
	types := make([]string, 0, len(s.EventsByType))
	for t := range s.EventsByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %-18s %d\n", t, s.EventsByType[model.EventType(t)])
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}

func (c *Console) Paused()  { c.printf("Tracking PAUSED\n") }
func (c *Console) Resumed() { c.printf("Tracking RESUMED\n") }

// Cleared reports how many events a clear removed.
func (c *Console) Cleared(n int) { c.printf("Cleared %d tracked events\n", n) }

// Exported reports a successful export.
func (c *Console) Exported(path string, b model.ExportBundle) {
	c.printf("Tracking data exported to %s\n  total events:     %d\n  session duration: %s\n",
		path, b.TotalEvents, b.EndTime.Sub(b.StartTime).Round(time.Millisecond))
}

// Note prints an informational line.
func (c *Console) Note(msg string) { c.printf("%s\n", msg) }

// Warn prints a warning line.
func (c *Console) Warn(msg string) { c.printf("WARNING: %s\n", msg) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
