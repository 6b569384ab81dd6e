package tracker

import (
	"math"
	"time"

	"github.com/mj1618/page-tracker/internal/describe"
	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/platform"
	"go.uber.org/zap"
)

func (t *Tracker) recordPageView() {
	if t.sess.Paused() {
		return
	}
	loc := t.page.Location()
	vp := t.page.Viewport()
	sc := t.page.Screen()
	nav := t.page.Navigator()

	referrer := loc.Referrer
	if referrer == "" {
		referrer = "Direct"
	}
	t.commit(model.Event{
		Type: model.EventPageView,
		PageView: &model.PageView{
			Page: model.PageInfo{
				URL:      loc.Href,
				Pathname: loc.Pathname,
				Title:    loc.Title,
				Referrer: referrer,
				Protocol: loc.Protocol,
				Host:     loc.Host,
			},
			Viewport: model.ViewportInfo{
				Width:            vp.Width,
				Height:           vp.Height,
				DevicePixelRatio: vp.DevicePixelRatio,
			},
			Screen: model.ScreenInfo{
				Width:       sc.Width,
				Height:      sc.Height,
				AvailWidth:  sc.AvailWidth,
				AvailHeight: sc.AvailHeight,
				ColorDepth:  sc.ColorDepth,
			},
			Browser: model.BrowserInfo{
				UserAgent:     nav.UserAgent,
				Language:      nav.Language,
				Platform:      nav.Platform,
				CookieEnabled: nav.CookieEnabled,
				OnLine:        nav.OnLine,
			},
		},
	})
}

func (t *Tracker) recordClick(e *platform.ClickEvent) {
	if e.Target == nil {
		t.log.Debug("click without target")
	}
	vp := t.page.Viewport()
	t.commit(model.Event{
		Type: model.EventClick,
		Click: &model.Click{
			Element: describe.Element(t.page, e.Target),
			CSS:     describe.CSS(t.page, e.Target),
			Position: model.Pointer{
				ClientX:   e.ClientX,
				ClientY:   e.ClientY,
				PageX:     e.PageX,
				PageY:     e.PageY,
				ScreenX:   e.ScreenX,
				ScreenY:   e.ScreenY,
				OffsetX:   e.OffsetX,
				OffsetY:   e.OffsetY,
				MovementX: e.MovementX,
				MovementY: e.MovementY,
				ViewportPercent: model.PercentPoint{
					X: ratioPercent(e.ClientX, float64(vp.Width)),
					Y: ratioPercent(e.ClientY, float64(vp.Height)),
				},
			},
			Mouse: model.Mouse{
				Button:   e.Button.String(),
				Buttons:  e.Buttons,
				AltKey:   e.Alt,
				CtrlKey:  e.Ctrl,
				ShiftKey: e.Shift,
				MetaKey:  e.Meta,
			},
			Timing: model.Timing{
				IsTrusted: e.Trusted,
				TimeStamp: e.TimeStamp,
			},
		},
	})
}

// scheduleScroll restarts the debounce timer; only the state after the
// last tick of a burst is recorded.
func (t *Tracker) scheduleScroll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.scrollTimer != nil {
		t.scrollTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.debounce, func() {
		t.recordMu.Lock()
		defer t.recordMu.Unlock()
		t.mu.Lock()
		if t.closed || t.scrollTimer != timer {
			t.mu.Unlock()
			return
		}
		t.scrollTimer = nil
		t.mu.Unlock()
		t.recordScroll()
	})
	t.scrollTimer = timer
}

// FlushScroll records a pending debounced scroll immediately. It reports
// whether one was pending.
func (t *Tracker) FlushScroll() bool {
	t.recordMu.Lock()
	defer t.recordMu.Unlock()
	t.mu.Lock()
	if t.closed || t.scrollTimer == nil {
		t.mu.Unlock()
		return false
	}
	// A timer that already fired is still waiting on recordMu; clearing
	// scrollTimer makes its callback a no-op.
	t.scrollTimer.Stop()
	t.scrollTimer = nil
	t.mu.Unlock()
	t.recordScroll()
	return true
}

func (t *Tracker) recordScroll() {
	if t.sess.Paused() {
		return
	}
	st := t.page.Scroll()
	vp := t.page.Viewport()

	t.mu.Lock()
	dir := model.ScrollUp
	if st.Y > t.lastScrollY {
		dir = model.ScrollDown
	}
	t.mu.Unlock()

	_, ok := t.commit(model.Event{
		Type: model.EventScroll,
		Scroll: &model.Scroll{
			Position: model.ScrollPosition{X: st.X, Y: st.Y, Direction: dir},
			Percentage: model.ScrollPercent{
				Vertical:   scrollPercent(st.Y, st.ScrollHeight, float64(vp.Height)),
				Horizontal: scrollPercent(st.X, st.ScrollWidth, float64(vp.Width)),
			},
			DocumentSize: model.Size{Width: st.ScrollWidth, Height: st.ScrollHeight},
		},
	})
	if ok {
		t.mu.Lock()
		t.lastScrollY = st.Y
		t.mu.Unlock()
	}
}

func (t *Tracker) recordVisibility(e *platform.VisibilityEvent) {
	t.commit(model.Event{
		Type:       model.EventVisibilityChange,
		Visibility: &model.VisibilityChange{Hidden: e.Hidden, State: e.State},
	})
}

func (t *Tracker) recordKeyDown(e *platform.KeyEvent) {
	target := model.KeyTarget{TagName: model.UnknownTag}
	if el := dom.Resolve(e.Target); el != nil {
		target.TagName = el.Tag()
		target.ID = optional(dom.ID(el))
		target.Type = optional(el.Props().Type)
	}
	t.commit(model.Event{
		Type: model.EventKeyDown,
		KeyDown: &model.KeyDown{
			Key: model.KeyInfo{
				Key:      e.Key,
				Code:     e.Code,
				KeyCode:  e.KeyCode,
				AltKey:   e.Alt,
				CtrlKey:  e.Ctrl,
				ShiftKey: e.Shift,
				MetaKey:  e.Meta,
			},
			Target: target,
		},
	})
}

func (t *Tracker) recordFormSubmit(e *platform.SubmitEvent) {
	form := model.FormInfo{
		Action: optional(e.Action),
		Method: optional(e.Method),
		Fields: FormFields(e.Fields),
	}
	if el := dom.Resolve(e.Form); el != nil {
		form.ID = optional(dom.ID(el))
		form.Name = optional(el.Props().Name)
	} else {
		t.log.Debug("submit without form element", zap.Int("fields", len(e.Fields)))
	}
	t.commit(model.Event{
		Type:       model.EventFormSubmit,
		FormSubmit: &model.FormSubmit{Form: form},
	})
}

// FormFields maps every named control to its value, leaving out password
// fields. Later controls with a repeated name overwrite earlier ones.
func FormFields(fields []platform.FormField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.Type == "password" {
			continue
		}
		out[f.Name] = f.Value
	}
	return out
}

// scrollPercent is pos as a percentage of the scrollable range total-view,
// rounded and clamped to [0,100]. A range of zero or less yields 0.
func scrollPercent(pos, total, view float64) int {
	rng := total - view
	if rng <= 0 {
		return 0
	}
	p := jsRound(pos / rng * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ratioPercent is v as a rounded percentage of whole; 0 when whole is 0.
func ratioPercent(v, whole float64) int {
	if whole == 0 {
		return 0
	}
	return jsRound(v / whole * 100)
}

// jsRound rounds half toward positive infinity.
func jsRound(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
