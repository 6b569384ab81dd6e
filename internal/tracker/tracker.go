// Package tracker records user interaction on a page into a session log.
//
// A Tracker subscribes to a platform.Page, turns each dispatched event into a
// model.Event and appends it to its session. Pausing drops events at the
// top of every recorder, before any descriptor work is done.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/platform"
	"github.com/mj1618/page-tracker/internal/session"
	"go.uber.org/zap"
)

// DefaultScrollDebounce is how long scrolling must pause before its final
// position is recorded.
const DefaultScrollDebounce = 300 * time.Millisecond

// Tracker instruments one page for the lifetime of a session.
type Tracker struct {
	page     platform.Page
	sess     *session.Session
	log      *zap.Logger
	debounce time.Duration

	// recordMu is held by every recorder from the paused check through
	// observer fan-out, so the debounced scroll never runs alongside a
	// dispatched event and observers see sequence order.
	recordMu sync.Mutex

	mu          sync.Mutex
	started     bool
	closed      bool
	unsubscribe func()
	scrollTimer *time.Timer
	lastScrollY float64
	observers   []observer
	nextObs     int
}

type observer struct {
	id int
	fn func(model.Event)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithSession uses an existing session instead of creating one.
func WithSession(s *session.Session) Option {
	return func(t *Tracker) { t.sess = s }
}

// WithScrollDebounce overrides DefaultScrollDebounce.
func WithScrollDebounce(d time.Duration) Option {
	return func(t *Tracker) { t.debounce = d }
}

// New creates a tracker for page with a fresh session. Nothing is recorded
// until Start.
func New(page platform.Page, opts ...Option) *Tracker {
	t := &Tracker{
		page:     page,
		log:      zap.NewNop(),
		debounce: DefaultScrollDebounce,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sess == nil {
		t.sess = session.New()
	}
	if t.debounce <= 0 {
		t.debounce = DefaultScrollDebounce
	}
	t.log = t.log.With(zap.String("session_id", t.sess.ID()))
	return t
}

// Session returns the underlying session state.
func (t *Tracker) Session() *session.Session { return t.sess }

// Start records the initial page view and subscribes to page events.
// Calling Start twice is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.lastScrollY = t.page.Scroll().Y
	t.mu.Unlock()

	t.recordMu.Lock()
	t.recordPageView()
	t.recordMu.Unlock()

	cancel := t.page.Subscribe(t.handle)
	t.mu.Lock()
	t.unsubscribe = cancel
	t.mu.Unlock()
	t.log.Info("tracking started", zap.String("url", t.page.Location().Href))
}

// Close unsubscribes from the page and cancels any pending scroll record.
// The session log stays readable.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	cancel := t.unsubscribe
	t.unsubscribe = nil
	if t.scrollTimer != nil {
		t.scrollTimer.Stop()
		t.scrollTimer = nil
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.log.Debug("tracking stopped", zap.Int("events", t.sess.Len()))
}

// Observe registers fn to receive every recorded event, after it has been
// appended. The returned func removes the observer.
func (t *Tracker) Observe(fn func(model.Event)) (cancel func()) {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers = append(t.observers, observer{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, o := range t.observers {
				if o.id == id {
					t.observers = append(t.observers[:i], t.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (t *Tracker) handle(ev platform.Event) {
	t.recordMu.Lock()
	defer t.recordMu.Unlock()
	if t.sess.Paused() {
		return
	}
	switch e := ev.(type) {
	case *platform.ClickEvent:
		t.recordClick(e)
	case platform.ScrollEvent:
		t.scheduleScroll()
	case *platform.VisibilityEvent:
		t.recordVisibility(e)
	case *platform.KeyEvent:
		t.recordKeyDown(e)
	case *platform.SubmitEvent:
		t.recordFormSubmit(e)
	default:
		t.log.Debug("ignoring event", zap.String("event", platform.EventName(ev)))
	}
}

// commit appends ev to the session and notifies observers.
func (t *Tracker) commit(ev model.Event) (model.Event, bool) {
	rec, ok := t.sess.Record(ev)
	if !ok {
		return rec, false
	}
	t.mu.Lock()
	obs := make([]observer, len(t.observers))
	copy(obs, t.observers)
	t.mu.Unlock()
	for _, o := range obs {
		o.fn(rec)
	}
	return rec, true
}

// Events returns a copy of the session log.
func (t *Tracker) Events() []model.Event { return t.sess.Events() }

// Bundle returns the export document without writing it anywhere.
func (t *Tracker) Bundle() (model.ExportBundle, error) { return t.sess.Bundle() }

// ExportBundle is Bundle for callers about to write an export in some
// format. An empty log is logged at WARN and returns session.ErrNoData.
func (t *Tracker) ExportBundle() (model.ExportBundle, error) {
	b, err := t.sess.Bundle()
	if errors.Is(err, session.ErrNoData) {
		t.log.Warn("no tracking data available to export")
	}
	return b, err
}

// PauseTracking stops recording until ResumeTracking.
func (t *Tracker) PauseTracking() {
	t.sess.Pause()
	t.log.Info("tracking paused")
}

// ResumeTracking re-enables recording. Events dispatched while paused are lost.
func (t *Tracker) ResumeTracking() {
	t.sess.Resume()
	t.log.Info("tracking resumed")
}

// ClearTrackingData empties the log and returns the number of events removed.
func (t *Tracker) ClearTrackingData() int {
	n := t.sess.Clear()
	t.log.Info("cleared tracked events", zap.Int("count", n))
	return n
}

// GetTrackingSummary returns event counts by kind. It returns
// session.ErrNoData when nothing has been recorded.
func (t *Tracker) GetTrackingSummary() (model.Summary, error) {
	sum, err := t.sess.Summary()
	if errors.Is(err, session.ErrNoData) {
		t.log.Warn("no tracking data available")
	}
	return sum, err
}

// ExportTrackingData serializes the log as indented JSON and hands it to the
// page's download mechanism under tracking-data-<sessionId>.json. It returns
// the path the host wrote to. An empty log downloads nothing and returns
// session.ErrNoData.
func (t *Tracker) ExportTrackingData() (string, error) {
	bundle, err := t.ExportBundle()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	path, err := t.page.Download(model.ExportFileName(bundle.SessionID, "json"), data)
	if err != nil {
		return "", fmt.Errorf("downloading export: %w", err)
	}
	t.log.Info("tracking data exported",
		zap.String("path", path),
		zap.Int("total_events", bundle.TotalEvents),
		zap.Duration("session_duration", bundle.EndTime.Sub(bundle.StartTime)),
	)
	return path, nil
}
