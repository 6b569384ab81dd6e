// Package session holds the in-memory event log of one tracked page load.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/page-tracker/internal/model"
)

// ErrNoData is returned by summary and export when the log is empty.
var ErrNoData = errors.New("no tracking data available")

// Session is the tracking state for a page load: identifier, start time,
// pause flag and an append-only event log.
type Session struct {
	mu     sync.Mutex
	id     string
	start  time.Time
	paused bool
	events []model.Event
	now    func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithID sets a fixed session identifier.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New initializes a session: fresh identifier, start time now, not paused,
// empty log.
func New(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	if s.id == "" {
		s.id = NewID(s.start)
	}
	return s
}

// NewID returns an identifier of the form session_<unix-millis>_<9 hex chars>.
// It is unique with high probability but not suitable as a secret.
func NewID(t time.Time) string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", t.UnixMilli(), r[:9])
}

func (s *Session) ID() string { return s.id }

func (s *Session) StartTime() time.Time { return s.start }

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.now() }

// Paused reports whether recording is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Record stamps ev with the session id, the current time and its 1-based
// position, then appends it. While paused the event is dropped and ok is false.
func (s *Session) Record(ev model.Event) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return ev, false
	}
	ev.SessionID = s.id
	ev.Timestamp = s.now()
	ev.Sequence = len(s.events) + 1
	s.events = append(s.events, ev)
	return ev, true
}

// Clear empties the log and returns how many events were removed. The
// identifier and start time are kept.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	s.events = nil
	return n
}

// Len returns the number of logged events.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a copy of the log.
func (s *Session) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Summary counts the logged events by kind.
func (s *Session) Summary() (model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return model.Summary{}, ErrNoData
	}
	return model.Summary{
		TotalEvents:  len(s.events),
		EventsByType: model.CountByType(s.events),
		SessionID:    s.id,
		SessionStart: s.start,
		CurrentTime:  s.now(),
	}, nil
}

// Bundle snapshots the full log for export, with the end time set to now.
func (s *Session) Bundle() (model.ExportBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return model.ExportBundle{}, ErrNoData
	}
	events := make([]model.Event, len(s.events))
	copy(events, s.events)
	end := s.now()
	if end.Before(s.start) {
		end = s.start
	}
	return model.ExportBundle{
		SessionID:   s.id,
		StartTime:   s.start,
		EndTime:     end,
		TotalEvents: len(events),
		Events:      events,
	}, nil
}
