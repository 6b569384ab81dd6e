package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsupported is returned when a host cannot answer a query, e.g. a static
// document has no layout engine for pseudo-element styles.
var ErrUnsupported = errors.New("not supported by this page host")

// ErrDetached is returned for nodes that do not belong to the page.
var ErrDetached = errors.New("node is not part of this page")

// Listeners is a helper for Page implementations: it keeps subscribers and
// dispatches events to them in registration order. The caller serializes
// Dispatch calls.
type Listeners struct {
	next int
	fns  map[int]func(Event)
	keys []int
}

// Add registers fn and returns a func removing it.
func (l *Listeners) Add(fn func(Event)) func() {
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.keys = append(l.keys, id)
	return func() {
		delete(l.fns, id)
		for i, k := range l.keys {
			if k == id {
				l.keys = append(l.keys[:i], l.keys[i+1:]...)
				break
			}
		}
	}
}

// Snapshot returns the current subscribers in registration order.
func (l *Listeners) Snapshot() []func(Event) {
	out := make([]func(Event), 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, l.fns[k])
	}
	return out
}

// SaveDownload writes data to dir under the base of name, creating dir if
// needed, and returns the written path. Hosts without a browser download
// manager use it to implement Page.Download.
func SaveDownload(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}
	return path, nil
}
