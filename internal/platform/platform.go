package platform

import "github.com/mj1618/page-tracker/internal/dom"

// Page is the hosting environment a tracker instruments: page metadata,
// event subscription, style computation and file download.
type Page interface {
	Location() Location
	Viewport() Viewport
	Screen() Screen
	Navigator() Navigator
	// Scroll returns the current window scroll offsets and document size.
	Scroll() ScrollState

	// ComputedStyle returns the computed style of n, or of its pseudo-element
	// when pseudo is "::before" or "::after".
	ComputedStyle(n dom.Node, pseudo string) (dom.Style, error)
	// BoundingRect returns n's bounding box, or nil when the host has no layout.
	BoundingRect(n dom.Node) (*dom.Rect, error)

	// Subscribe registers fn for every dispatched event. Events are delivered
	// one at a time, in dispatch order. The returned func unsubscribes.
	Subscribe(fn func(Event)) (cancel func())

	// Download hands data to the host's download mechanism under the given
	// file name and returns where it was written.
	Download(name string, data []byte) (string, error)
}
