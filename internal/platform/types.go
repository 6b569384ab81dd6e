package platform

import (
	"fmt"
	"strings"

	"github.com/mj1618/page-tracker/internal/dom"
)

// Location describes the page's address and document metadata.
type Location struct {
	Href     string
	Pathname string
	Title    string
	Referrer string
	Protocol string
	Host     string
}

// Viewport is the window's inner size.
type Viewport struct {
	Width            int
	Height           int
	DevicePixelRatio float64
}

// Screen describes the display the page is shown on.
type Screen struct {
	Width       int
	Height      int
	AvailWidth  int
	AvailHeight int
	ColorDepth  int
}

// Navigator carries browser identification.
type Navigator struct {
	UserAgent     string
	Language      string
	Platform      string
	CookieEnabled bool
	OnLine        bool
}

// ScrollState is the window scroll offset and the document's scrollable size.
type ScrollState struct {
	X            float64
	Y            float64
	ScrollWidth  float64
	ScrollHeight float64
}

// Event is one of *ClickEvent, ScrollEvent, *VisibilityEvent, *KeyEvent, *SubmitEvent.
type Event interface {
	eventName() string
}

// Modifiers are the keyboard modifier flags of an input event.
type Modifiers struct {
	Alt   bool
	Ctrl  bool
	Shift bool
	Meta  bool
}

// MouseButton is the numeric button of a mouse event.
type MouseButton int

const (
	MouseLeft   MouseButton = 0
	MouseMiddle MouseButton = 1
	MouseRight  MouseButton = 2
)

// String returns Left, Middle or Right, and "" for any other button.
func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "Left"
	case MouseMiddle:
		return "Middle"
	case MouseRight:
		return "Right"
	}
	return ""
}

// ParseMouseButton converts a name (left, middle, right) to a MouseButton.
func ParseMouseButton(s string) (MouseButton, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return MouseLeft, nil
	case "middle":
		return MouseMiddle, nil
	case "right":
		return MouseRight, nil
	default:
		return MouseLeft, fmt.Errorf("unknown mouse button: %q (expected left, middle, or right)", s)
	}
}

// ClickEvent is a click observed in the capture phase.
type ClickEvent struct {
	Target               dom.Node
	ClientX, ClientY     float64
	PageX, PageY         float64
	ScreenX, ScreenY     float64
	OffsetX, OffsetY     float64
	MovementX, MovementY float64
	Button               MouseButton
	Buttons              int
	Modifiers
	Trusted   bool
	TimeStamp float64
}

// ScrollEvent is a single window scroll tick.
type ScrollEvent struct{}

// VisibilityEvent reports a document visibility change.
type VisibilityEvent struct {
	Hidden bool
	State  string
}

// KeyEvent is a keydown.
type KeyEvent struct {
	Target  dom.Node
	Key     string
	Code    string
	KeyCode int
	Modifiers
}

// FormField is one entry of a form's control list with its current value.
type FormField struct {
	Name  string
	Type  string
	Value string
}

// SubmitEvent is a form submission observed in the capture phase.
type SubmitEvent struct {
	Form   dom.Node
	Action string
	Method string
	Fields []FormField
}

func (*ClickEvent) eventName() string      { return "click" }
func (ScrollEvent) eventName() string      { return "scroll" }
func (*VisibilityEvent) eventName() string { return "visibilitychange" }
func (*KeyEvent) eventName() string        { return "keydown" }
func (*SubmitEvent) eventName() string     { return "submit" }

// EventName returns the DOM event name for ev.
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}
