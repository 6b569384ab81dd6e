package model

import "time"

// EventType identifies the kind of a recorded event.
type EventType string

const (
	EventPageView         EventType = "PAGE_VIEW"
	EventClick            EventType = "CLICK"
	EventScroll           EventType = "SCROLL"
	EventVisibilityChange EventType = "VISIBILITY_CHANGE"
	EventKeyDown          EventType = "KEYDOWN"
	EventFormSubmit       EventType = "FORM_SUBMIT"
)

// Event is one entry in a session log. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type      EventType `yaml:"eventType"   json:"eventType"`
	SessionID string    `yaml:"sessionId"   json:"sessionId"`
	Timestamp time.Time `yaml:"timestamp"   json:"timestamp"`
	Sequence  int       `yaml:"eventNumber" json:"eventNumber"` // 1-based position in the log at insertion

	PageView   *PageView         `yaml:"pageView,omitempty"   json:"pageView,omitempty"`
	Click      *Click            `yaml:"click,omitempty"      json:"click,omitempty"`
	Scroll     *Scroll           `yaml:"scroll,omitempty"     json:"scroll,omitempty"`
	Visibility *VisibilityChange `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	KeyDown    *KeyDown          `yaml:"keyDown,omitempty"    json:"keyDown,omitempty"`
	FormSubmit *FormSubmit       `yaml:"formSubmit,omitempty" json:"formSubmit,omitempty"`
}

// PageView is recorded once when tracking starts.
type PageView struct {
	Page     PageInfo     `yaml:"page"     json:"page"`
	Viewport ViewportInfo `yaml:"viewport" json:"viewport"`
	Screen   ScreenInfo   `yaml:"screen"   json:"screen"`
	Browser  BrowserInfo  `yaml:"browser"  json:"browser"`
}

type PageInfo struct {
	URL      string `yaml:"url"      json:"url"`
	Pathname string `yaml:"pathname" json:"pathname"`
	Title    string `yaml:"title"    json:"title"`
	Referrer string `yaml:"referrer" json:"referrer"` // "Direct" when empty
	Protocol string `yaml:"protocol" json:"protocol"`
	Host     string `yaml:"host"     json:"host"`
}

type ViewportInfo struct {
	Width            int     `yaml:"width"            json:"width"`
	Height           int     `yaml:"height"           json:"height"`
	DevicePixelRatio float64 `yaml:"devicePixelRatio" json:"devicePixelRatio"`
}

type ScreenInfo struct {
	Width       int `yaml:"width"       json:"width"`
	Height      int `yaml:"height"      json:"height"`
	AvailWidth  int `yaml:"availWidth"  json:"availWidth"`
	AvailHeight int `yaml:"availHeight" json:"availHeight"`
	ColorDepth  int `yaml:"colorDepth"  json:"colorDepth"`
}

type BrowserInfo struct {
	UserAgent     string `yaml:"userAgent"     json:"userAgent"`
	Language      string `yaml:"language"      json:"language"`
	Platform      string `yaml:"platform"      json:"platform"`
	CookieEnabled bool   `yaml:"cookieEnabled" json:"cookieEnabled"`
	OnLine        bool   `yaml:"onLine"        json:"onLine"`
}

// Click describes a click on an element.
type Click struct {
	Element  ElementDescriptor `yaml:"element"  json:"element"`
	CSS      CSSDescriptor     `yaml:"css"      json:"css"`
	Position Pointer           `yaml:"position" json:"position"`
	Mouse    Mouse             `yaml:"mouse"    json:"mouse"`
	Timing   Timing            `yaml:"timing"   json:"timing"`
}

// Pointer holds the coordinates reported by the native mouse event.
type Pointer struct {
	ClientX         float64      `yaml:"clientX"         json:"clientX"`
	ClientY         float64      `yaml:"clientY"         json:"clientY"`
	PageX           float64      `yaml:"pageX"           json:"pageX"`
	PageY           float64      `yaml:"pageY"           json:"pageY"`
	ScreenX         float64      `yaml:"screenX"         json:"screenX"`
	ScreenY         float64      `yaml:"screenY"         json:"screenY"`
	OffsetX         float64      `yaml:"offsetX"         json:"offsetX"`
	OffsetY         float64      `yaml:"offsetY"         json:"offsetY"`
	MovementX       float64      `yaml:"movementX"       json:"movementX"`
	MovementY       float64      `yaml:"movementY"       json:"movementY"`
	ViewportPercent PercentPoint `yaml:"viewportPercent" json:"viewportPercent"`
}

type PercentPoint struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

type Mouse struct {
	Button   string `yaml:"button,omitempty" json:"button,omitempty"` // Left, Middle, Right; empty for other buttons
	Buttons  int    `yaml:"buttons"          json:"buttons"`
	AltKey   bool   `yaml:"altKey"           json:"altKey"`
	CtrlKey  bool   `yaml:"ctrlKey"          json:"ctrlKey"`
	ShiftKey bool   `yaml:"shiftKey"         json:"shiftKey"`
	MetaKey  bool   `yaml:"metaKey"          json:"metaKey"`
}

type Timing struct {
	IsTrusted bool    `yaml:"isTrusted" json:"isTrusted"`
	TimeStamp float64 `yaml:"timeStamp" json:"timeStamp"` // high-resolution event time in ms
}

// Scroll is recorded once scrolling settles.
type Scroll struct {
	Position     ScrollPosition `yaml:"position"     json:"position"`
	Percentage   ScrollPercent  `yaml:"percentage"   json:"percentage"`
	DocumentSize Size           `yaml:"documentSize" json:"documentSize"`
}

type ScrollDirection string

const (
	ScrollDown ScrollDirection = "down"
	ScrollUp   ScrollDirection = "up"
)

type ScrollPosition struct {
	X         float64         `yaml:"x"         json:"x"`
	Y         float64         `yaml:"y"         json:"y"`
	Direction ScrollDirection `yaml:"direction" json:"direction"`
}

type ScrollPercent struct {
	Vertical   int `yaml:"vertical"   json:"vertical"`
	Horizontal int `yaml:"horizontal" json:"horizontal"`
}

type Size struct {
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

type VisibilityChange struct {
	Hidden bool   `yaml:"hidden" json:"hidden"`
	State  string `yaml:"state"  json:"state"`
}

type KeyDown struct {
	Key    KeyInfo   `yaml:"key"    json:"key"`
	Target KeyTarget `yaml:"target" json:"target"`
}

type KeyInfo struct {
	Key      string `yaml:"key"      json:"key"`
	Code     string `yaml:"code"     json:"code"`
	KeyCode  int    `yaml:"keyCode"  json:"keyCode"`
	AltKey   bool   `yaml:"altKey"   json:"altKey"`
	CtrlKey  bool   `yaml:"ctrlKey"  json:"ctrlKey"`
	ShiftKey bool   `yaml:"shiftKey" json:"shiftKey"`
	MetaKey  bool   `yaml:"metaKey"  json:"metaKey"`
}

type KeyTarget struct {
	TagName string  `yaml:"tagName"        json:"tagName"`
	ID      *string `yaml:"id,omitempty"   json:"id,omitempty"`
	Type    *string `yaml:"type,omitempty" json:"type,omitempty"`
}

type FormSubmit struct {
	Form FormInfo `yaml:"form" json:"form"`
}

type FormInfo struct {
	ID     *string           `yaml:"id,omitempty"     json:"id,omitempty"`
	Name   *string           `yaml:"name,omitempty"   json:"name,omitempty"`
	Action *string           `yaml:"action,omitempty" json:"action,omitempty"`
	Method *string           `yaml:"method,omitempty" json:"method,omitempty"`
	Fields map[string]string `yaml:"fields"           json:"fields"` // password fields are never included
}
