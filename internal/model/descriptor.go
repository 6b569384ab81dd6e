package model

// UnknownTag is the tag name of a descriptor built without a usable element.
const UnknownTag = "unknown"

// ElementDescriptor is a read-only snapshot of an element at event time.
type ElementDescriptor struct {
	TagName       string            `yaml:"tagName"                 json:"tagName"`
	ID            *string           `yaml:"id,omitempty"            json:"id,omitempty"`
	Classes       []string          `yaml:"classes,omitempty"       json:"classes,omitempty"`
	Text          *string           `yaml:"text,omitempty"          json:"text,omitempty"` // first 100 characters, trimmed
	Value         *string           `yaml:"value,omitempty"         json:"value,omitempty"`
	Type          *string           `yaml:"type,omitempty"          json:"type,omitempty"`
	Name          *string           `yaml:"name,omitempty"          json:"name,omitempty"`
	Href          *string           `yaml:"href,omitempty"          json:"href,omitempty"`
	Src           *string           `yaml:"src,omitempty"           json:"src,omitempty"`
	Alt           *string           `yaml:"alt,omitempty"           json:"alt,omitempty"`
	Title         *string           `yaml:"title,omitempty"         json:"title,omitempty"`
	Placeholder   *string           `yaml:"placeholder,omitempty"   json:"placeholder,omitempty"`
	Attributes    map[string]string `yaml:"attributes,omitempty"    json:"attributes,omitempty"`
	Path          string            `yaml:"path,omitempty"          json:"path,omitempty"`
	XPath         string            `yaml:"xpath,omitempty"         json:"xpath,omitempty"`
	BoundingRect  *Rect             `yaml:"boundingRect,omitempty"  json:"boundingRect,omitempty"`
	IsVisible     *bool             `yaml:"isVisible,omitempty"     json:"isVisible,omitempty"` // nil when styles could not be read
	ParentElement *string           `yaml:"parentElement,omitempty" json:"parentElement,omitempty"`
}

// Rect is a bounding box relative to the viewport.
type Rect struct {
	Top    float64 `yaml:"top"    json:"top"`
	Left   float64 `yaml:"left"   json:"left"`
	Right  float64 `yaml:"right"  json:"right"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// CSSDescriptor captures styling of a clicked element.
type CSSDescriptor struct {
	Inline    *string        `yaml:"inline,omitempty"    json:"inline,omitempty"`
	Computed  *ComputedStyle `yaml:"computed,omitempty"  json:"computed,omitempty"` // nil when the style query failed
	ClassList []string       `yaml:"classList,omitempty" json:"classList,omitempty"`
	Pseudo    PseudoContent  `yaml:"pseudo"              json:"pseudo"`
}

// ComputedStyle is the fixed subset of computed properties that gets recorded.
type ComputedStyle struct {
	Display         string `yaml:"display,omitempty"         json:"display,omitempty"`
	Visibility      string `yaml:"visibility,omitempty"      json:"visibility,omitempty"`
	Opacity         string `yaml:"opacity,omitempty"         json:"opacity,omitempty"`
	Position        string `yaml:"position,omitempty"        json:"position,omitempty"`
	Top             string `yaml:"top,omitempty"             json:"top,omitempty"`
	Left            string `yaml:"left,omitempty"            json:"left,omitempty"`
	Right           string `yaml:"right,omitempty"           json:"right,omitempty"`
	Bottom          string `yaml:"bottom,omitempty"          json:"bottom,omitempty"`
	ZIndex          string `yaml:"zIndex,omitempty"          json:"zIndex,omitempty"`
	Width           string `yaml:"width,omitempty"           json:"width,omitempty"`
	Height          string `yaml:"height,omitempty"          json:"height,omitempty"`
	Margin          string `yaml:"margin,omitempty"          json:"margin,omitempty"`
	Padding         string `yaml:"padding,omitempty"         json:"padding,omitempty"`
	Border          string `yaml:"border,omitempty"          json:"border,omitempty"`
	BackgroundColor string `yaml:"backgroundColor,omitempty" json:"backgroundColor,omitempty"`
	Color           string `yaml:"color,omitempty"           json:"color,omitempty"`
	FontSize        string `yaml:"fontSize,omitempty"        json:"fontSize,omitempty"`
	FontFamily      string `yaml:"fontFamily,omitempty"      json:"fontFamily,omitempty"`
	FontWeight      string `yaml:"fontWeight,omitempty"      json:"fontWeight,omitempty"`
	TextAlign       string `yaml:"textAlign,omitempty"       json:"textAlign,omitempty"`
	Cursor          string `yaml:"cursor,omitempty"          json:"cursor,omitempty"`
	Transform       string `yaml:"transform,omitempty"       json:"transform,omitempty"`
	Transition      string `yaml:"transition,omitempty"      json:"transition,omitempty"`
	Animation       string `yaml:"animation,omitempty"       json:"animation,omitempty"`
}

// PseudoContent holds ::before/::after content; values of "none" are dropped.
type PseudoContent struct {
	Before *string `yaml:"before,omitempty" json:"before,omitempty"`
	After  *string `yaml:"after,omitempty"  json:"after,omitempty"`
}
