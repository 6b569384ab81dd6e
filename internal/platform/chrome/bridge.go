package chrome

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mj1618/page-tracker/internal/describe"
	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/platform"
)

// BindingName is the runtime binding the injected script reports through.
const BindingName = "__pageTrackerEmit"

//go:embed bridge.js
var bridgeSource string

// Script returns the listener script injected into every document.
func Script() string {
	props, _ := json.Marshal(describe.StyleProperties)
	return strings.NewReplacer(
		"__BINDING__", BindingName,
		"__STYLE_PROPS__", string(props),
	).Replace(bridgeSource)
}

type message struct {
	Kind       string           `json:"kind"`
	Target     *wireTarget      `json:"target"`
	Click      *wireClick       `json:"click"`
	Key        *wireKey         `json:"key"`
	Visibility *wireVisibility  `json:"visibility"`
	Form       *wireForm        `json:"form"`
	Viewport   *wireViewport    `json:"viewport"`
	Scroll     *wireScrollState `json:"scroll"`
}

type wireTarget struct {
	TextNode bool        `json:"textNode"`
	Text     string      `json:"text"`
	Levels   []wireLevel `json:"levels"`
}

type wireLevel struct {
	Tag      string            `json:"tag"`
	Attrs    [][2]string       `json:"attrs"`
	Root     bool              `json:"root"`
	Siblings []string          `json:"siblings"`
	Index    int               `json:"index"`
	Text     string            `json:"text"`
	Props    wireProps         `json:"props"`
	Style    map[string]string `json:"style"`
	Before   *string           `json:"before"`
	After    *string           `json:"after"`
	Rect     *dom.Rect         `json:"rect"`
}

type wireProps struct {
	Value       string `json:"value"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Href        string `json:"href"`
	Src         string `json:"src"`
	Alt         string `json:"alt"`
	Title       string `json:"title"`
	Placeholder string `json:"placeholder"`
}

type wireModifiers struct {
	Alt   bool `json:"alt"`
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
	Meta  bool `json:"meta"`
}

func (m wireModifiers) modifiers() platform.Modifiers {
	return platform.Modifiers{Alt: m.Alt, Ctrl: m.Ctrl, Shift: m.Shift, Meta: m.Meta}
}

type wireClick struct {
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
	PageX     float64 `json:"pageX"`
	PageY     float64 `json:"pageY"`
	ScreenX   float64 `json:"screenX"`
	ScreenY   float64 `json:"screenY"`
	OffsetX   float64 `json:"offsetX"`
	OffsetY   float64 `json:"offsetY"`
	MovementX float64 `json:"movementX"`
	MovementY float64 `json:"movementY"`
	Button    int     `json:"button"`
	Buttons   int     `json:"buttons"`
	Trusted   bool    `json:"trusted"`
	TimeStamp float64 `json:"timeStamp"`
	wireModifiers
}

type wireKey struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	KeyCode int    `json:"keyCode"`
	wireModifiers
}

type wireVisibility struct {
	Hidden bool   `json:"hidden"`
	State  string `json:"state"`
}

type wireForm struct {
	Action string               `json:"action"`
	Method string               `json:"method"`
	Fields []platform.FormField `json:"fields"`
}

type wireViewport struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

type wireScrollState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WindowState is the viewport and scroll position reported alongside an
// event. Either field is nil when the message did not carry it.
type WindowState struct {
	Viewport *platform.Viewport
	Scroll   *platform.ScrollState
}

// Decode turns one bridge payload into a platform event plus the window
// state it was observed with.
func Decode(payload string) (platform.Event, WindowState, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, WindowState{}, fmt.Errorf("decoding bridge message: %w", err)
	}
	var u WindowState
	if m.Viewport != nil {
		u.Viewport = &platform.Viewport{Width: m.Viewport.Width, Height: m.Viewport.Height, DevicePixelRatio: m.Viewport.DPR}
	}
	if m.Scroll != nil {
		u.Scroll = &platform.ScrollState{X: m.Scroll.X, Y: m.Scroll.Y, ScrollWidth: m.Scroll.Width, ScrollHeight: m.Scroll.Height}
	}

	switch m.Kind {
	case "click":
		c := m.Click
		if c == nil {
			c = &wireClick{}
		}
		return &platform.ClickEvent{
			Target:    buildTarget(m.Target),
			ClientX:   c.ClientX,
			ClientY:   c.ClientY,
			PageX:     c.PageX,
			PageY:     c.PageY,
			ScreenX:   c.ScreenX,
			ScreenY:   c.ScreenY,
			OffsetX:   c.OffsetX,
			OffsetY:   c.OffsetY,
			MovementX: c.MovementX,
			MovementY: c.MovementY,
			Button:    platform.MouseButton(c.Button),
			Buttons:   c.Buttons,
			Modifiers: c.modifiers(),
			Trusted:   c.Trusted,
			TimeStamp: c.TimeStamp,
		}, u, nil
	case "scroll":
		return platform.ScrollEvent{}, u, nil
	case "visibilitychange":
		v := m.Visibility
		if v == nil {
			return nil, u, fmt.Errorf("visibilitychange without state")
		}
		return &platform.VisibilityEvent{Hidden: v.Hidden, State: v.State}, u, nil
	case "keydown":
		k := m.Key
		if k == nil {
			k = &wireKey{}
		}
		return &platform.KeyEvent{
			Target:    buildTarget(m.Target),
			Key:       k.Key,
			Code:      k.Code,
			KeyCode:   k.KeyCode,
			Modifiers: k.modifiers(),
		}, u, nil
	case "submit":
		f := m.Form
		if f == nil {
			f = &wireForm{}
		}
		return &platform.SubmitEvent{
			Form:   buildTarget(m.Target),
			Action: f.Action,
			Method: f.Method,
			Fields: f.Fields,
		}, u, nil
	}
	return nil, u, fmt.Errorf("unknown bridge event %q", m.Kind)
}

// snapNode is a node reconstructed from a bridge snapshot: the target, its
// ancestors, and tag-only stubs for their siblings.
type snapNode struct {
	kind     dom.Kind
	tag      string
	attrs    []dom.Attribute
	root     bool
	text     string
	props    dom.Props
	parent   *snapNode
	children []dom.Node

	captured bool
	style    dom.Style
	before   *string
	after    *string
	rect     *dom.Rect
}

func (s *snapNode) Kind() dom.Kind { return s.kind }
func (s *snapNode) Tag() string    { return s.tag }
func (s *snapNode) IsRoot() bool   { return s.root }
func (s *snapNode) Text() string   { return s.text }

func (s *snapNode) Parent() dom.Node {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

func (s *snapNode) Children() []dom.Node        { return s.children }
func (s *snapNode) Attributes() []dom.Attribute { return s.attrs }
func (s *snapNode) Props() dom.Props            { return s.props }

func buildTarget(t *wireTarget) dom.Node {
	if t == nil || len(t.Levels) == 0 {
		return nil
	}
	nodes := make([]*snapNode, len(t.Levels))
	for i, l := range t.Levels {
		n := &snapNode{kind: dom.ElementNode, tag: strings.ToLower(l.Tag), root: l.Root}
		for _, a := range l.Attrs {
			n.attrs = append(n.attrs, dom.Attribute{Name: a[0], Value: a[1]})
		}
		if i == 0 {
			n.captured = true
			n.text = l.Text
			n.props = dom.Props(l.Props)
			if l.Style != nil {
				n.style = dom.Style(l.Style)
			}
			n.before, n.after, n.rect = l.Before, l.After, l.Rect
		}
		nodes[i] = n
	}
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].parent = nodes[i+1]
		l := t.Levels[i]
		if l.Index < 0 || l.Index >= len(l.Siblings) {
			nodes[i+1].children = []dom.Node{nodes[i]}
			continue
		}
		kids := make([]dom.Node, len(l.Siblings))
		for j, tag := range l.Siblings {
			if j == l.Index {
				kids[j] = nodes[i]
				continue
			}
			kids[j] = &snapNode{kind: dom.ElementNode, tag: tag}
		}
		nodes[i+1].children = kids
	}
	if t.TextNode {
		return &snapNode{kind: dom.TextNode, text: t.Text, parent: nodes[0]}
	}
	return nodes[0]
}

// computedStyle answers style queries from the snapshot taken at event time.
// Only the event's own element carries captured style.
func computedStyle(n dom.Node, pseudo string) (dom.Style, error) {
	s, ok := n.(*snapNode)
	if !ok {
		return nil, platform.ErrDetached
	}
	if !s.captured || s.style == nil {
		return nil, platform.ErrUnsupported
	}
	switch pseudo {
	case "":
		return s.style, nil
	case "::before":
		if s.before == nil {
			return nil, platform.ErrUnsupported
		}
		return dom.Style{"content": *s.before}, nil
	case "::after":
		if s.after == nil {
			return nil, platform.ErrUnsupported
		}
		return dom.Style{"content": *s.after}, nil
	}
	return nil, platform.ErrUnsupported
}

func boundingRect(n dom.Node) (*dom.Rect, error) {
	s, ok := n.(*snapNode)
	if !ok {
		return nil, platform.ErrDetached
	}
	if s.rect == nil {
		return nil, platform.ErrUnsupported
	}
	return s.rect, nil
}
