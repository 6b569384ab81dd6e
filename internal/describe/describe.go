// Package describe turns DOM nodes into serializable element descriptors.
//
// Every field is computed independently: a failing style or layout query
// leaves that field empty and the rest of the descriptor intact.
package describe

import (
	"strings"
	"unicode/utf8"

	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/model"
)

// TextLimit is the number of characters of textContent kept in a descriptor.
const TextLimit = 100

// StyleSource answers style and layout queries for nodes. platform.Page
// satisfies it.
type StyleSource interface {
	ComputedStyle(n dom.Node, pseudo string) (dom.Style, error)
	BoundingRect(n dom.Node) (*dom.Rect, error)
}

// Element builds the descriptor of n. Text nodes are described through their
// parent; a nil or non-element node yields a descriptor tagged "unknown".
func Element(src StyleSource, n dom.Node) model.ElementDescriptor {
	el := dom.Resolve(n)
	if el == nil {
		return model.ElementDescriptor{TagName: model.UnknownTag}
	}

	props := el.Props()
	d := model.ElementDescriptor{
		TagName:     el.Tag(),
		ID:          optional(dom.ID(el)),
		Classes:     dom.Classes(el),
		Text:        optional(snippet(el.Text())),
		Value:       optional(props.Value),
		Type:        optional(props.Type),
		Name:        optional(props.Name),
		Href:        optional(props.Href),
		Src:         optional(props.Src),
		Alt:         optional(props.Alt),
		Title:       optional(props.Title),
		Placeholder: optional(props.Placeholder),
		Path:        CSSPath(el),
		XPath:       XPath(el),
	}

	if attrs := el.Attributes(); len(attrs) > 0 {
		d.Attributes = make(map[string]string, len(attrs))
		for _, a := range attrs {
			d.Attributes[a.Name] = a.Value
		}
	}
	if p := el.Parent(); p != nil {
		d.ParentElement = optional(p.Tag())
	}
	if src == nil {
		return d
	}
	if r, err := src.BoundingRect(el); err == nil && r != nil {
		d.BoundingRect = &model.Rect{
			Top:    r.Top,
			Left:   r.Left,
			Right:  r.Left + r.Width,
			Bottom: r.Top + r.Height,
			Width:  r.Width,
			Height: r.Height,
		}
	}
	if style, err := src.ComputedStyle(el, ""); err == nil && style != nil {
		v := Visible(style)
		d.IsVisible = &v
	}
	return d
}

// Visible reports whether an element with the given computed style is shown:
// display is not none, visibility is not hidden and opacity is not "0".
// Zero-size, off-screen and hidden-ancestor cases are not detected.
func Visible(style dom.Style) bool {
	return style["display"] != "none" &&
		style["visibility"] != "hidden" &&
		style["opacity"] != "0"
}

// snippet keeps the first TextLimit characters, then trims surrounding space.
func snippet(text string) string {
	if utf8.RuneCountInString(text) > TextLimit {
		runes := []rune(text)
		text = string(runes[:TextLimit])
	}
	return strings.TrimSpace(text)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
