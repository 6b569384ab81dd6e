package static

import (
	"strings"

	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/platform"
)

var hiddenTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"meta": true, "link": true, "title": true, "base": true, "noscript": true,
}

var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "section": true,
	"article": true, "aside": true, "header": true, "footer": true, "nav": true,
	"main": true, "form": true, "fieldset": true, "ul": true, "ol": true,
	"dl": true, "dd": true, "dt": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
	"figure": true, "figcaption": true, "hr": true, "address": true,
	"details": true, "summary": true, "dialog": true,
}

var defaultDisplay = map[string]string{
	"li":       "list-item",
	"table":    "table",
	"tr":       "table-row",
	"td":       "table-cell",
	"th":       "table-cell",
	"thead":    "table-header-group",
	"tbody":    "table-row-group",
	"tfoot":    "table-footer-group",
	"caption":  "table-caption",
	"button":   "inline-block",
	"input":    "inline-block",
	"select":   "inline-block",
	"textarea": "inline-block",
	"img":      "inline",
}

// ComputedStyle approximates the cascade with user-agent defaults overlaid
// by the element's own inline style. Stylesheets are not applied, and
// pseudo-elements are unsupported.
func (p *Page) ComputedStyle(n dom.Node, pseudo string) (dom.Style, error) {
	if _, ok := p.owns(n); !ok {
		return nil, platform.ErrDetached
	}
	if pseudo != "" {
		return nil, platform.ErrUnsupported
	}
	style := dom.Style{
		"display":          uaDisplay(n),
		"visibility":       "visible",
		"opacity":          "1",
		"position":         "static",
		"top":              "auto",
		"left":             "auto",
		"right":            "auto",
		"bottom":           "auto",
		"z-index":          "auto",
		"width":            "auto",
		"height":           "auto",
		"margin":           "0px",
		"padding":          "0px",
		"border":           "0px none rgb(0, 0, 0)",
		"background-color": "rgba(0, 0, 0, 0)",
		"color":            "rgb(0, 0, 0)",
		"font-size":        "16px",
		"font-family":      "Times New Roman",
		"font-weight":      "400",
		"text-align":       "start",
		"cursor":           "auto",
		"transform":        "none",
		"transition":       "all 0s ease 0s",
		"animation":        "none 0s ease 0s 1 normal none running",
	}
	if n.Tag() == "a" {
		style["cursor"] = "pointer"
	}
	// visibility is inherited
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if v := ParseInline(attr(cur, "style"))["visibility"]; v != "" {
			style["visibility"] = v
			break
		}
	}
	for k, v := range ParseInline(attr(n, "style")) {
		style[k] = v
	}
	return style, nil
}

// BoundingRect is unavailable without layout.
func (p *Page) BoundingRect(n dom.Node) (*dom.Rect, error) {
	if _, ok := p.owns(n); !ok {
		return nil, platform.ErrDetached
	}
	return nil, platform.ErrUnsupported
}

func uaDisplay(n dom.Node) string {
	tag := n.Tag()
	if _, hidden := dom.Attr(n, "hidden"); hidden || hiddenTags[tag] {
		return "none"
	}
	if tag == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return "none"
	}
	if blockTags[tag] {
		return "block"
	}
	if d, ok := defaultDisplay[tag]; ok {
		return d
	}
	return "inline"
}

// ParseInline splits a style attribute into lowercased property names and
// values. !important is dropped.
func ParseInline(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}

func attr(n dom.Node, name string) string {
	v, _ := dom.Attr(n, name)
	return v
}
