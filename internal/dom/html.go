package dom

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// htmlNode adapts a parsed golang.org/x/net/html node. The base URL resolves
// href/src properties the way a browser reports them.
type htmlNode struct {
	n    *html.Node
	base *url.URL
}

// FromHTML wraps a parsed HTML node. base may be nil, in which case URL
// properties are reported as written.
func FromHTML(n *html.Node, base *url.URL) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n: n, base: base}
}

// Unwrap returns the underlying html.Node of a node created by FromHTML.
func Unwrap(n Node) (*html.Node, bool) {
	h, ok := n.(htmlNode)
	if !ok {
		return nil, false
	}
	return h.n, true
}

func (h htmlNode) Kind() Kind {
	switch h.n.Type {
	case html.ElementNode:
		return ElementNode
	case html.TextNode:
		return TextNode
	case html.DocumentNode:
		return DocumentNode
	}
	return 0
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(h.n.Data)
}

func (h htmlNode) Parent() Node {
	p := h.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return htmlNode{n: p, base: h.base}
}

func (h htmlNode) IsRoot() bool {
	return h.n.Type == html.ElementNode && h.n.Parent != nil && h.n.Parent.Type == html.DocumentNode
}

func (h htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, htmlNode{n: c, base: h.base})
		}
	}
	return out
}

func (h htmlNode) Attributes() []Attribute {
	if len(h.n.Attr) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(h.n.Attr))
	for _, a := range h.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, Attribute{Name: name, Value: a.Val})
	}
	return out
}

func (h htmlNode) Text() string {
	if h.n.Type == html.TextNode {
		return h.n.Data
	}
	var sb strings.Builder
	collectText(h.n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, sb)
		}
	}
}

func (h htmlNode) attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (h htmlNode) url(name string) string {
	v, ok := h.attr(name)
	if !ok {
		return ""
	}
	if h.base == nil {
		return v
	}
	u, err := h.base.Parse(strings.TrimSpace(v))
	if err != nil {
		return v
	}
	return u.String()
}

func (h htmlNode) Props() Props {
	if h.n.Type != html.ElementNode {
		return Props{}
	}
	tag := h.Tag()
	p := Props{}
	p.Name, _ = h.attr("name")
	p.Title, _ = h.attr("title")

	switch tag {
	case "input":
		p.Type = strings.ToLower(h.attrOr("type", "text"))
		p.Value = h.inputValue(p.Type)
		p.Placeholder, _ = h.attr("placeholder")
		p.Alt, _ = h.attr("alt")
		if p.Type == "image" {
			p.Src = h.url("src")
		}
	case "textarea":
		p.Type = "textarea"
		p.Value = h.Text()
		p.Placeholder, _ = h.attr("placeholder")
	case "select":
		p.Type = "select-one"
		if _, multi := h.attr("multiple"); multi {
			p.Type = "select-multiple"
		}
		p.Value = h.selectValue()
	case "button":
		p.Type = strings.ToLower(h.attrOr("type", "submit"))
		p.Value, _ = h.attr("value")
	case "option":
		p.Value = optionValue(h.n)
	case "a", "area", "link", "base":
		p.Href = h.url("href")
		if tag == "area" {
			p.Alt, _ = h.attr("alt")
		}
	case "img":
		p.Src = h.url("src")
		p.Alt, _ = h.attr("alt")
	case "script", "iframe", "embed", "video", "audio", "source", "track":
		p.Src = h.url("src")
	}
	if p.Type == "" {
		p.Type, _ = h.attr("type")
	}
	return p
}

func (h htmlNode) attrOr(name, def string) string {
	if v, ok := h.attr(name); ok && v != "" {
		return v
	}
	return def
}

func (h htmlNode) inputValue(typ string) string {
	v, ok := h.attr("value")
	if !ok && (typ == "checkbox" || typ == "radio") {
		return "on"
	}
	return v
}

func (h htmlNode) selectValue() string {
	var first, selected *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "option" {
				if first == nil {
					first = c
				}
				if selected == nil && hasAttr(c, "selected") {
					selected = c
				}
				continue
			}
			walk(c)
		}
	}
	walk(h.n)
	if selected != nil {
		return optionValue(selected)
	}
	if first != nil {
		return optionValue(first)
	}
	return ""
}

func optionValue(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "value" {
			return a.Val
		}
	}
	var sb strings.Builder
	collectText(n, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}
