// Package dom models the slice of a browser DOM that event tracking reads.
//
// Hosts (a live browser, a parsed HTML file) expose their nodes through the
// Node interface. Implementations must be comparable with == so that a node
// can be located among its parent's children.
package dom

import "strings"

// Kind is the DOM node type.
type Kind int

const (
	ElementNode Kind = iota + 1
	TextNode
	DocumentNode
)

// Attribute is a single name/value pair in source order.
type Attribute struct {
	Name  string
	Value string
}

// Props carries the properties that only some element variants expose
// (inputs have a value and type, anchors an href, images a src...).
// Empty strings mean the element does not support the property or it is unset.
type Props struct {
	Value       string
	Type        string
	Name        string
	Href        string
	Src         string
	Alt         string
	Title       string
	Placeholder string
}

// Style maps CSS property names (kebab-case, e.g. "z-index") to computed values.
type Style map[string]string

// Rect is an element's bounding box relative to the viewport.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Node is a DOM node as seen at the moment of an event.
type Node interface {
	Kind() Kind
	// Tag returns the lowercased tag name, or "" for non-element nodes.
	Tag() string
	// Parent returns the parent element. It is nil for the document element
	// and for the root of a detached subtree.
	Parent() Node
	// IsRoot reports whether the node is the document element (<html>).
	IsRoot() bool
	// Children returns the element children in document order.
	Children() []Node
	Attributes() []Attribute
	// Text returns the node's textContent.
	Text() string
	Props() Props
}

// Attr returns the value of the named attribute.
func Attr(n Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attributes() {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ID returns the element's id attribute, or "".
func ID(n Node) string {
	id, _ := Attr(n, "id")
	return id
}

// Classes returns the element's class names in insertion order, without duplicates.
func Classes(n Node) []string {
	raw, ok := Attr(n, "class")
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, c := range strings.Fields(raw) {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// IsBody reports whether n is the document's <body>.
func IsBody(n Node) bool {
	if n == nil || n.Tag() != "body" {
		return false
	}
	p := n.Parent()
	return p != nil && p.IsRoot()
}

// Resolve returns the element to describe for an event target: text nodes
// resolve to their parent element. It returns nil when no element can be found.
func Resolve(n Node) Node {
	if n == nil {
		return nil
	}
	if n.Kind() == TextNode {
		p := n.Parent()
		if p == nil {
			return nil
		}
		n = p
	}
	if n.Kind() != ElementNode || n.Tag() == "" {
		return nil
	}
	return n
}

// ChildIndex returns n's 1-based position among all element children of its
// parent, or 0 when n has no parent.
func ChildIndex(n Node) int {
	p := n.Parent()
	if p == nil {
		return 0
	}
	for i, c := range p.Children() {
		if c == n {
			return i + 1
		}
	}
	return 0
}

// TagIndex returns n's 1-based position among the preceding siblings that
// share its tag name. Detached nodes are always 1.
func TagIndex(n Node) int {
	p := n.Parent()
	if p == nil {
		return 1
	}
	index := 1
	for _, c := range p.Children() {
		if c == n {
			return index
		}
		if c.Tag() == n.Tag() {
			index++
		}
	}
	return index
}
