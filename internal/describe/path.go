package describe

import (
	"strconv"
	"strings"

	"github.com/mj1618/page-tracker/internal/dom"
)

// CSSPath builds a selector from n up to, but excluding, the document element.
// The walk stops at the first element carrying an id (ids are assumed unique).
// Elements without an id get their classes and an :nth-child position among
// all element siblings.
func CSSPath(n dom.Node) string {
	var segments []string
	for cur := dom.Resolve(n); cur != nil && !cur.IsRoot(); cur = cur.Parent() {
		seg := cur.Tag()
		if id := dom.ID(cur); id != "" {
			segments = append(segments, seg+"#"+id)
			break
		}
		if classes := dom.Classes(cur); len(classes) > 0 {
			seg += "." + strings.Join(classes, ".")
		}
		seg += ":nth-child(" + strconv.Itoa(dom.ChildIndex(cur)) + ")"
		segments = append(segments, seg)
	}
	reverse(segments)
	return strings.Join(segments, " > ")
}

// XPath builds an absolute XPath for n. An element with an id short-circuits
// to //*[@id="..."], and <body> to /html/body. Otherwise each level is indexed
// among preceding siblings with the same tag.
func XPath(n dom.Node) string {
	el := dom.Resolve(n)
	if el == nil {
		return ""
	}
	if id := dom.ID(el); id != "" {
		return `//*[@id="` + id + `"]`
	}
	if dom.IsBody(el) {
		return "/html/body"
	}

	var parts []string
	for cur := el; cur != nil && cur.Kind() == dom.ElementNode && !cur.IsRoot(); cur = cur.Parent() {
		parts = append(parts, cur.Tag()+"["+strconv.Itoa(dom.TagIndex(cur))+"]")
	}
	reverse(parts)
	return "/html/" + strings.Join(parts, "/")
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
