package describe

import (
	"errors"
	"strings"
	"testing"

	"github.com/mj1618/page-tracker/internal/dom"
	"golang.org/x/net/html"
)

const fixture = `<html><head><title>t</title></head><body>
<div id="app">
  <section class="wrap">
    <p>first</p>
    <span class="x y" data-role="label" style="color: red">hello <b id="bold">world</b></span>
  </section>
</div>
<ul><li>one</li><li class="item">two</li><em>e</em><li class="item">three</li></ul>
<a id="link" href="/docs" title="Docs">Docs</a>
</body></html>`

func load(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// find returns the first element matching tag (and class, when non-empty),
// skipping the first skip matches.
func find(n *html.Node, tag, class string, skip int) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			ok := class == ""
			for _, a := range n.Attr {
				if a.Key == "class" && strings.Contains(" "+a.Val+" ", " "+class+" ") {
					ok = true
				}
			}
			if ok {
				if skip == 0 {
					found = n
					return
				}
				skip--
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

type fakeStyles struct {
	styles map[string]dom.Style // keyed by tag + pseudo
	err    error
	rect   *dom.Rect
}

func (f fakeStyles) ComputedStyle(n dom.Node, pseudo string) (dom.Style, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.styles[n.Tag()+pseudo], nil
}

func (f fakeStyles) BoundingRect(dom.Node) (*dom.Rect, error) {
	return f.rect, nil
}

func TestCSSPath_StopsAtAncestorWithID(t *testing.T) {
	doc := load(t)
	span := dom.FromHTML(find(doc, "span", "x", 0), nil)

	got := CSSPath(span)
	want := "div#app > section.wrap:nth-child(1) > span.x.y:nth-child(2)"
	if got != want {
		t.Errorf("CSSPath:\n got %q\nwant %q", got, want)
	}
}

func TestCSSPath_ElementWithOwnID(t *testing.T) {
	doc := load(t)
	b := dom.FromHTML(find(doc, "b", "", 0), nil)
	if got := CSSPath(b); got != "b#bold" {
		t.Errorf("CSSPath: got %q, want %q", got, "b#bold")
	}
}

func TestCSSPath_NthChildCountsAllSiblings(t *testing.T) {
	doc := load(t)
	third := dom.FromHTML(find(doc, "li", "item", 1), nil)
	got := CSSPath(third)
	want := "body:nth-child(2) > ul:nth-child(2) > li.item:nth-child(4)"
	if got != want {
		t.Errorf("CSSPath:\n got %q\nwant %q", got, want)
	}
}

func TestXPath_IDShortCircuits(t *testing.T) {
	doc := load(t)
	app := dom.FromHTML(find(doc, "div", "", 0), nil)
	if got := XPath(app); got != `//*[@id="app"]` {
		t.Errorf("XPath: got %q", got)
	}
	b := dom.FromHTML(find(doc, "b", "", 0), nil)
	if got := XPath(b); got != `//*[@id="bold"]` {
		t.Errorf("XPath: got %q", got)
	}
}

func TestXPath_Body(t *testing.T) {
	doc := load(t)
	body := dom.FromHTML(find(doc, "body", "", 0), nil)
	if got := XPath(body); got != "/html/body" {
		t.Errorf("XPath: got %q, want /html/body", got)
	}
}

func TestXPath_IndexesSameTagSiblingsOnly(t *testing.T) {
	doc := load(t)
	third := dom.FromHTML(find(doc, "li", "item", 1), nil)
	if got := XPath(third); got != "/html/body[1]/ul[1]/li[3]" {
		t.Errorf("XPath: got %q, want /html/body[1]/ul[1]/li[3]", got)
	}
	span := dom.FromHTML(find(doc, "span", "x", 0), nil)
	if got := XPath(span); got != "/html/body[1]/div[1]/section[1]/span[1]" {
		t.Errorf("XPath: got %q", got)
	}
}

func TestElement_NilTarget(t *testing.T) {
	d := Element(nil, nil)
	if d.TagName != "unknown" {
		t.Errorf("tagName: got %q, want unknown", d.TagName)
	}
	if d.Path != "" || d.XPath != "" || d.Attributes != nil {
		t.Error("minimal descriptor should carry nothing but the tag name")
	}
}

func TestElement_TextNodeResolvesToParent(t *testing.T) {
	doc := load(t)
	p := find(doc, "p", "", 0)
	d := Element(nil, dom.FromHTML(p.FirstChild, nil))
	if d.TagName != "p" {
		t.Fatalf("tagName: got %q, want p", d.TagName)
	}
	if d.Text == nil || *d.Text != "first" {
		t.Errorf("text: got %v", d.Text)
	}
	if d.ParentElement == nil || *d.ParentElement != "section" {
		t.Errorf("parentElement: got %v", d.ParentElement)
	}
}

func TestElement_Fields(t *testing.T) {
	doc := load(t)
	span := dom.FromHTML(find(doc, "span", "x", 0), nil)
	src := fakeStyles{
		styles: map[string]dom.Style{"span": {"display": "inline", "opacity": "1"}},
		rect:   &dom.Rect{Left: 10, Top: 20, Width: 100, Height: 30},
	}
	d := Element(src, span)

	if d.ID != nil {
		t.Errorf("id should be nil, got %q", *d.ID)
	}
	if strings.Join(d.Classes, ",") != "x,y" {
		t.Errorf("classes: got %v", d.Classes)
	}
	if d.Text == nil || *d.Text != "hello world" {
		t.Errorf("text: got %v", d.Text)
	}
	if d.Attributes["data-role"] != "label" {
		t.Errorf("attributes: got %v", d.Attributes)
	}
	if d.BoundingRect == nil || d.BoundingRect.Right != 110 || d.BoundingRect.Bottom != 50 {
		t.Errorf("boundingRect: got %+v", d.BoundingRect)
	}
	if d.IsVisible == nil || !*d.IsVisible {
		t.Errorf("isVisible: got %v", d.IsVisible)
	}
}

func TestElement_TextTruncatedThenTrimmed(t *testing.T) {
	long := "  " + strings.Repeat("é", 120)
	doc, err := html.Parse(strings.NewReader("<p>" + long + "</p>"))
	if err != nil {
		t.Fatal(err)
	}
	d := Element(nil, dom.FromHTML(find(doc, "p", "", 0), nil))
	if d.Text == nil {
		t.Fatal("text should be set")
	}
	if n := len([]rune(*d.Text)); n != TextLimit-2 {
		t.Errorf("text length: got %d runes, want %d", n, TextLimit-2)
	}
}

func TestElement_StyleFailureDegrades(t *testing.T) {
	doc := load(t)
	link := dom.FromHTML(find(doc, "a", "", 0), nil)
	d := Element(fakeStyles{err: errors.New("boom")}, link)
	if d.IsVisible != nil {
		t.Error("isVisible should be nil when styles fail")
	}
	if d.Href == nil || *d.Href != "/docs" {
		t.Errorf("href: got %v", d.Href)
	}
	if d.Title == nil || *d.Title != "Docs" {
		t.Errorf("title: got %v", d.Title)
	}
	if d.XPath != `//*[@id="link"]` {
		t.Errorf("xpath: got %q", d.XPath)
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		style dom.Style
		want  bool
	}{
		{dom.Style{"display": "block", "visibility": "visible", "opacity": "1"}, true},
		{dom.Style{"display": "none"}, false},
		{dom.Style{"visibility": "hidden"}, false},
		{dom.Style{"opacity": "0"}, false},
		{dom.Style{"opacity": "0.0"}, true},
		{dom.Style{}, true},
	}
	for _, tt := range tests {
		if got := Visible(tt.style); got != tt.want {
			t.Errorf("Visible(%v) = %v, want %v", tt.style, got, tt.want)
		}
	}
}

func TestCSS_PseudoAndInline(t *testing.T) {
	doc := load(t)
	span := dom.FromHTML(find(doc, "span", "x", 0), nil)
	src := fakeStyles{styles: map[string]dom.Style{
		"span":         {"display": "inline", "z-index": "auto", "background-color": "red"},
		"span::before": {"content": `"→"`},
		"span::after":  {"content": "none"},
	}}
	c := CSS(src, span)

	if c.Inline == nil || *c.Inline != "color: red" {
		t.Errorf("inline: got %v", c.Inline)
	}
	if c.Computed == nil || c.Computed.ZIndex != "auto" || c.Computed.BackgroundColor != "red" {
		t.Errorf("computed: got %+v", c.Computed)
	}
	if c.Pseudo.Before == nil || *c.Pseudo.Before != `"→"` {
		t.Errorf("before: got %v", c.Pseudo.Before)
	}
	if c.Pseudo.After != nil {
		t.Errorf("after should be dropped for none, got %q", *c.Pseudo.After)
	}
	if strings.Join(c.ClassList, " ") != "x y" {
		t.Errorf("classList: got %v", c.ClassList)
	}
}

func TestCSS_StyleFailureDegrades(t *testing.T) {
	doc := load(t)
	span := dom.FromHTML(find(doc, "span", "x", 0), nil)
	c := CSS(fakeStyles{err: errors.New("unsupported")}, span)
	if c.Computed != nil {
		t.Error("computed should be nil when the style query fails")
	}
	if c.Pseudo.Before != nil || c.Pseudo.After != nil {
		t.Error("pseudo content should be empty when the style query fails")
	}
	if c.Inline == nil {
		t.Error("inline style does not depend on the style query")
	}
}
