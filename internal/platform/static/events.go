package static

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/platform"
	"golang.org/x/net/html"
)

// ClickOptions describe a synthetic click.
type ClickOptions struct {
	X, Y    float64 // viewport coordinates
	Button  platform.MouseButton
	Buttons int
	platform.Modifiers
}

// Click dispatches a click on the first element matching selector.
func (p *Page) Click(selector string, o ClickOptions) error {
	target, err := p.Query(selector)
	if err != nil {
		return err
	}
	st := p.Scroll()
	p.dispatch(&platform.ClickEvent{
		Target:    target,
		ClientX:   o.X,
		ClientY:   o.Y,
		PageX:     o.X + st.X,
		PageY:     o.Y + st.Y,
		ScreenX:   o.X,
		ScreenY:   o.Y,
		Button:    o.Button,
		Buttons:   o.Buttons,
		Modifiers: o.Modifiers,
		TimeStamp: p.sinceLoad(),
	})
	return nil
}

// ScrollTo moves the window and dispatches a scroll tick. Offsets are clamped
// to the scrollable range, as a browser does.
func (p *Page) ScrollTo(x, y float64) {
	p.mu.Lock()
	maxX := p.scroll.ScrollWidth - float64(p.opts.Viewport.Width)
	maxY := p.scroll.ScrollHeight - float64(p.opts.Viewport.Height)
	p.scroll.X = clamp(x, 0, maxX)
	p.scroll.Y = clamp(y, 0, maxY)
	p.mu.Unlock()
	p.dispatch(platform.ScrollEvent{})
}

// Key dispatches a keydown on the element matching selector, or on <body>
// when selector is empty.
func (p *Page) Key(selector, key string, mods platform.Modifiers) error {
	if selector == "" {
		selector = "body"
	}
	target, err := p.Query(selector)
	if err != nil {
		return err
	}
	code, keyCode := KeyCode(key)
	p.dispatch(&platform.KeyEvent{
		Target:    target,
		Key:       key,
		Code:      code,
		KeyCode:   keyCode,
		Modifiers: mods,
	})
	return nil
}

// SetVisibility dispatches a visibilitychange.
func (p *Page) SetVisibility(hidden bool) {
	state := "visible"
	if hidden {
		state = "hidden"
	}
	p.dispatch(&platform.VisibilityEvent{Hidden: hidden, State: state})
}

// Submit dispatches a submit for the form matching selector. values
// overrides the current value of controls by name before the field list is
// collected.
func (p *Page) Submit(selector string, values map[string]string) error {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	if sel.Nodes[0].Type != html.ElementNode || sel.Nodes[0].Data != "form" {
		return fmt.Errorf("%q is a <%s>, not a form", selector, sel.Nodes[0].Data)
	}
	form := dom.FromHTML(sel.Nodes[0], p.base)

	var fields []platform.FormField
	sel.Find("button, fieldset, input, object, output, select, textarea").Each(func(_ int, c *goquery.Selection) {
		n := dom.FromHTML(c.Nodes[0], p.base)
		props := n.Props()
		value := props.Value
		if v, ok := values[props.Name]; ok && props.Name != "" {
			value = v
		}
		fields = append(fields, platform.FormField{Name: props.Name, Type: props.Type, Value: value})
	})

	p.dispatch(&platform.SubmitEvent{
		Form:   form,
		Action: p.formAction(form),
		Method: formMethod(form),
		Fields: fields,
	})
	return nil
}

// formAction resolves the action attribute against the document URL; an
// absent or empty action submits to the document itself.
func (p *Page) formAction(form dom.Node) string {
	action := strings.TrimSpace(attr(form, "action"))
	if action == "" {
		return p.base.String()
	}
	u, err := p.base.Parse(action)
	if err != nil {
		return action
	}
	return u.String()
}

func formMethod(form dom.Node) string {
	switch m := strings.ToLower(attr(form, "method")); m {
	case "post", "dialog":
		return m
	}
	return "get"
}

var namedKeys = map[string]struct {
	code    string
	keyCode int
}{
	"Backspace":  {"Backspace", 8},
	"Tab":        {"Tab", 9},
	"Enter":      {"Enter", 13},
	"Shift":      {"ShiftLeft", 16},
	"Control":    {"ControlLeft", 17},
	"Alt":        {"AltLeft", 18},
	"Escape":     {"Escape", 27},
	" ":          {"Space", 32},
	"PageUp":     {"PageUp", 33},
	"PageDown":   {"PageDown", 34},
	"End":        {"End", 35},
	"Home":       {"Home", 36},
	"ArrowLeft":  {"ArrowLeft", 37},
	"ArrowUp":    {"ArrowUp", 38},
	"ArrowRight": {"ArrowRight", 39},
	"ArrowDown":  {"ArrowDown", 40},
	"Delete":     {"Delete", 46},
	"Meta":       {"MetaLeft", 91},
}

// KeyCode returns the physical key code and legacy keyCode a US keyboard
// reports for a key value. Unknown keys yield ("", 0).
func KeyCode(key string) (string, int) {
	if k, ok := namedKeys[key]; ok {
		return k.code, k.keyCode
	}
	r := []rune(key)
	if len(r) != 1 {
		return "", 0
	}
	switch c := r[0]; {
	case c < unicode.MaxASCII && unicode.IsLetter(c):
		u := unicode.ToUpper(c)
		return "Key" + string(u), int(u)
	case c >= '0' && c <= '9':
		return "Digit" + string(c), int(c)
	}
	return "", 0
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
