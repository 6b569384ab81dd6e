package describe

import (
	"strings"

	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/model"
)

// StyleProperties lists the computed properties a CSS descriptor records.
var StyleProperties = []string{
	"display", "visibility", "opacity", "position",
	"top", "left", "right", "bottom", "z-index",
	"width", "height", "margin", "padding", "border",
	"background-color", "color",
	"font-size", "font-family", "font-weight", "text-align",
	"cursor", "transform", "transition", "animation",
}

// CSS builds the style descriptor of n.
func CSS(src StyleSource, n dom.Node) model.CSSDescriptor {
	el := dom.Resolve(n)
	if el == nil {
		return model.CSSDescriptor{}
	}
	d := model.CSSDescriptor{
		ClassList: dom.Classes(el),
	}
	if inline, ok := dom.Attr(el, "style"); ok {
		d.Inline = optional(strings.TrimSpace(inline))
	}
	if src == nil {
		return d
	}
	if style, err := src.ComputedStyle(el, ""); err == nil && style != nil {
		d.Computed = computed(style)
	}
	d.Pseudo.Before = pseudoContent(src, el, "::before")
	d.Pseudo.After = pseudoContent(src, el, "::after")
	return d
}

func computed(s dom.Style) *model.ComputedStyle {
	return &model.ComputedStyle{
		Display:         s["display"],
		Visibility:      s["visibility"],
		Opacity:         s["opacity"],
		Position:        s["position"],
		Top:             s["top"],
		Left:            s["left"],
		Right:           s["right"],
		Bottom:          s["bottom"],
		ZIndex:          s["z-index"],
		Width:           s["width"],
		Height:          s["height"],
		Margin:          s["margin"],
		Padding:         s["padding"],
		Border:          s["border"],
		BackgroundColor: s["background-color"],
		Color:           s["color"],
		FontSize:        s["font-size"],
		FontFamily:      s["font-family"],
		FontWeight:      s["font-weight"],
		TextAlign:       s["text-align"],
		Cursor:          s["cursor"],
		Transform:       s["transform"],
		Transition:      s["transition"],
		Animation:       s["animation"],
	}
}

func pseudoContent(src StyleSource, el dom.Node, pseudo string) *string {
	style, err := src.ComputedStyle(el, pseudo)
	if err != nil || style == nil {
		return nil
	}
	content := style["content"]
	if content == "none" {
		return nil
	}
	return optional(content)
}
