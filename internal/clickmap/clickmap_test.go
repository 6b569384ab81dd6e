package clickmap

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/mj1618/page-tracker/internal/model"
)

func clickAt(seq int, clientX, clientY, scrollY float64, rect *model.Rect) model.Event {
	return model.Event{Type: model.EventClick, Sequence: seq, Click: &model.Click{
		Element:  model.ElementDescriptor{TagName: "button", BoundingRect: rect},
		Position: model.Pointer{ClientX: clientX, ClientY: clientY, PageX: clientX, PageY: clientY + scrollY},
	}}
}

func TestMarks_ShiftsBoxByScroll(t *testing.T) {
	rect := &model.Rect{Left: 10, Top: 20, Right: 110, Bottom: 60, Width: 100, Height: 40}
	events := []model.Event{
		{Type: model.EventPageView, Sequence: 1},
		clickAt(2, 50, 30, 500, rect),
		clickAt(3, 5, 5, 0, nil),
	}
	marks := Marks(events)
	if len(marks) != 2 {
		t.Fatalf("expected 2 marks, got %d", len(marks))
	}
	if marks[0].Sequence != 2 || marks[0].Box == nil {
		t.Fatalf("first mark: %+v", marks[0])
	}
	if marks[0].Box.Top != 520 || marks[0].Box.Bottom != 560 || marks[0].Box.Left != 10 {
		t.Errorf("box should be shifted by scroll: %+v", marks[0].Box)
	}
	if marks[1].Box != nil || marks[1].X != 5 {
		t.Errorf("second mark: %+v", marks[1])
	}
}

func TestMarks_IgnoresEmptyBox(t *testing.T) {
	marks := Marks([]model.Event{clickAt(1, 1, 1, 0, &model.Rect{})})
	if marks[0].Box != nil {
		t.Error("zero-size box should be treated as unknown")
	}
}

func TestRender_NoClicks(t *testing.T) {
	if _, err := Render([]model.Event{{Type: model.EventScroll}}, Options{}); !errors.Is(err, ErrNoClicks) {
		t.Errorf("expected ErrNoClicks, got %v", err)
	}
}

func TestRender_FitsCanvas(t *testing.T) {
	rect := &model.Rect{Left: 10, Top: 20, Right: 110, Bottom: 60, Width: 100, Height: 40}
	img, err := Render([]model.Event{clickAt(1, 50, 30, 100, rect)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 110+margin || b.Dy() != 160+margin {
		t.Errorf("canvas size: %v", b)
	}
	if got := img.RGBAAt(10, 130); got != boxColor {
		t.Errorf("expected box outline at left edge, got %v", got)
	}
}

func TestRender_ScalesToBackground(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 200, 200))
	rect := &model.Rect{Left: 10, Top: 10, Right: 50, Bottom: 50, Width: 40, Height: 40}
	img, err := Render([]model.Event{clickAt(1, 20, 20, 0, rect)}, Options{Background: bg, PageWidth: 100})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != bg.Bounds() {
		t.Errorf("bounds: %v", img.Bounds())
	}
	if got := img.RGBAAt(20, 40); got != boxColor {
		t.Errorf("expected scaled outline at x=20, got %v", got)
	}
	if got := img.RGBAAt(10, 40); got == boxColor {
		t.Error("unscaled position should be untouched")
	}
}

func TestRender_PointMarker(t *testing.T) {
	img, err := Render([]model.Event{clickAt(1, 40, 40, 0, nil)}, Options{Width: 80, Height: 80})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(40, 40); got == (color.RGBA{R: 245, G: 245, B: 245, A: 255}) {
		t.Error("marker was not drawn")
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, []model.Event{clickAt(1, 10, 10, 0, nil)}, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}
