// Package clickmap renders the clicks of a session onto an image: a box
// around each clicked element (or a marker at the pointer when the element
// box is unknown) labelled with the event number.
package clickmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/mj1618/page-tracker/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrNoClicks is returned when there is nothing to draw.
var ErrNoClicks = errors.New("no click events to render")

// Mark is one click in document coordinates.
type Mark struct {
	Sequence int
	X, Y     float64     // pointer position on the page
	Box      *model.Rect // element box on the page, nil when unknown
}

// Marks extracts the clicks of a log. Element boxes are recorded relative to
// the viewport, so they are shifted by the scroll offset at click time
// (page minus client coordinates).
func Marks(events []model.Event) []Mark {
	var marks []Mark
	for _, ev := range events {
		if ev.Click == nil {
			continue
		}
		p := ev.Click.Position
		m := Mark{Sequence: ev.Sequence, X: p.PageX, Y: p.PageY}
		if r := ev.Click.Element.BoundingRect; r != nil && r.Width > 0 && r.Height > 0 {
			dx, dy := p.PageX-p.ClientX, p.PageY-p.ClientY
			m.Box = &model.Rect{
				Left:   r.Left + dx,
				Top:    r.Top + dy,
				Right:  r.Right + dx,
				Bottom: r.Bottom + dy,
				Width:  r.Width,
				Height: r.Height,
			}
		}
		marks = append(marks, m)
	}
	return marks
}

// Options control rendering.
type Options struct {
	// Background is drawn first, typically a full-page screenshot.
	Background image.Image
	// PageWidth is the document width in CSS pixels the background was
	// captured at. Zero means the background is 1:1 with CSS pixels.
	PageWidth float64
	// Width and Height size a blank canvas when there is no background.
	// Zero fits the canvas around the marks.
	Width, Height int
}

const (
	margin     = 20
	markerSize = 6
)

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 160}
	pointColor   = color.RGBA{R: 0, G: 120, B: 255, A: 220}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
	canvasColor  = color.RGBA{R: 245, G: 245, B: 245, A: 255}
)

// Render draws every click in events.
func Render(events []model.Event, opts Options) (*image.RGBA, error) {
	marks := Marks(events)
	if len(marks) == 0 {
		return nil, ErrNoClicks
	}

	var rgba *image.RGBA
	scale := 1.0
	if opts.Background != nil {
		rgba = toRGBA(opts.Background)
		if opts.PageWidth > 0 {
			scale = float64(rgba.Bounds().Dx()) / opts.PageWidth
		}
	} else {
		w, h := opts.Width, opts.Height
		if w <= 0 || h <= 0 {
			fw, fh := extent(marks)
			if w <= 0 {
				w = fw
			}
			if h <= 0 {
				h = fh
			}
		}
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), image.NewUniform(canvasColor), image.Point{}, draw.Src)
	}

	for _, m := range marks {
		drawMark(rgba, m, scale)
	}
	return rgba, nil
}

// WritePNG renders events and encodes the result as PNG.
func WritePNG(w io.Writer, events []model.Event, opts Options) error {
	img, err := Render(events, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding click map: %w", err)
	}
	return nil
}

// extent returns a canvas size that holds every mark plus a margin.
func extent(marks []Mark) (int, int) {
	maxX, maxY := 0.0, 0.0
	for _, m := range marks {
		maxX, maxY = math.Max(maxX, m.X), math.Max(maxY, m.Y)
		if m.Box != nil {
			maxX, maxY = math.Max(maxX, m.Box.Right), math.Max(maxY, m.Box.Bottom)
		}
	}
	return int(math.Ceil(maxX)) + margin, int(math.Ceil(maxY)) + margin
}

func drawMark(img *image.RGBA, m Mark, scale float64) {
	label := fmt.Sprintf("%d", m.Sequence)
	if m.Box != nil {
		x1 := int(m.Box.Left * scale)
		y1 := int(m.Box.Top * scale)
		x2 := int(m.Box.Right * scale)
		y2 := int(m.Box.Bottom * scale)
		drawRectangle(img, x1, y1, x2, y2, boxColor)
		drawTextWithOutline(img, label, (x1+x2)/2, (y1+y2)/2, textColor, outlineColor)
		return
	}
	cx, cy := int(m.X*scale), int(m.Y*scale)
	fillRectangle(img, cx-markerSize/2, cy-markerSize/2, cx+markerSize/2, cy+markerSize/2, pointColor)
	drawTextWithOutline(img, label, cx, cy-markerSize-6, textColor, outlineColor)
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func clampRect(bounds image.Rectangle, x1, y1, x2, y2 int) (int, int, int, int, bool) {
	x1, y1 = max(x1, bounds.Min.X), max(y1, bounds.Min.Y)
	x2, y2 = min(x2, bounds.Max.X), min(y2, bounds.Max.Y)
	return x1, y1, x2, y2, x2 > x1 && y2 > y1
}

// drawRectangle draws a two-pixel outline.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	x1, y1, x2, y2, ok := clampRect(img.Bounds(), x1, y1, x2, y2)
	if !ok {
		return
	}
	for x := x1; x < x2; x++ {
		for _, y := range []int{y1, y1 + 1, y2 - 2, y2 - 1} {
			if y >= y1 && y < y2 {
				img.Set(x, y, c)
			}
		}
	}
	for y := y1; y < y2; y++ {
		for _, x := range []int{x1, x1 + 1, x2 - 2, x2 - 1} {
			if x >= x1 && x < x2 {
				img.Set(x, y, c)
			}
		}
	}
}

func fillRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	x1, y1, x2, y2, ok := clampRect(img.Bounds(), x1, y1, x2, y2)
	if !ok {
		return
	}
	draw.Draw(img, image.Rect(x1, y1, x2, y2), image.NewUniform(c), image.Point{}, draw.Over)
}

// drawTextWithOutline centres text on (x, y) using basicfont.Face7x13.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	offsetX := x - len(text)*7/2
	baseline := y + 13/2

	draw1 := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(offsetX+dx, baseline+dy),
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				draw1(dx, dy, outlineColor)
			}
		}
	}
	draw1(0, 0, textColor)
}
