package editor

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// PageBox places one rendered page in the viewport
type PageBox struct {
	Page   int        `json:"page"`
	Origin form.Point `json:"origin"` // viewport pixels of the page's top-left corner
	Size   form.Size  `json:"size"`   // page size in points
}

// ViewRect returns the page's area in viewport pixels at scale s
func (b PageBox) ViewRect(s float64) r2.Rect {
	return viewRect(b.Origin, form.Rect{Width: b.Size.Width, Height: b.Size.Height}, s)
}

// Layout reports where each page sits in the viewport at a given scale
type Layout interface {
	PageBoxes(scale float64) []PageBox
}

// StackedLayout stacks pages vertically, Gap pixels apart, starting at Origin
type StackedLayout struct {
	Sizes  []form.Size
	Gap    float64
	Origin form.Point
}

// PageBoxes implements Layout
func (l StackedLayout) PageBoxes(scale float64) []PageBox {
	boxes := make([]PageBox, len(l.Sizes))
	y := l.Origin.Y
	for i, size := range l.Sizes {
		boxes[i] = PageBox{Page: i + 1, Origin: form.Point{X: l.Origin.X, Y: y}, Size: size}
		y += form.ToView(size.Height, scale) + l.Gap
	}
	return boxes
}

// viewRect projects a model rect on a page with the given viewport origin
func viewRect(origin form.Point, r form.Rect, s float64) r2.Rect {
	v := r.ToView(s)
	x := origin.X + v.X
	y := origin.Y + v.Y
	return r2.Rect{
		X: r1.Interval{Lo: x, Hi: x + v.Width},
		Y: r1.Interval{Lo: y, Hi: y + v.Height},
	}
}

func toR2(p form.Point) r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}
