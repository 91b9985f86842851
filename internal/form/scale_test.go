package form

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleTransform_Invertible(t *testing.T) {
	points := []float64{0, 1, 12.5, 100, 612, 791.999, -40}
	scales := []float64{0.4, 0.5, 0.75, 1, 1.333, 2, 2.5}

	for _, s := range scales {
		for _, p := range points {
			got := ToModel(ToView(p, s), s)
			assert.InDelta(t, p, got, 1e-9, "point %v at scale %v", p, s)
		}
	}
}

func TestRect_ToViewAndBack(t *testing.T) {
	r := Rect{X: 72, Y: 144, Width: 200, Height: 30}

	view := r.ToView(1.5)
	assert.Equal(t, Rect{X: 108, Y: 216, Width: 300, Height: 45}, view)

	back := view.ToModel(1.5)
	assert.InDelta(t, r.X, back.X, 1e-9)
	assert.InDelta(t, r.Y, back.Y, 1e-9)
	assert.InDelta(t, r.Width, back.Width, 1e-9)
	assert.InDelta(t, r.Height, back.Height, 1e-9)
}

func TestViewFontSize(t *testing.T) {
	size := 10.0
	assert.Equal(t, 24.0, ViewFontSize(Field{}, 2))
	assert.Equal(t, 5.0, ViewFontSize(Field{FontSize: &size}, 0.5))
}

func TestScaleRange_Clamp(t *testing.T) {
	tests := []struct {
		name  string
		rng   ScaleRange
		input float64
		want  float64
	}{
		{"edit within", EditScaleRange, 1.25, 1.25},
		{"edit below", EditScaleRange, 0.1, 0.5},
		{"edit above", EditScaleRange, 3, 2},
		{"fill below", FillScaleRange, 0.2, 0.4},
		{"fill above", FillScaleRange, 9, 2.5},
		{"zero", FillScaleRange, 0, 0.4},
		{"negative", EditScaleRange, -1, 0.5},
		{"nan", EditScaleRange, math.NaN(), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rng.Clamp(tt.input))
		})
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 10}
	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point{X: 30, Y: 20}))
	assert.False(t, r.Contains(Point{X: 31, Y: 15}))
}
