package form

// Scale transform between model space (PDF points) and view space (pixels).
// No rounding happens here; callers round once when rasterizing.

// ToView maps a model-space length or coordinate to view space at scale s
func ToView(points, s float64) float64 {
	return points * s
}

// ToModel maps a view-space length or coordinate back to model space at scale s
func ToModel(pixels, s float64) float64 {
	return pixels / s
}

// Point is an x/y pair in either model or view space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box with a top-left origin
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToView projects a model-space rect to view space
func (r Rect) ToView(s float64) Rect {
	return Rect{X: ToView(r.X, s), Y: ToView(r.Y, s), Width: ToView(r.Width, s), Height: ToView(r.Height, s)}
}

// ToModel maps a view-space rect back to model space
func (r Rect) ToModel(s float64) Rect {
	return Rect{X: ToModel(r.X, s), Y: ToModel(r.Y, s), Width: ToModel(r.Width, s), Height: ToModel(r.Height, s)}
}

// Contains reports whether p lies inside the rect, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ViewFontSize projects a field's effective font size to view space
func ViewFontSize(f Field, s float64) float64 {
	return ToView(f.EffectiveFontSize(), s)
}

// ScaleRange bounds the zoom factor of a view
type ScaleRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var (
	// EditScaleRange bounds zoom in the template editor
	EditScaleRange = ScaleRange{Min: 0.5, Max: 2.0}
	// FillScaleRange bounds zoom in the form filler and reviewer
	FillScaleRange = ScaleRange{Min: 0.4, Max: 2.5}
)

// Clamp limits s to the range. Non-positive or NaN input yields Min.
func (r ScaleRange) Clamp(s float64) float64 {
	if !(s > r.Min) {
		return r.Min
	}
	if s > r.Max {
		return r.Max
	}
	return s
}

// Valid reports whether the range is usable
func (r ScaleRange) Valid() bool {
	return r.Min > 0 && r.Max >= r.Min
}
