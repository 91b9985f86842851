// Package form defines the form template coordinate model: typed fields placed at
// absolute PDF-point coordinates on the pages of a template, the scale transform that
// projects them into view space, and the submitted value model.
//
// Field coordinates use a top-left origin in the page's native point space. The PDF
// content space is bottom-left origin; the flip happens where content is drawn.
package form

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FieldType identifies what a field collects and how it is rendered and exported
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeMultiline FieldType = "multiline"
	FieldTypeNumber    FieldType = "number"
	FieldTypeDate      FieldType = "date"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeSignature FieldType = "signature"
	FieldTypeImage     FieldType = "image"
)

// DefaultFontSize applies to fields that carry no explicit font size
const DefaultFontSize = 12.0

// FieldTypes lists every supported field type in display order
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeMultiline,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeCheckbox,
	FieldTypeSignature,
	FieldTypeImage,
}

// Valid reports whether t is a known field type
func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTextLike reports whether values of this type are drawn as text
func (t FieldType) IsTextLike() bool {
	return t != FieldTypeCheckbox
}

// Size is a width/height pair in PDF points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var defaultSizes = map[FieldType]Size{
	FieldTypeText:      {Width: 200, Height: 30},
	FieldTypeMultiline: {Width: 250, Height: 90},
	FieldTypeNumber:    {Width: 100, Height: 30},
	FieldTypeDate:      {Width: 120, Height: 30},
	FieldTypeCheckbox:  {Width: 20, Height: 20},
	FieldTypeSignature: {Width: 200, Height: 60},
	FieldTypeImage:     {Width: 150, Height: 100},
}

// DefaultSize returns the size a newly created field of type t starts with
func DefaultSize(t FieldType) Size {
	if s, ok := defaultSizes[t]; ok {
		return s
	}
	return defaultSizes[FieldTypeText]
}

// Field is one placeable form element on a template
type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Page     int       `json:"page"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Label    string    `json:"label,omitempty"`
	Required bool      `json:"required,omitempty"`
	FontSize *float64  `json:"fontSize,omitempty"`
}

// NewID returns a fresh opaque field identifier
func NewID() string {
	return uuid.NewString()
}

// NewField creates a field of type t with the type's default size at (x, y) on page
func NewField(t FieldType, page int, x, y float64) Field {
	size := DefaultSize(t)
	return Field{
		ID:     NewID(),
		Type:   t,
		Page:   page,
		X:      x,
		Y:      y,
		Width:  size.Width,
		Height: size.Height,
	}
}

// EffectiveFontSize returns the field's font size or DefaultFontSize when unset
func (f Field) EffectiveFontSize() float64 {
	if f.FontSize == nil || *f.FontSize <= 0 {
		return DefaultFontSize
	}
	return *f.FontSize
}

// Rect returns the field's box in model space
func (f Field) Rect() Rect {
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// Clone returns a deep copy of the field
func (f Field) Clone() Field {
	c := f
	if f.FontSize != nil {
		size := *f.FontSize
		c.FontSize = &size
	}
	return c
}

// Validate checks a field against the page range of its template.
// It returns ErrFieldOutOfBounds or ErrInvalidDimensions wrapped with the field id.
func Validate(f Field, pageCount int) error {
	if f.Page < 1 || f.Page > pageCount {
		return errors.Wrapf(ErrFieldOutOfBounds, "field %s: page %d not in [1, %d]", f.ID, f.Page, pageCount)
	}
	if !positive(f.Width) || !positive(f.Height) {
		return errors.Wrapf(ErrInvalidDimensions, "field %s: size %gx%g", f.ID, f.Width, f.Height)
	}
	if math.IsNaN(f.X) || math.IsNaN(f.Y) || math.IsInf(f.X, 0) || math.IsInf(f.Y, 0) {
		return errors.Wrapf(ErrInvalidDimensions, "field %s: position (%g, %g)", f.ID, f.X, f.Y)
	}
	if f.FontSize != nil && !positive(*f.FontSize) {
		return errors.Wrapf(ErrInvalidDimensions, "field %s: font size %g", f.ID, *f.FontSize)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
