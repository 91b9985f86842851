// Package overlay positions form fields over a rendered page for the editor, filler
// and reviewer views, and rasterizes them onto a transparent layer.
//
// All geometry produced here is in page-local view space: pixels relative to the
// page's top-left corner at the requested scale. Nothing is rounded until Rasterize.
package overlay

import (
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// Mode selects what the overlay shows for each field
type Mode int

const (
	// ModeEdit shows field outlines and captions for the template editor
	ModeEdit Mode = iota
	// ModeFill shows editable inputs with the current values
	ModeFill
	// ModeReview shows read-only submitted values
	ModeReview
)

// ParseMode maps a mode name to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "edit", "":
		return ModeEdit, nil
	case "fill":
		return ModeFill, nil
	case "review":
		return ModeReview, nil
	}
	return ModeEdit, errors.Errorf("unknown overlay mode %q (must be edit, fill or review)", s)
}

func (m Mode) String() string {
	switch m {
	case ModeFill:
		return "fill"
	case ModeReview:
		return "review"
	default:
		return "edit"
	}
}

// Anchor is the vertical placement of text inside a field box
type Anchor int

const (
	AnchorMiddle Anchor = iota
	AnchorTop
)

func (a Anchor) String() string {
	if a == AnchorTop {
		return "top"
	}
	return "middle"
}

// Element is one positioned field in view space
type Element struct {
	FieldID string         `json:"fieldId"`
	Type    form.FieldType `json:"type"`
	Mode    Mode           `json:"-"`
	Box     form.Rect      `json:"box"`
	// Mark is the checkbox square, centered in Box with side min(width, height)
	Mark        *form.Rect `json:"mark,omitempty"`
	Anchor      Anchor     `json:"-"`
	FontSize    float64    `json:"fontSize"`
	Text        string     `json:"text,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
	Checked     bool       `json:"checked,omitempty"`
	Required    bool       `json:"required,omitempty"`
	Editable    bool       `json:"editable"`
	Selected    bool       `json:"selected,omitempty"`
}

// Compositor builds overlay elements. It holds no state between passes.
type Compositor struct {
	// IsSelected marks elements as selected in edit mode; nil selects nothing
	IsSelected func(id string) bool
}

// Compose positions every field on page at scale s. The result depends only on the
// arguments, so repeating a pass with unchanged inputs yields identical elements.
func (c Compositor) Compose(fields []form.Field, page int, s float64, values form.Values, mode Mode) []Element {
	onPage := form.FilterPage(fields, page)
	out := make([]Element, 0, len(onPage))
	for _, f := range onPage {
		out = append(out, c.element(f, s, values, mode))
	}
	return out
}

func (c Compositor) element(f form.Field, s float64, values form.Values, mode Mode) Element {
	el := Element{
		FieldID:  f.ID,
		Type:     f.Type,
		Mode:     mode,
		Box:      f.Rect().ToView(s),
		FontSize: form.ViewFontSize(f, s),
		Required: f.Required,
		Editable: mode == ModeFill,
	}
	if f.Type == form.FieldTypeMultiline {
		el.Anchor = AnchorTop
	}
	if f.Type == form.FieldTypeCheckbox {
		mark := CheckboxMark(el.Box)
		el.Mark = &mark
	}

	switch mode {
	case ModeEdit:
		el.Placeholder = caption(f)
		if c.IsSelected != nil {
			el.Selected = c.IsSelected(f.ID)
		}
	case ModeFill, ModeReview:
		el.Placeholder = f.Label
		if v, ok := values.Lookup(f); ok {
			if f.Type == form.FieldTypeCheckbox {
				el.Checked = v.Checked()
			} else if !v.IsEmpty() {
				el.Text = v.String()
			}
		}
		if mode == ModeReview {
			el.Placeholder = ""
		}
	}
	return el
}

// CheckboxMark returns the square of side min(width, height) centered in box
func CheckboxMark(box form.Rect) form.Rect {
	side := box.Width
	if box.Height < side {
		side = box.Height
	}
	return form.Rect{
		X:      box.X + (box.Width-side)/2,
		Y:      box.Y + (box.Height-side)/2,
		Width:  side,
		Height: side,
	}
}

func caption(f form.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return string(f.Type)
}
