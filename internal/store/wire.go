// Package store is the persistence boundary for form templates and submissions.
//
// Documents cross the boundary in their wire shape, where a field's identifier is
// carried as "fieldId". ToWire and FromWire translate between the wire shape and
// the form model, and every decoded document is validated before it is used.
package store

import (
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// ErrInvalidDocument is returned when a document fails boundary validation
var ErrInvalidDocument = errors.New("invalid document")

// documentError marks a decode or validation failure as ErrInvalidDocument while
// keeping the underlying error in the chain
type documentError struct {
	err error
}

func invalidDocument(err error) error { return &documentError{err: err} }

func (e *documentError) Error() string { return ErrInvalidDocument.Error() + ": " + e.err.Error() }
func (e *documentError) Unwrap() error { return e.err }
func (e *documentError) Is(target error) bool { return target == ErrInvalidDocument }

// WireField is a field as the document store sees it
type WireField struct {
	FieldID  string   `json:"fieldId" validate:"required"`
	Type     string   `json:"type" validate:"required,fieldtype"`
	Page     int      `json:"page" validate:"min=1"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width" validate:"gt=0"`
	Height   float64  `json:"height" validate:"gt=0"`
	Label    string   `json:"label,omitempty"`
	Required bool     `json:"required,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty" validate:"omitempty,gt=0"`
}

// WireTemplate is the document returned when a template is loaded
type WireTemplate struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	PDFURL      string      `json:"pdfUrl" validate:"required"`
	PageCount   int         `json:"pageCount" validate:"min=1"`
	Dimensions  form.Size   `json:"dimensions"`
	Fields      []WireField `json:"fields" validate:"dive"`
	IsPublished bool        `json:"isPublished"`
}

// SaveRequest is the body of a template save
type SaveRequest struct {
	Title       string      `json:"title"`
	Fields      []WireField `json:"fields" validate:"dive"`
	IsPublished *bool       `json:"isPublished,omitempty"`
}

// FieldToWire renames id to fieldId
func FieldToWire(f form.Field) WireField {
	w := WireField{
		FieldID:  f.ID,
		Type:     string(f.Type),
		Page:     f.Page,
		X:        f.X,
		Y:        f.Y,
		Width:    f.Width,
		Height:   f.Height,
		Label:    f.Label,
		Required: f.Required,
	}
	if f.FontSize != nil {
		size := *f.FontSize
		w.FontSize = &size
	}
	return w
}

// FieldFromWire renames fieldId back to id
func FieldFromWire(w WireField) form.Field {
	f := form.Field{
		ID:       w.FieldID,
		Type:     form.FieldType(w.Type),
		Page:     w.Page,
		X:        w.X,
		Y:        w.Y,
		Width:    w.Width,
		Height:   w.Height,
		Label:    w.Label,
		Required: w.Required,
	}
	if w.FontSize != nil {
		size := *w.FontSize
		f.FontSize = &size
	}
	return f
}

func fieldsToWire(fields []form.Field) []WireField {
	out := make([]WireField, len(fields))
	for i, f := range fields {
		out[i] = FieldToWire(f)
	}
	return out
}

// ToWire converts a template into its stored document
func ToWire(t *form.Template) WireTemplate {
	return WireTemplate{
		ID:          t.ID,
		Title:       t.Title,
		PDFURL:      t.PDFURL,
		PageCount:   t.PageCount,
		Dimensions:  t.Dimensions,
		Fields:      fieldsToWire(t.Fields),
		IsPublished: t.IsPublished,
	}
}

// FromWire validates a stored document and converts it into a template with the
// given id. Fields are checked against the page count as well as the struct tags.
func FromWire(id string, w WireTemplate) (*form.Template, error) {
	if err := validateStruct(w); err != nil {
		return nil, err
	}
	t := &form.Template{
		ID:          id,
		Title:       w.Title,
		PDFURL:      w.PDFURL,
		PageCount:   w.PageCount,
		Dimensions:  w.Dimensions,
		Fields:      make([]form.Field, len(w.Fields)),
		IsPublished: w.IsPublished,
	}
	for i, wf := range w.Fields {
		t.Fields[i] = FieldFromWire(wf)
	}
	if err := t.Validate(); err != nil {
		return nil, invalidDocument(err)
	}
	return t, nil
}

// NewSaveRequest builds the save body for t. isPublished is always sent.
func NewSaveRequest(t *form.Template) SaveRequest {
	published := t.IsPublished
	return SaveRequest{
		Title:       t.Title,
		Fields:      fieldsToWire(t.Fields),
		IsPublished: &published,
	}
}

// Apply merges a save into a stored document. An absent isPublished keeps the
// stored flag.
func (r SaveRequest) Apply(w *WireTemplate) {
	w.Title = r.Title
	w.Fields = make([]WireField, len(r.Fields))
	copy(w.Fields, r.Fields)
	if r.IsPublished != nil {
		w.IsPublished = *r.IsPublished
	}
}
