package form

import "github.com/pkg/errors"

// Template is an editable PDF form: the source document plus the fields placed on it
type Template struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	PDFURL      string  `json:"pdfUrl"`
	PageCount   int     `json:"pageCount"`
	Dimensions  Size    `json:"dimensions"`
	Fields      []Field `json:"fields"`
	IsPublished bool    `json:"isPublished"`
}

// Validate checks every field and the uniqueness of field ids
func (t *Template) Validate() error {
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if f.ID == "" {
			return errors.Errorf("template %s: field without id", t.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return errors.Errorf("template %s: duplicate field id %s", t.ID, f.ID)
		}
		seen[f.ID] = struct{}{}
		if !f.Type.Valid() {
			return errors.Wrapf(ErrUnknownFieldType, "template %s: field %s has type %q", t.ID, f.ID, f.Type)
		}
		if err := Validate(f, t.PageCount); err != nil {
			return errors.Wrapf(err, "template %s", t.ID)
		}
	}
	return nil
}

// FieldsOnPage returns the fields placed on the given 1-based page, in template order
func (t *Template) FieldsOnPage(page int) []Field {
	return FilterPage(t.Fields, page)
}

// FilterPage returns the fields placed on page, preserving order
func FilterPage(fields []Field, page int) []Field {
	var out []Field
	for _, f := range fields {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}

// Duplicate copies the template under a new id and title. Field ids are always
// regenerated so the copy never shares field identity with its source.
func (t *Template) Duplicate(id, title string) *Template {
	dup := *t
	dup.ID = id
	dup.Title = title
	dup.IsPublished = false
	dup.Fields = make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		c := f.Clone()
		c.ID = NewID()
		dup.Fields[i] = c
	}
	return &dup
}
