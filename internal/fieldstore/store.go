// Package fieldstore holds the authoritative, mutable set of fields of the template
// open in one editor, filler or reviewer session, together with the editor selection.
//
// A Store is owned by exactly one session and is not safe for concurrent use.
package fieldstore

import (
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
)

var (
	ErrDuplicateID    = errors.New("duplicate field id")
	ErrNotFound       = errors.New("field not found")
	ErrTemplateLocked = errors.New("template is published")
)

// LockPolicy decides what a published template allows
type LockPolicy int

const (
	// LockStrict rejects structural edits on a published template
	LockStrict LockPolicy = iota
	// LockAdvisory allows them and only logs a warning
	LockAdvisory
)

// ParseLockPolicy maps a configuration value to a LockPolicy
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch s {
	case "", "strict":
		return LockStrict, nil
	case "advisory":
		return LockAdvisory, nil
	}
	return LockStrict, errors.Errorf("unknown lock policy %q (must be strict or advisory)", s)
}

func (p LockPolicy) String() string {
	if p == LockAdvisory {
		return "advisory"
	}
	return "strict"
}

// FieldPatch is a partial field update; nil members are left unchanged
type FieldPatch struct {
	Type     *form.FieldType `json:"type,omitempty"`
	Page     *int            `json:"page,omitempty"`
	X        *float64        `json:"x,omitempty"`
	Y        *float64        `json:"y,omitempty"`
	Width    *float64        `json:"width,omitempty"`
	Height   *float64        `json:"height,omitempty"`
	Label    *string         `json:"label,omitempty"`
	Required *bool           `json:"required,omitempty"`
	FontSize *float64        `json:"fontSize,omitempty"`
}

// ApplyPatch merges p into f
func ApplyPatch(f *form.Field, p FieldPatch) {
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Page != nil {
		f.Page = *p.Page
	}
	if p.X != nil {
		f.X = *p.X
	}
	if p.Y != nil {
		f.Y = *p.Y
	}
	if p.Width != nil {
		f.Width = *p.Width
	}
	if p.Height != nil {
		f.Height = *p.Height
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.FontSize != nil {
		size := *p.FontSize
		f.FontSize = &size
	}
}

// Store is the in-memory field collection of one open template
type Store struct {
	meta     form.Template
	policy   LockPolicy
	order    []string
	fields   map[string]*form.Field
	selected map[string]struct{}
	dirty    bool
}

// New loads a template into a fresh store. Fields are copied; the template is not retained.
func New(tpl *form.Template, policy LockPolicy) (*Store, error) {
	s := &Store{
		meta:     *tpl,
		policy:   policy,
		fields:   make(map[string]*form.Field, len(tpl.Fields)),
		selected: make(map[string]struct{}),
	}
	s.meta.Fields = nil

	for _, f := range tpl.Fields {
		if _, dup := s.fields[f.ID]; dup {
			return nil, errors.Wrapf(ErrDuplicateID, "template %s: field %s", tpl.ID, f.ID)
		}
		c := f.Clone()
		s.fields[f.ID] = &c
		s.order = append(s.order, f.ID)
	}
	return s, nil
}

// guard enforces the publish lock for structural edits
func (s *Store) guard(op string) error {
	if !s.meta.IsPublished {
		return nil
	}
	if s.policy == LockAdvisory {
		log.WithFields(log.Fields{"template": s.meta.ID, "op": op}).Warn("editing a published template")
		return nil
	}
	return s.violation(op, "", errors.Wrapf(ErrTemplateLocked, "%s on template %s", op, s.meta.ID))
}

func (s *Store) violation(op, id string, err error) error {
	log.WithFields(log.Fields{"template": s.meta.ID, "op": op, "field": id}).Warn(err.Error())
	return err
}

// Add inserts a new field at the end of the collection
func (s *Store) Add(f form.Field) error {
	if err := s.guard("add"); err != nil {
		return err
	}
	if _, dup := s.fields[f.ID]; dup {
		return s.violation("add", f.ID, errors.Wrapf(ErrDuplicateID, "field %s", f.ID))
	}
	c := f.Clone()
	s.fields[f.ID] = &c
	s.order = append(s.order, f.ID)
	s.dirty = true
	return nil
}

// Update merges patch into the field with the given id. Geometry is not re-validated.
func (s *Store) Update(id string, patch FieldPatch) error {
	if err := s.guard("update"); err != nil {
		return err
	}
	f, ok := s.fields[id]
	if !ok {
		return s.violation("update", id, errors.Wrapf(ErrNotFound, "field %s", id))
	}
	ApplyPatch(f, patch)
	s.dirty = true
	return nil
}

// Remove deletes one field and drops it from the selection
func (s *Store) Remove(id string) error {
	if err := s.guard("remove"); err != nil {
		return err
	}
	if _, ok := s.fields[id]; !ok {
		return s.violation("remove", id, errors.Wrapf(ErrNotFound, "field %s", id))
	}
	s.delete(id)
	s.compact()
	return nil
}

// RemoveMany deletes every listed field that exists, pruning the selection in the
// same step. Unknown ids are skipped. It returns how many fields were removed.
func (s *Store) RemoveMany(ids []string) (int, error) {
	if err := s.guard("remove"); err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if _, ok := s.fields[id]; ok {
			s.delete(id)
			removed++
		}
	}
	if removed > 0 {
		s.compact()
	}
	return removed, nil
}

func (s *Store) delete(id string) {
	delete(s.fields, id)
	delete(s.selected, id)
	s.dirty = true
}

func (s *Store) compact() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.fields[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

// MoveMany translates every listed field by (dx, dy) in model space.
// Unknown ids are skipped. It returns how many fields moved.
func (s *Store) MoveMany(ids []string, dx, dy float64) (int, error) {
	if err := s.guard("move"); err != nil {
		return 0, err
	}
	moved := 0
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, again := seen[id]; again {
			continue
		}
		seen[id] = struct{}{}
		if f, ok := s.fields[id]; ok {
			f.X += dx
			f.Y += dy
			moved++
		}
	}
	if moved > 0 {
		s.dirty = true
	}
	return moved, nil
}

// SetTitle renames the template
func (s *Store) SetTitle(title string) {
	if s.meta.Title != title {
		s.meta.Title = title
		s.dirty = true
	}
}

// SetPublished changes the publish flag. Publishing is one-way under LockStrict.
func (s *Store) SetPublished(published bool) error {
	if s.meta.IsPublished && !published && s.policy == LockStrict {
		return s.violation("unpublish", "", errors.Wrapf(ErrTemplateLocked, "template %s cannot be unpublished", s.meta.ID))
	}
	if s.meta.IsPublished != published {
		s.meta.IsPublished = published
		s.dirty = true
	}
	return nil
}

func (s *Store) Title() string { return s.meta.Title }
func (s *Store) Published() bool { return s.meta.IsPublished }
func (s *Store) TemplateID() string { return s.meta.ID }
func (s *Store) PageCount() int { return s.meta.PageCount }
func (s *Store) Len() int { return len(s.order) }
func (s *Store) Dirty() bool { return s.dirty }
func (s *Store) MarkClean() { s.dirty = false }

// Get returns a copy of the field with the given id
func (s *Store) Get(id string) (form.Field, bool) {
	f, ok := s.fields[id]
	if !ok {
		return form.Field{}, false
	}
	return f.Clone(), true
}

// Fields returns copies of all fields in insertion order
func (s *Store) Fields() []form.Field {
	out := make([]form.Field, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.fields[id].Clone())
	}
	return out
}

// FieldsOnPage returns copies of the fields on the given page in insertion order
func (s *Store) FieldsOnPage(page int) []form.Field {
	var out []form.Field
	for _, id := range s.order {
		if f := s.fields[id]; f.Page == page {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Template returns the current state as a template value suitable for persisting
func (s *Store) Template() *form.Template {
	tpl := s.meta
	tpl.Fields = s.Fields()
	return &tpl
}
