package fieldstore

// Select replaces the selection with the listed ids. Unknown ids are ignored so the
// selection only ever references fields that exist.
func (s *Store) Select(ids ...string) {
	s.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.fields[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

// SelectAll selects every field on every page
func (s *Store) SelectAll() {
	s.Select(s.order...)
}

// ClearSelection empties the selection
func (s *Store) ClearSelection() {
	s.selected = make(map[string]struct{})
}

// IsSelected reports whether id is part of the selection
func (s *Store) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectionLen returns the number of selected fields
func (s *Store) SelectionLen() int {
	return len(s.selected)
}

// SelectedIDs returns the selected ids in field order
func (s *Store) SelectedIDs() []string {
	out := make([]string, 0, len(s.selected))
	for _, id := range s.order {
		if _, ok := s.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
