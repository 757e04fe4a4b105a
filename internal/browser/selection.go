package browser

// SelectionModel holds at most one selected entry and the session mode.
// It is not safe for concurrent use; BrowserSession guards it.
type SelectionModel struct {
	selectFolder bool
	selected     *Entry
}

// NewSelectionModel creates an empty selection. selectFolder fixes which kind
// of entry Resolve accepts.
func NewSelectionModel(selectFolder bool) *SelectionModel {
	return &SelectionModel{selectFolder: selectFolder}
}

// SelectFolder reports whether a directory (true) or a file (false) is required.
func (s *SelectionModel) SelectFolder() bool {
	return s.selectFolder
}

// Select replaces any previous selection with e.
func (s *SelectionModel) Select(e Entry) {
	s.selected = &e
}

// Deselect clears the selection.
func (s *SelectionModel) Deselect() {
	s.selected = nil
}

// Toggle deselects e if it is the current selection, otherwise selects it.
// It returns whether e is selected afterwards.
func (s *SelectionModel) Toggle(e Entry) bool {
	if s.selected != nil && s.selected.Same(e) {
		s.selected = nil
		return false
	}
	s.Select(e)
	return true
}

// Current returns the selected entry.
func (s *SelectionModel) Current() (Entry, bool) {
	if s.selected == nil {
		return Entry{}, false
	}
	return *s.selected, true
}

// Reconcile drops the selection when it is not part of l.
func (s *SelectionModel) Reconcile(l *Listing) {
	if s.selected != nil && !l.Contains(*s.selected) {
		s.selected = nil
	}
}

// Resolve returns the selected path without its trailing "/", or the error
// explaining why the selection cannot be used.
func (s *SelectionModel) Resolve() (string, error) {
	if s.selected == nil {
		return "", &NoSelectionError{SelectFolder: s.selectFolder}
	}
	if s.selected.IsDir() != s.selectFolder {
		return "", &WrongKindError{SelectFolder: s.selectFolder}
	}
	return StripTrailingSlash(s.selected.Path), nil
}
