package editor

import (
	"strings"

	"github.com/jorellortega/covionpartners-sub001/fields"
	"github.com/jorellortega/covionpartners-sub001/model"
)

// UpdateField edits the label, type, required flag and position of a field.
// Attributes left nil in p are kept.
func (s *Session) UpdateField(id string, p fields.Patch) (model.FieldDefinition, error) {
	if s.pending != nil {
		return model.FieldDefinition{}, ErrHighlightPending
	}
	return s.store.Update(id, p)
}

// RemoveField drops the definition only. Its token stays in the text and renders
// as an orphaned placeholder.
func (s *Session) RemoveField(id string) (model.FieldDefinition, error) {
	if s.pending != nil {
		return model.FieldDefinition{}, ErrHighlightPending
	}
	return s.store.Remove(id)
}

// RevertField puts the field's original text back in place of its token and
// removes the definition. The page recorded on the field is searched first.
// A field whose token is no longer in the text is simply removed.
func (s *Session) RevertField(id string) (model.FieldDefinition, error) {
	if s.pending != nil {
		return model.FieldDefinition{}, ErrHighlightPending
	}
	def, ok := s.store.Get(id)
	if !ok {
		return s.store.Remove(id)
	}

	order := make([]int, 0, s.book.Len())
	if p := def.Position.Page; p >= 0 && p < s.book.Len() {
		order = append(order, p)
	}
	for i := 0; i < s.book.Len(); i++ {
		if i != def.Position.Page {
			order = append(order, i)
		}
	}
	for _, i := range order {
		text, _ := s.book.Page(i)
		if !strings.Contains(text, def.Placeholder) {
			continue
		}
		if err := s.book.SetPage(i, strings.Replace(text, def.Placeholder, def.PlaceholderText, 1)); err != nil {
			return model.FieldDefinition{}, err
		}
		break
	}
	return s.store.Remove(id)
}
