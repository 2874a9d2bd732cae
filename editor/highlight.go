package editor

import (
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pager"
)

// Highlight wraps the selection on the current page in highlight markers so the
// operator can preview it before labelling. Nothing is committed until
// CommitHighlight.
func (s *Session) Highlight(sel Selection) (PendingHighlight, error) {
	if s.pending != nil {
		return PendingHighlight{}, ErrHighlightPending
	}
	text, err := s.validate(s.current, sel)
	if err != nil {
		return PendingHighlight{}, err
	}
	selected := pager.Slice(text, sel.Start, sel.End)
	wrapped := pager.Replace(text, sel.Start, sel.End, HighlightOpen+selected+HighlightClose)
	if err := s.book.SetPage(s.current, wrapped); err != nil {
		return PendingHighlight{}, err
	}
	s.pending = &highlight{
		PendingHighlight: PendingHighlight{Page: s.current, Selection: sel, Text: selected},
		original:         text,
	}
	return s.pending.PendingHighlight, nil
}

// CommitHighlight performs the same substitution as ConvertSelection on the
// highlighted span. On failure the highlight stays pending.
func (s *Session) CommitHighlight(req FieldRequest) (model.FieldDefinition, error) {
	if s.pending == nil {
		return model.FieldDefinition{}, ErrNoHighlight
	}
	h := s.pending
	wrapped, _ := s.book.Page(h.Page)
	if err := s.book.SetPage(h.Page, h.original); err != nil {
		return model.FieldDefinition{}, err
	}
	def, err := s.convert(h.Page, h.Selection, req)
	if err != nil {
		s.book.SetPage(h.Page, wrapped)
		return model.FieldDefinition{}, err
	}
	s.pending = nil
	return def, nil
}

// CancelHighlight restores the page exactly as it was before Highlight.
func (s *Session) CancelHighlight() error {
	if s.pending == nil {
		return ErrNoHighlight
	}
	if err := s.book.SetPage(s.pending.Page, s.pending.original); err != nil {
		return err
	}
	s.pending = nil
	return nil
}
