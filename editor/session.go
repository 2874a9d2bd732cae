// Package editor turns selected contract text into field definitions.
//
// A Session edits one contract one page at a time. Selections are expressed in
// characters of the current page; the whole-document body is always rebuilt by
// concatenating the pages.
package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jorellortega/covionpartners-sub001/fields"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pager"
)

// Highlight markers wrap a pending selection in the page text.
const (
	HighlightOpen  = "⟦"
	HighlightClose = "⟧"
)

var (
	ErrHighlightPending = errors.New("a highlight is pending; commit or cancel it first")
	ErrNoHighlight      = errors.New("no highlight is pending")
)

// Selection is a half-open character range [Start, End) within one page.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FieldRequest carries the operator's input for a new field.
type FieldRequest struct {
	Label    string          `json:"label"`
	Type     model.FieldType `json:"type"`
	Required bool            `json:"required"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

// Caret is the cursor position left by the last conversion.
type Caret struct {
	Page   int `json:"page"`
	Offset int `json:"offset"`
}

// PendingHighlight describes a selection that is wrapped but not yet committed.
type PendingHighlight struct {
	Page      int       `json:"page"`
	Selection Selection `json:"selection"`
	Text      string    `json:"text"`
}

type highlight struct {
	PendingHighlight
	original string
}

// Session is the editing state of one contract. It is not safe for concurrent
// use; callers serialize access per session.
type Session struct {
	pager   *pager.Pager
	book    *pager.Book
	store   *fields.Store
	current int
	caret   Caret
	pending *highlight
}

// NewSession paginates body with p and loads the existing definitions.
func NewSession(body string, defs []model.FieldDefinition, p *pager.Pager) (*Session, error) {
	if p == nil {
		return nil, fmt.Errorf("editor: nil pager")
	}
	store, err := fields.NewStore(defs)
	if err != nil {
		return nil, fmt.Errorf("load field definitions: %w", err)
	}
	return &Session{
		pager: p,
		book:  p.Paginate(body),
		store: store,
	}, nil
}

// PageSize returns the characters per page used to paginate the body.
func (s *Session) PageSize() int { return s.pager.Size() }

func (s *Session) PageCount() int { return s.book.Len() }

func (s *Session) Pages() []string { return s.book.Pages() }

func (s *Session) Page(i int) (string, error) { return s.book.Page(i) }

func (s *Session) CurrentPage() int { return s.current }

// PageStart returns the document offset of the first character of page i.
func (s *Session) PageStart(i int) (int, error) { return s.book.Start(i) }

// SetCurrentPage moves the editor to page i.
func (s *Session) SetCurrentPage(i int) error {
	if _, err := s.book.Page(i); err != nil {
		return err
	}
	if s.pending != nil && s.pending.Page != i {
		return ErrHighlightPending
	}
	s.current = i
	return nil
}

// AddPage appends an empty page and makes it current.
func (s *Session) AddPage() (int, error) {
	if s.pending != nil {
		return 0, ErrHighlightPending
	}
	s.current = s.book.AddPage()
	return s.current, nil
}

// EditPage replaces the free text of page i.
func (s *Session) EditPage(i int, text string) error {
	if s.pending != nil {
		return ErrHighlightPending
	}
	return s.book.SetPage(i, text)
}

// Body returns the whole document. A pending highlight is reported without its markers.
func (s *Session) Body() string {
	if s.pending == nil {
		return s.book.Body()
	}
	pages := s.book.Pages()
	pages[s.pending.Page] = s.pending.original
	return pager.Join(pages)
}

func (s *Session) Fields() []model.FieldDefinition { return s.store.List() }

func (s *Session) Caret() Caret { return s.caret }

// Pending returns the highlight awaiting commit, if any.
func (s *Session) Pending() (PendingHighlight, bool) {
	if s.pending == nil {
		return PendingHighlight{}, false
	}
	return s.pending.PendingHighlight, true
}

// ConvertSelection replaces the selection on the current page with a new field's
// placeholder token and leaves the caret after the token.
func (s *Session) ConvertSelection(sel Selection, req FieldRequest) (model.FieldDefinition, error) {
	if s.pending != nil {
		return model.FieldDefinition{}, ErrHighlightPending
	}
	return s.convert(s.current, sel, req)
}

// SelectDocumentRange maps a whole-document range onto the page that holds it
// and makes that page current. Ranges that cross a page boundary are rejected.
func (s *Session) SelectDocumentRange(start, end int) (Selection, error) {
	if start < 0 || end <= start {
		return Selection{}, &SelectionOutOfBoundsError{Page: -1, Start: start, End: end, Reason: ReasonInvalidRange}
	}
	page, off, err := s.book.Locate(start)
	if err != nil {
		return Selection{}, &SelectionOutOfBoundsError{Page: -1, Start: start, End: end, Reason: ReasonBeyondText}
	}
	text, _ := s.book.Page(page)
	n := pager.Len(text)
	sel := Selection{Start: off, End: off + (end - start)}
	if sel.End > n {
		reason := ReasonCrossesPage
		if page == s.book.Len()-1 {
			reason = ReasonBeyondText
		}
		return Selection{}, &SelectionOutOfBoundsError{Page: page, Start: start, End: end, PageLength: n, Reason: reason}
	}
	if err := s.SetCurrentPage(page); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func (s *Session) validate(page int, sel Selection) (string, error) {
	text, err := s.book.Page(page)
	if err != nil {
		return "", err
	}
	n := pager.Len(text)
	switch {
	case sel.Start < 0 || sel.End <= sel.Start:
		return "", &SelectionOutOfBoundsError{Page: page, Start: sel.Start, End: sel.End, PageLength: n, Reason: ReasonInvalidRange}
	case sel.End > n:
		return "", &SelectionOutOfBoundsError{Page: page, Start: sel.Start, End: sel.End, PageLength: n, Reason: ReasonBeyondText}
	}
	// Existing tokens are never cut or swallowed by a new field.
	for _, span := range fields.TokenSpans(text) {
		if sel.Start < span[1] && sel.End > span[0] {
			return "", &SelectionOutOfBoundsError{Page: page, Start: sel.Start, End: sel.End, PageLength: n, Reason: ReasonOverlapsField}
		}
	}
	return text, nil
}

func (s *Session) convert(page int, sel Selection, req FieldRequest) (model.FieldDefinition, error) {
	text, err := s.validate(page, sel)
	if err != nil {
		return model.FieldDefinition{}, err
	}
	if strings.TrimSpace(req.Label) == "" {
		return model.FieldDefinition{}, fmt.Errorf("%w: label is required", fields.ErrInvalidField)
	}

	id := s.store.NextID()
	def := model.FieldDefinition{
		ID:              id,
		Type:            req.Type,
		Label:           strings.TrimSpace(req.Label),
		Placeholder:     model.PlaceholderToken(id),
		Required:        req.Required,
		Position:        model.Position{Page: page, X: req.X, Y: req.Y},
		PlaceholderText: pager.Slice(text, sel.Start, sel.End),
	}
	if err := s.store.Add(def); err != nil {
		return model.FieldDefinition{}, err
	}
	def, _ = s.store.Get(id)

	if err := s.book.SetPage(page, pager.Replace(text, sel.Start, sel.End, def.Placeholder)); err != nil {
		s.store.Remove(id)
		return model.FieldDefinition{}, err
	}
	s.caret = Caret{Page: page, Offset: sel.Start + pager.Len(def.Placeholder)}
	return def, nil
}
