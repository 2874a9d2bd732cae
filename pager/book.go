package pager

import "fmt"

// Book is the mutable page list of one editing view. Pages keep the lengths they
// are edited to; the body is always the in-order concatenation.
type Book struct {
	pages []string
}

// NewBook wraps an existing page list.
func NewBook(pages []string) *Book {
	if len(pages) == 0 {
		pages = []string{""}
	}
	cp := make([]string, len(pages))
	copy(cp, pages)
	return &Book{pages: cp}
}

// Len returns the number of pages.
func (b *Book) Len() int { return len(b.pages) }

// Page returns the text of page i.
func (b *Book) Page(i int) (string, error) {
	if i < 0 || i >= len(b.pages) {
		return "", fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(b.pages))
	}
	return b.pages[i], nil
}

// SetPage overwrites the text of page i.
func (b *Book) SetPage(i int, text string) error {
	if i < 0 || i >= len(b.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(b.pages))
	}
	b.pages[i] = text
	return nil
}

// AddPage appends an empty page and returns its index. It is a user action and is
// never the result of re-slicing.
func (b *Book) AddPage() int {
	b.pages = append(b.pages, "")
	return len(b.pages) - 1
}

// Pages returns a copy of the page list.
func (b *Book) Pages() []string {
	cp := make([]string, len(b.pages))
	copy(cp, b.pages)
	return cp
}

// Body reconstructs the whole document.
func (b *Book) Body() string { return Join(b.pages) }

// Start returns the document offset of the first character of page i.
func (b *Book) Start(i int) (int, error) {
	if i < 0 || i >= len(b.pages) {
		return 0, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(b.pages))
	}
	off := 0
	for _, p := range b.pages[:i] {
		off += Len(p)
	}
	return off, nil
}

// Locate maps a document offset to (page, offset within page). An offset equal to
// a page boundary belongs to the page that starts there; the end of the document
// belongs to the last page.
func (b *Book) Locate(docOffset int) (page, offset int, err error) {
	if docOffset < 0 {
		return 0, 0, fmt.Errorf("%w: negative offset %d", ErrPageOutOfRange, docOffset)
	}
	start := 0
	for i, p := range b.pages {
		n := Len(p)
		if docOffset < start+n || (i == len(b.pages)-1 && docOffset == start+n) {
			return i, docOffset - start, nil
		}
		start += n
	}
	return 0, 0, fmt.Errorf("%w: offset %d beyond document length %d", ErrPageOutOfRange, docOffset, start)
}
