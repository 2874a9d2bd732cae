// Package pager splits contract bodies into fixed-size pages and joins them back.
//
// Page size is measured in characters (Unicode code points). Every consumer that
// computes offsets into a page (read view, edit view, selection conversion) must
// use the same Pager, otherwise page boundaries disagree between views.
package pager

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultPageSize is the page size used when configuration does not set one.
const DefaultPageSize = 1500

var (
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrPageOutOfRange  = errors.New("page index out of range")
)

// Pager slices bodies into pages of a fixed size.
type Pager struct {
	size int
}

// New returns a Pager for the given page size.
func New(size int) (*Pager, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	return &Pager{size: size}, nil
}

// Size returns the page size in characters.
func (p *Pager) Size() int { return p.size }

// Split returns ceil(len/size) contiguous pages. An empty body yields one empty page.
func (p *Pager) Split(body string) []string {
	return split(body, p.size)
}

// Paginate returns an editable page list for body.
func (p *Pager) Paginate(body string) *Book {
	return &Book{pages: p.Split(body)}
}

// Split is the functional form of Pager.Split.
func Split(body string, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	return split(body, size), nil
}

func split(body string, size int) []string {
	if body == "" {
		return []string{""}
	}
	pages := make([]string, 0, utf8.RuneCountInString(body)/size+1)
	start, count := 0, 0
	for i := range body {
		if count == size {
			pages = append(pages, body[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(pages, body[start:])
}

// Join concatenates pages in order without separators.
func Join(pages []string) string {
	return strings.Join(pages, "")
}

// Len returns the character length of s as used for page and selection offsets.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Slice returns the characters [start, end) of s. Callers validate bounds.
func Slice(s string, start, end int) string {
	return s[byteOffset(s, start):byteOffset(s, end)]
}

// Replace returns s with characters [start, end) replaced by repl.
func Replace(s string, start, end int, repl string) string {
	bs, be := byteOffset(s, start), byteOffset(s, end)
	return s[:bs] + repl + s[be:]
}

func byteOffset(s string, chars int) int {
	if chars <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == chars {
			return i
		}
		n++
	}
	return len(s)
}
