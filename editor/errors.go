package editor

import "fmt"

// Reasons a selection is rejected.
const (
	ReasonInvalidRange  = "invalid range"
	ReasonBeyondText    = "exceeds page text"
	ReasonCrossesPage   = "crosses a page boundary"
	ReasonOverlapsField = "overlaps a field token"
)

// SelectionOutOfBoundsError rejects a selection without mutating anything.
// Page is -1 when the range could not be placed on any page.
type SelectionOutOfBoundsError struct {
	Page       int
	Start      int
	End        int
	PageLength int
	Reason     string
}

func (e *SelectionOutOfBoundsError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("selection [%d,%d) %s", e.Start, e.End, e.Reason)
	}
	return fmt.Sprintf("selection [%d,%d) on page %d (length %d) %s", e.Start, e.End, e.Page, e.PageLength, e.Reason)
}
