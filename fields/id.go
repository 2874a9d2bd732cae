package fields

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// now is swapped in tests to force many ids into one millisecond.
var now = time.Now

// NewID returns a field id made of a millisecond timestamp and a random suffix.
// Ids only use characters accepted by the placeholder grammar.
func NewID() string {
	ts := strconv.FormatInt(now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return "fld_" + ts + "_" + suffix
}

// NextID returns a fresh id that is not used by any definition in the store.
func (s *Store) NextID() string {
	for {
		id := NewID()
		if !s.Has(id) {
			return id
		}
	}
}
