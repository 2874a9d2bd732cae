// Package fields owns the field definitions attached to a contract version and
// the placeholder tokens that bind them into the body text.
package fields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jorellortega/covionpartners-sub001/model"
)

var (
	ErrFieldNotFound        = errors.New("field not found")
	ErrDuplicateField       = errors.New("field id already exists")
	ErrDuplicatePlaceholder = errors.New("placeholder token already in use")
	ErrInvalidField         = errors.New("invalid field definition")
)

// Store is an ordered collection of field definitions keyed by id.
// It never touches body text: removing a field may orphan its token.
type Store struct {
	order []string
	byID  map[string]model.FieldDefinition
}

// NewStore builds a store from persisted definitions, keeping their order.
func NewStore(defs []model.FieldDefinition) (*Store, error) {
	s := &Store{byID: make(map[string]model.FieldDefinition, len(defs))}
	for _, d := range defs {
		if err := s.Add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a definition. The placeholder defaults to the id's token.
func (s *Store) Add(def model.FieldDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidField)
	}
	if _, ok := s.byID[def.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateField, def.ID)
	}
	if !idRE.MatchString(def.ID) {
		return fmt.Errorf("%w: id %q is not token-safe", ErrInvalidField, def.ID)
	}
	if def.Placeholder == "" {
		def.Placeholder = model.PlaceholderToken(def.ID)
	}
	if def.Placeholder != model.PlaceholderToken(def.ID) {
		return fmt.Errorf("%w: placeholder %q does not match id", ErrInvalidField, def.Placeholder)
	}
	if def.Type == "" {
		def.Type = model.FieldTypeText
	}
	if !def.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidField, def.Type)
	}
	for _, id := range s.order {
		if s.byID[id].Placeholder == def.Placeholder {
			return fmt.Errorf("%w: %s", ErrDuplicatePlaceholder, def.Placeholder)
		}
	}
	s.order = append(s.order, def.ID)
	s.byID[def.ID] = def
	return nil
}

// Patch holds the editable attributes of a definition. Nil members keep the
// current value.
type Patch struct {
	Label    *string          `json:"label"`
	Type     *model.FieldType `json:"type"`
	Required *bool            `json:"required"`
	Position *model.Position  `json:"position"`
}

// Update applies p to a definition. Id, placeholder and placeholder_text are
// fixed at creation.
func (s *Store) Update(id string, p Patch) (model.FieldDefinition, error) {
	cur, ok := s.byID[id]
	if !ok {
		return model.FieldDefinition{}, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return model.FieldDefinition{}, fmt.Errorf("%w: unknown type %q", ErrInvalidField, *p.Type)
		}
		cur.Type = *p.Type
	}
	if p.Label != nil {
		label := strings.TrimSpace(*p.Label)
		if label == "" {
			return model.FieldDefinition{}, fmt.Errorf("%w: label is required", ErrInvalidField)
		}
		cur.Label = label
	}
	if p.Required != nil {
		cur.Required = *p.Required
	}
	if p.Position != nil {
		cur.Position = *p.Position
	}
	s.byID[id] = cur
	return cur, nil
}

// Remove deletes a definition. The token stays in the body.
func (s *Store) Remove(id string) (model.FieldDefinition, error) {
	def, ok := s.byID[id]
	if !ok {
		return model.FieldDefinition{}, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return def, nil
}

// Get returns the definition with the given id.
func (s *Store) Get(id string) (model.FieldDefinition, bool) {
	def, ok := s.byID[id]
	return def, ok
}

// Has reports whether id is in use.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of definitions.
func (s *Store) Len() int { return len(s.order) }

// List returns the definitions in insertion order.
func (s *Store) List() []model.FieldDefinition {
	out := make([]model.FieldDefinition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
