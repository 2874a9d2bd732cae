package model

// FieldType is the semantic type of a templated field.
type FieldType string

const (
	FieldTypeName      FieldType = "name"
	FieldTypeSignature FieldType = "signature"
	FieldTypeDate      FieldType = "date"
	FieldTypeEmail     FieldType = "email"
	FieldTypeText      FieldType = "text"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeName, FieldTypeSignature, FieldTypeDate, FieldTypeEmail, FieldTypeText:
		return true
	}
	return false
}

// Position is the logical placement of a field. Page groups fields for display
// and is not a rendering coordinate guarantee.
type Position struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FieldDefinition is a fillable slot embedded in contract prose as a placeholder token.
type FieldDefinition struct {
	ID              string    `json:"id"`
	Type            FieldType `json:"type"`
	Label           string    `json:"label"`
	Placeholder     string    `json:"placeholder"`
	Required        bool      `json:"required"`
	Position        Position  `json:"position"`
	PlaceholderText string    `json:"placeholder_text"`
}

// PlaceholderToken returns the literal body marker for a field id.
func PlaceholderToken(id string) string {
	return "{{" + id + "}}"
}
