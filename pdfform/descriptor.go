// Package pdfform reads and fills the interactive form (AcroForm) of a PDF.
//
// Field kinds come from the field type (/FT) and field flags (/Ff). A field whose
// type cannot be established is reported as text; that fallback is logged.
package pdfform

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

// Kind is the semantic kind of a form field.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
)

// Descriptor describes one fillable field. Name is the fully qualified field name.
type Descriptor struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Value    string   `json:"value,omitempty"`
	Options  []string `json:"options,omitempty"`
	ReadOnly bool     `json:"read_only,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// DocumentParseError reports PDF bytes that could not be opened. Callers fall
// back to free-form key/value entry.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("parse pdf: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// Reasons a value was not written.
const (
	ReasonUnknownField  = "no field with this name"
	ReasonReadOnly      = "field is read-only"
	ReasonInvalidOption = "value is not one of the field options"
)

// SkippedField is a value the filler did not apply.
type SkippedField struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FillResult is the output of Filler.Fill. PDF is a new buffer.
type FillResult struct {
	PDF     []byte         `json:"-"`
	Applied []string       `json:"applied"`
	Skipped []SkippedField `json:"skipped,omitempty"`
}
