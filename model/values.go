package model

import (
	"strings"
	"time"
)

// ValueKind tags a FieldValue.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueBool
	ValueDate
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "bool"
	case ValueDate:
		return "date"
	default:
		return "text"
	}
}

// DateLayout is the storage encoding of date values.
const DateLayout = "2006-01-02"

// FieldValue is a tagged field value. Values travel as plain strings only at the
// storage boundary (see Values.Encode and DecodeValues).
type FieldValue struct {
	Kind ValueKind
	Text string
	Bool bool
	Date time.Time
}

func TextValue(s string) FieldValue    { return FieldValue{Kind: ValueText, Text: s} }
func BoolValue(b bool) FieldValue      { return FieldValue{Kind: ValueBool, Bool: b} }
func DateValue(t time.Time) FieldValue { return FieldValue{Kind: ValueDate, Date: t} }

// String returns the storage encoding of the value.
func (v FieldValue) String() string {
	switch v.Kind {
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueDate:
		return v.Date.Format(DateLayout)
	default:
		return v.Text
	}
}

// Values maps a field id (or native PDF field name) to its typed value.
type Values map[string]FieldValue

// Encode converts typed values to the open string map that is persisted.
func (v Values) Encode() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = val.String()
	}
	return out
}

// DecodeValues converts the persisted open map into typed values. Keys without a
// hint, and dates that do not parse, stay Text.
func DecodeValues(raw map[string]string, hints map[string]ValueKind) Values {
	out := make(Values, len(raw))
	for k, s := range raw {
		switch hints[k] {
		case ValueBool:
			out[k] = BoolValue(IsChecked(s))
		case ValueDate:
			if t, ok := ParseDate(s); ok {
				out[k] = DateValue(t)
			} else {
				out[k] = TextValue(s)
			}
		default:
			out[k] = TextValue(s)
		}
	}
	return out
}

// HintsFromFields derives value kinds from field definitions.
func HintsFromFields(defs []FieldDefinition) map[string]ValueKind {
	hints := make(map[string]ValueKind, len(defs))
	for _, d := range defs {
		if d.Type == FieldTypeDate {
			hints[d.ID] = ValueDate
		} else {
			hints[d.ID] = ValueText
		}
	}
	return hints
}

// MergeValues returns a copy of current with updates applied on top.
// Keys absent from updates are kept.
func MergeValues(current, updates map[string]string) map[string]string {
	out := make(map[string]string, len(current)+len(updates))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// IsChecked interprets the checkbox encodings "checked" and "true".
func IsChecked(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "checked") || strings.EqualFold(s, "true")
}

// ParseDate accepts DateLayout and RFC 3339.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
