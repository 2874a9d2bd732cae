package fields

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/jorellortega/covionpartners-sub001/model"
)

var (
	placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	idRE          = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// OrphanedPlaceholderWarning is reported, never returned as a failure, when a
// token has no definition or a definition has no token in the body.
type OrphanedPlaceholderWarning struct {
	FieldID string `json:"field_id"`
	Token   string `json:"token"`
	// MissingDefinition is true for a token whose definition was removed, false
	// for a definition whose token no longer appears in the body.
	MissingDefinition bool `json:"missing_definition"`
}

func (w OrphanedPlaceholderWarning) Error() string {
	if w.MissingDefinition {
		return fmt.Sprintf("placeholder %s has no field definition", w.Token)
	}
	return fmt.Sprintf("field %s is not referenced in the body", w.FieldID)
}

// SegmentKind distinguishes prose from fillable slots in a rendered body.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentField SegmentKind = "field"
)

// Segment is one run of a rendered body.
type Segment struct {
	Kind    SegmentKind            `json:"kind"`
	Text    string                 `json:"text"`
	FieldID string                 `json:"field_id,omitempty"`
	Field   *model.FieldDefinition `json:"field,omitempty"`
	Value   string                 `json:"value,omitempty"`
	Filled  bool                   `json:"filled"`
}

// Rendered is the result of resolving placeholders in a body.
type Rendered struct {
	Text            string                       `json:"text"`
	Segments        []Segment                    `json:"segments"`
	Warnings        []OrphanedPlaceholderWarning `json:"warnings,omitempty"`
	MissingRequired []string                     `json:"missing_required,omitempty"`
}

// TokenIDs returns the field ids referenced by tokens in body, in order of appearance.
func TokenIDs(body string) []string {
	matches := placeholderRE.FindAllStringSubmatch(body, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// TokenSpans returns the character ranges [start, end) of the tokens in text.
func TokenSpans(text string) [][2]int {
	locs := placeholderRE.FindAllStringIndex(text, -1)
	spans := make([][2]int, 0, len(locs))
	for _, loc := range locs {
		start := utf8.RuneCountInString(text[:loc[0]])
		spans = append(spans, [2]int{start, start + utf8.RuneCountInString(text[loc[0]:loc[1]])})
	}
	return spans
}

// Render resolves each token to its value. Tokens without a definition are kept
// verbatim and reported; defined fields without a value render as empty slots.
func Render(body string, defs []model.FieldDefinition, values map[string]string) Rendered {
	byID := make(map[string]model.FieldDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	var out Rendered
	orphanTokens := make(map[string]bool)
	last := 0
	text := make([]byte, 0, len(body))

	for _, loc := range placeholderRE.FindAllStringSubmatchIndex(body, -1) {
		if loc[0] > last {
			out.Segments = append(out.Segments, Segment{Kind: SegmentText, Text: body[last:loc[0]]})
			text = append(text, body[last:loc[0]]...)
		}
		token := body[loc[0]:loc[1]]
		id := body[loc[2]:loc[3]]
		last = loc[1]

		def, ok := byID[id]
		if !ok {
			out.Segments = append(out.Segments, Segment{Kind: SegmentText, Text: token})
			text = append(text, token...)
			if !orphanTokens[id] {
				orphanTokens[id] = true
				out.Warnings = append(out.Warnings, OrphanedPlaceholderWarning{FieldID: id, Token: token, MissingDefinition: true})
			}
			continue
		}

		d := def
		val, filled := values[id]
		out.Segments = append(out.Segments, Segment{
			Kind:    SegmentField,
			Text:    val,
			FieldID: id,
			Field:   &d,
			Value:   val,
			Filled:  filled && val != "",
		})
		text = append(text, val...)
	}
	if last < len(body) {
		out.Segments = append(out.Segments, Segment{Kind: SegmentText, Text: body[last:]})
		text = append(text, body[last:]...)
	}
	out.Text = string(text)

	for _, d := range OrphanedDefinitions(body, defs) {
		out.Warnings = append(out.Warnings, OrphanedPlaceholderWarning{FieldID: d.ID, Token: d.Placeholder})
	}
	for _, d := range defs {
		if d.Required && values[d.ID] == "" {
			out.MissingRequired = append(out.MissingRequired, d.ID)
		}
	}
	sort.Strings(out.MissingRequired)
	return out
}

// OrphanedDefinitions returns definitions whose token is absent from body.
func OrphanedDefinitions(body string, defs []model.FieldDefinition) []model.FieldDefinition {
	present := make(map[string]bool)
	for _, id := range TokenIDs(body) {
		present[id] = true
	}
	var out []model.FieldDefinition
	for _, d := range defs {
		if !present[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
