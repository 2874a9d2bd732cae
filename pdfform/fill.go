package pdfform

import (
	"context"
	"encoding/hex"
	"slices"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

// fillOrder is the order in which widget kinds are offered a value. The first
// kind with a field of that name that accepts the value wins.
var fillOrder = []Kind{KindText, KindCheckbox, KindSelect, KindRadio}

// Filler writes values into a PDF's form fields.
type Filler struct{}

func NewFiller() *Filler { return &Filler{} }

// Fill applies values by fully qualified field name and serializes the result to
// a new buffer. Names that match no field are skipped and logged. data is never
// modified.
func (fl *Filler) Fill(ctx context.Context, data []byte, values model.Values) (*FillResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := openForm(ctx, data)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]*formField, len(f.fields))
	for _, ff := range f.fields {
		byName[ff.name] = append(byName[ff.name], ff)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &FillResult{Applied: []string{}}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reason := ReasonUnknownField
		applied := false
		for _, kind := range fillOrder {
			ff := findKind(byName[name], kind)
			if ff == nil {
				continue
			}
			if ff.readOnly() {
				reason = ReasonReadOnly
				continue
			}
			if why := f.apply(ff, values[name]); why != "" {
				reason = why
				continue
			}
			applied = true
			break
		}
		if applied {
			res.Applied = append(res.Applied, name)
			continue
		}
		res.Skipped = append(res.Skipped, SkippedField{Name: name, Reason: reason})
		logger.Info(ctx, "pdf field value skipped", "field", name, "reason", reason)
	}

	if len(res.Applied) > 0 && f.acroForm != nil {
		f.acroForm["NeedAppearances"] = types.Boolean(true)
	}

	out, err := f.write()
	if err != nil {
		return nil, err
	}
	res.PDF = out
	logger.Debug(ctx, "pdf form filled", "applied", len(res.Applied), "skipped", len(res.Skipped), "bytes", len(out))
	return res, nil
}

func findKind(fields []*formField, kind Kind) *formField {
	for _, ff := range fields {
		if ff.kind == kind {
			return ff
		}
	}
	return nil
}

// apply writes v into ff and returns a non-empty reason when the field refuses it.
func (f *form) apply(ff *formField, v model.FieldValue) string {
	switch ff.kind {
	case KindText:
		ff.dict["V"] = encodeText(v.String())
		dropAppearances(ff.widgets)

	case KindCheckbox:
		checked := v.Bool
		if v.Kind != model.ValueBool {
			checked = model.IsChecked(v.String())
		}
		state := "Off"
		if checked {
			state = f.checkboxOnState(ff)
		}
		ff.dict["V"] = types.Name(state)
		for _, w := range ff.widgets {
			w["AS"] = types.Name(state)
		}

	case KindSelect:
		s := v.String()
		if !ff.editable() && len(ff.options) > 0 && !slices.Contains(ff.options, s) {
			return ReasonInvalidOption
		}
		ff.dict["V"] = encodeText(s)
		dropAppearances(ff.widgets)

	case KindRadio:
		s := v.String()
		if s == "" || s == "Off" {
			s = "Off"
		} else if !slices.Contains(ff.options, s) {
			return ReasonInvalidOption
		}
		ff.dict["V"] = types.Name(s)
		for _, w := range ff.widgets {
			state := "Off"
			if slices.Contains(f.onStates(w), s) {
				state = s
			}
			w["AS"] = types.Name(state)
		}
	}
	return ""
}

// dropAppearances removes stale appearance streams so viewers regenerate them
// from the new value (NeedAppearances is set on the form).
func dropAppearances(widgets []types.Dict) {
	for _, w := range widgets {
		delete(w, "AP")
	}
}

// encodeText produces a PDF text string: a literal for printable ASCII, UTF-16BE
// with byte order mark otherwise.
func encodeText(s string) types.Object {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		return types.StringLiteral(r.Replace(s))
	}
	b := []byte{0xfe, 0xff}
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(b)))
}
