package pdfform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

// Field flags (PDF 32000-1, 12.7.3.1, 12.7.4.2, 12.7.4.4). Bit n is 1<<(n-1).
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
	flagEdit       = 1 << 18
)

const maxFieldDepth = 32

// formField is a terminal field together with its widget annotations. For a
// field merged with its single widget, dict is also the only widget.
type formField struct {
	name    string
	kind    Kind
	flags   int
	dict    types.Dict
	widgets []types.Dict
	options []string
}

func (f *formField) readOnly() bool { return f.flags&flagReadOnly != 0 }
func (f *formField) editable() bool { return f.flags&flagEdit != 0 }

// form is an opened document and its terminal fields in document order.
type form struct {
	pc       *model.Context
	acroForm types.Dict
	fields   []*formField
}

func openForm(ctx context.Context, data []byte) (f *form, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, &DocumentParseError{Err: fmt.Errorf("pdfcpu panic: %v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &DocumentParseError{Err: errors.New("empty document")}
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pc, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	if err := pc.EnsurePageCount(); err != nil {
		return nil, &DocumentParseError{Err: err}
	}

	root, err := pc.Catalog()
	if err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	f = &form{pc: pc}

	obj, found := root.Find("AcroForm")
	if !found {
		return f, nil
	}
	af, err := pc.DereferenceDict(obj)
	if err != nil {
		return nil, &DocumentParseError{Err: fmt.Errorf("acroform: %w", err)}
	}
	if af == nil {
		return f, nil
	}
	f.acroForm = af

	fieldsObj, found := af.Find("Fields")
	if !found {
		return f, nil
	}
	arr, err := pc.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, &DocumentParseError{Err: fmt.Errorf("acroform fields: %w", err)}
	}
	for _, o := range arr {
		f.walk(ctx, o, "", "", 0, 0)
	}
	return f, nil
}

// walk descends the field tree, inheriting /FT and /Ff from ancestors.
func (f *form) walk(ctx context.Context, o types.Object, parent, ft string, flags, depth int) {
	if depth > maxFieldDepth {
		logger.Warn(ctx, "pdf field tree too deep, truncating", "parent", parent)
		return
	}
	d, err := f.pc.DereferenceDict(o)
	if err != nil || d == nil {
		logger.Debug(ctx, "skipping unreadable pdf field", "parent", parent, "error", err)
		return
	}

	name := parent
	if t, found := d.Find("T"); found {
		if partial, err := f.pc.DereferenceStringOrHexLiteral(t, model.V10, nil); err == nil && partial != "" {
			if name == "" {
				name = partial
			} else {
				name = parent + "." + partial
			}
		}
	}
	if o, found := d.Find("FT"); found {
		if n, err := f.pc.DereferenceName(o, model.V10, nil); err == nil {
			ft = n.Value()
		}
	}
	if o, found := d.Find("Ff"); found {
		if i, err := f.pc.DereferenceInteger(o); err == nil && i != nil {
			flags = i.Value()
		}
	}

	var children, widgets []types.Dict
	var childObjs []types.Object
	if kidsObj, found := d.Find("Kids"); found {
		kids, err := f.pc.DereferenceArray(kidsObj)
		if err == nil {
			for _, k := range kids {
				kd, err := f.pc.DereferenceDict(k)
				if err != nil || kd == nil {
					continue
				}
				if _, named := kd.Find("T"); named {
					children = append(children, kd)
					childObjs = append(childObjs, k)
				} else {
					widgets = append(widgets, kd)
				}
			}
		}
	}
	if len(children) > 0 {
		for _, k := range childObjs {
			f.walk(ctx, k, name, ft, flags, depth+1)
		}
		return
	}
	if len(widgets) == 0 {
		widgets = []types.Dict{d}
	}

	if name == "" {
		logger.Debug(ctx, "skipping unnamed pdf field")
		return
	}
	kind, ok := classify(ctx, name, ft, flags)
	if !ok {
		return
	}
	ff := &formField{name: name, kind: kind, flags: flags, dict: d, widgets: widgets}
	switch kind {
	case KindSelect:
		ff.options = f.choiceOptions(d)
	case KindRadio:
		ff.options = f.radioStates(widgets)
	}
	f.fields = append(f.fields, ff)
}

// classify maps /FT and /Ff onto a Kind. Pushbuttons and signature fields carry
// no fillable value and are left out.
func classify(ctx context.Context, name, ft string, flags int) (Kind, bool) {
	switch ft {
	case "Tx":
		return KindText, true
	case "Ch":
		return KindSelect, true
	case "Btn":
		switch {
		case flags&flagPushbutton != 0:
			logger.Debug(ctx, "skipping pushbutton field", "field", name)
			return "", false
		case flags&flagRadio != 0:
			return KindRadio, true
		default:
			return KindCheckbox, true
		}
	case "Sig":
		logger.Debug(ctx, "skipping signature field", "field", name)
		return "", false
	default:
		logger.Warn(ctx, "pdf field type not recognized, treating as text", "field", name, "ft", ft)
		return KindText, true
	}
}

// choiceOptions returns the export values of a choice field.
func (f *form) choiceOptions(d types.Dict) []string {
	o, found := d.Find("Opt")
	if !found {
		return nil
	}
	arr, err := f.pc.DereferenceArray(o)
	if err != nil {
		return nil
	}
	var opts []string
	for _, item := range arr {
		if s, err := f.pc.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
			opts = append(opts, s)
			continue
		}
		if pair, err := f.pc.DereferenceArray(item); err == nil && len(pair) > 0 {
			if s, err := f.pc.DereferenceStringOrHexLiteral(pair[0], model.V10, nil); err == nil {
				opts = append(opts, s)
			}
		}
	}
	return opts
}

// onStates returns the appearance state names of a widget other than Off.
func (f *form) onStates(w types.Dict) []string {
	apObj, found := w.Find("AP")
	if !found {
		return nil
	}
	ap, err := f.pc.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return nil
	}
	nObj, found := ap.Find("N")
	if !found {
		return nil
	}
	n, err := f.pc.DereferenceDict(nObj)
	if err != nil || n == nil {
		return nil
	}
	var states []string
	for k := range n {
		if k != "Off" {
			states = append(states, k)
		}
	}
	sort.Strings(states)
	return states
}

func (f *form) radioStates(widgets []types.Dict) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range widgets {
		for _, s := range f.onStates(w) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// checkboxOnState is the name written to /V and /AS when a checkbox is ticked.
func (f *form) checkboxOnState(ff *formField) string {
	for _, w := range ff.widgets {
		if states := f.onStates(w); len(states) > 0 {
			return states[0]
		}
	}
	return "Yes"
}

func (f *form) nameValue(d types.Dict, key string) (string, bool) {
	o, found := d.Find(key)
	if !found {
		return "", false
	}
	n, err := f.pc.DereferenceName(o, model.V10, nil)
	if err != nil {
		return "", false
	}
	return n.Value(), true
}

func (f *form) stringValue(d types.Dict) string {
	o, found := d.Find("V")
	if !found {
		return ""
	}
	if s, err := f.pc.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
		return s
	}
	if arr, err := f.pc.DereferenceArray(o); err == nil && len(arr) > 0 {
		if s, err := f.pc.DereferenceStringOrHexLiteral(arr[0], model.V10, nil); err == nil {
			return s
		}
	}
	return ""
}

// currentValue reads /V in the same encoding the filler accepts.
func (f *form) currentValue(ff *formField) string {
	switch ff.kind {
	case KindCheckbox:
		v, ok := f.nameValue(ff.dict, "V")
		if !ok && len(ff.widgets) > 0 {
			v, ok = f.nameValue(ff.widgets[0], "AS")
		}
		if ok && v != "" && v != "Off" {
			return "checked"
		}
		return ""
	case KindRadio:
		if v, ok := f.nameValue(ff.dict, "V"); ok && v != "Off" {
			return v
		}
		return ""
	default:
		return f.stringValue(ff.dict)
	}
}

func (f *form) descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(f.fields))
	for _, ff := range f.fields {
		out = append(out, Descriptor{
			Name:     ff.name,
			Kind:     ff.kind,
			Value:    f.currentValue(ff),
			Options:  ff.options,
			ReadOnly: ff.readOnly(),
			Required: ff.flags&flagRequired != 0,
		})
	}
	return out
}

func (f *form) write() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(f.pc, &buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
