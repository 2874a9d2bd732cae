package pdfform

import (
	"context"

	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

// Introspector lists the fillable fields of a PDF.
type Introspector struct{}

func NewIntrospector() *Introspector { return &Introspector{} }

// Introspect returns the fields of the document's AcroForm in document order.
// A document without a form yields an empty list. data is never modified.
func (i *Introspector) Introspect(ctx context.Context, data []byte) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := openForm(ctx, data)
	if err != nil {
		return nil, err
	}
	fields := f.descriptors()
	logger.Debug(ctx, "pdf form introspected", "fields", len(fields), "has_acroform", f.acroForm != nil)
	return fields, nil
}
