package pdfform

import (
	"bytes"
	"fmt"
)

// buildPDF assembles a classic-xref PDF from object bodies. objs[0] is object 1
// and must be the catalog.
func buildPDF(objs []string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

const (
	emptyContent = "<< /Length 3 >>\nstream\nq Q\nendstream"
	appearance   = "<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 3 >>\nstream\nq Q\nendstream"
)

// plainPDF is a one-page document without an interactive form.
func plainPDF() []byte {
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>",
		emptyContent,
	})
}

// emptyFormPDF has an AcroForm whose field list is empty.
func emptyFormPDF() []byte {
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>",
		emptyContent,
		"<< /Fields [] >>",
	})
}

// signerPDF has a text field signer_name and a checkbox agree.
func signerPDF() []byte {
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 6 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R /Annots [5 0 R 7 0 R] >>",
		emptyContent,
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (signer_name) /Rect [50 700 300 720] /P 3 0 R /F 4 /DA (/Helv 12 Tf 0 g) >>",
		"<< /Fields [5 0 R 7 0 R] /DA (/Helv 0 Tf 0 g) >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (agree) /Rect [50 650 70 670] /P 3 0 R /F 4 /V /Off /AS /Off /AP << /N << /Yes 8 0 R /Off 9 0 R >> >> >>",
		appearance,
		appearance,
	})
}

// richPDF covers nested names, choice, radio, read-only, pushbutton and a field
// without a type.
func richPDF() []byte {
	return buildPDF([]string{
		/* 1 */ "<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>",
		/* 2 */ "<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		/* 3 */ "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R /Annots [7 0 R 8 0 R 10 0 R 11 0 R 12 0 R 13 0 R 14 0 R] >>",
		/* 4 */ emptyContent,
		/* 5 */ "<< /Fields [6 0 R 8 0 R 9 0 R 12 0 R 13 0 R 14 0 R] /DA (/Helv 0 Tf 0 g) >>",
		/* 6 */ "<< /T (party) /Kids [7 0 R] >>",
		/* 7 */ "<< /Type /Annot /Subtype /Widget /FT /Tx /T (buyer) /Parent 6 0 R /Rect [50 700 300 720] /P 3 0 R >>",
		/* 8 */ "<< /Type /Annot /Subtype /Widget /FT /Ch /Ff 131072 /T (state) /Opt [(CA) (NY) [(TX) (Texas)]] /V (CA) /Rect [50 670 150 690] /P 3 0 R >>",
		/* 9 */ "<< /FT /Btn /Ff 49152 /T (plan) /V /Off /Kids [10 0 R 11 0 R] >>",
		/* 10 */ "<< /Type /Annot /Subtype /Widget /Parent 9 0 R /Rect [50 640 70 660] /P 3 0 R /AS /Off /AP << /N << /basic 15 0 R /Off 16 0 R >> >> >>",
		/* 11 */ "<< /Type /Annot /Subtype /Widget /Parent 9 0 R /Rect [80 640 100 660] /P 3 0 R /AS /Off /AP << /N << /pro 15 0 R /Off 16 0 R >> >> >>",
		/* 12 */ "<< /Type /Annot /Subtype /Widget /FT /Tx /Ff 1 /T (ref_no) /V (R-1) /Rect [50 610 150 630] /P 3 0 R >>",
		/* 13 */ "<< /Type /Annot /Subtype /Widget /FT /Btn /Ff 65536 /T (submit) /Rect [50 580 150 600] /P 3 0 R >>",
		/* 14 */ "<< /Type /Annot /Subtype /Widget /T (legacy) /Rect [50 550 150 570] /P 3 0 R >>",
		/* 15 */ appearance,
		/* 16 */ appearance,
	})
}
