package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// compressPDF is switched off in tests so rendered text can be inspected.
var compressPDF = true

const (
	pdfMargin     = 20.0
	pdfLineHeight = 6.0
	pdfFont       = "DejaVu"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	fontItalic []byte
)

// RenderPDF lays out tl on A4 pages using an embedded Unicode font, so any
// script in titles, descriptions and filenames survives. Text flows top to
// bottom with fixed spacing; page breaks are automatic.
func RenderPDF(tl *Timeline) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compressPDF)
	pdf.AddUTF8FontFromBytes(pdfFont, "", fontRegular)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", fontBold)
	pdf.AddUTF8FontFromBytes(pdfFont, "I", fontItalic)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(tl.Title, true)
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 20)
	pdf.MultiCell(0, 10, tl.Title, "", "L", false)
	pdf.Ln(6)

	for _, e := range tl.Entries {
		pdf.SetFont(pdfFont, "B", 14)
		pdf.MultiCell(0, 8, e.Title, "", "L", false)

		pdf.SetFont(pdfFont, "I", 10)
		pdf.CellFormat(0, pdfLineHeight, e.Date.Format(DateLayout), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont(pdfFont, "", 11)
		pdf.MultiCell(0, pdfLineHeight, strings.TrimSpace(e.Description), "", "L", false)

		if len(e.Attachments) > 0 {
			pdf.Ln(2)
			pdf.SetFont(pdfFont, "B", 11)
			pdf.CellFormat(0, pdfLineHeight, "Attachments:", "", 1, "L", false, 0, "")
			pdf.SetFont(pdfFont, "", 11)
			for _, a := range e.Attachments {
				pdf.SetX(pdfMargin + 5)
				pdf.MultiCell(0, pdfLineHeight, fmt.Sprintf("• %s (%s)", a.Filename, a.Type), "", "L", false)
			}
		}
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
