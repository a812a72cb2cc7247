package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 15.0
	pdfBottom    = 20.0
	pdfRowHeight = 6.0
	pdfBarWidth  = 50.0
)

// WritePDF renders r as an A4 document: a title block, the key metrics,
// then one table per section with bars where the section carries values.
// Every page has a "Page n/N" footer with the generation timestamp.
func WritePDF(w io.Writer, r *Report) error {
	if r == nil {
		return fmt.Errorf("write pdf: nil report")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfBottom)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetTitle("Pulseboard Report", false)
	pdf.SetCreator("pulseboard", false)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	generated := r.GeneratedAt.Format(time.RFC1123)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "L", false, 0, "")
		pdf.SetX(pdfMargin)
		pdf.CellFormat(0, 10, tr("Generated "+generated), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	writeTitle(pdf, r, tr)
	writeKeyMetrics(pdf, KeyMetrics(r), tr)
	for _, s := range Tables(r) {
		writeSection(pdf, s, tr)
	}

	return pdf.Output(w)
}

func writeTitle(pdf *fpdf.Fpdf, r *Report, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 10, "Pulseboard Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	period := Label(string(r.Window))
	if r.Range != nil {
		period = fmt.Sprintf("%s to %s", r.Range.Start.Format(time.DateOnly), r.Range.End.Format(time.DateOnly))
	}
	pdf.CellFormat(0, 6, tr("Period: "+period), "", 1, "L", false, 0, "")
	if f := describeFilters(r.Filters); f != "" {
		pdf.CellFormat(0, 6, tr("Filters: "+f), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeKeyMetrics(pdf *fpdf.Fpdf, ms []Metric, tr func(string) string) {
	if len(ms) == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	cellW := (pageW - 2*pdfMargin) / float64(len(ms))

	pdf.SetFillColor(240, 243, 248)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetFont("Helvetica", "", 8)
	for _, m := range ms {
		pdf.CellFormat(cellW, 6, tr(m.Label), "LTR", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 12)
	for _, m := range ms {
		pdf.CellFormat(cellW, 9, tr(m.Value), "LBR", 0, "C", true, 0, "")
	}
	pdf.Ln(12)
}

func writeSection(pdf *fpdf.Fpdf, s Section, tr func(string) string) {
	pageW, pageH := pdf.GetPageSize()
	content := pageW - 2*pdfMargin
	tableW := content
	if len(s.Values) > 0 {
		tableW -= pdfBarWidth + 2
	}
	colW := tableW / float64(len(s.Columns))

	// Keep the title, the header and the first row together.
	if pdf.GetY()+8+3*pdfRowHeight > pageH-pdfBottom {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 8, tr(s.Title), "", 1, "L", false, 0, "")

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(225, 230, 238)
		for _, c := range s.Columns {
			pdf.CellFormat(colW, pdfRowHeight, tr(c), "B", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(s.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, pdfRowHeight, "No data", "", 1, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.Ln(4)
		return
	}

	maxValue := 0.0
	for _, v := range s.Values {
		if v > maxValue {
			maxValue = v
		}
	}

	for i, row := range s.Rows {
		if pdf.GetY()+pdfRowHeight > pageH-pdfBottom {
			pdf.AddPage()
			header()
		}
		for _, cell := range row {
			pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, cell, colW-2, tr)), "", 0, "L", false, 0, "")
		}
		if i < len(s.Values) && maxValue > 0 {
			x, y := pdf.GetX()+2, pdf.GetY()
			pdf.SetFillColor(70, 130, 180)
			if w := s.Values[i] / maxValue * pdfBarWidth; w > 0 {
				pdf.Rect(x, y+1, w, pdfRowHeight-2, "F")
			}
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// fit shortens s with an ellipsis until its rendered form fits in width.
func fit(pdf *fpdf.Fpdf, s string, width float64, tr func(string) string) string {
	if pdf.GetStringWidth(tr(s)) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
