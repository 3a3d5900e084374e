package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// Column widths in millimetres for a landscape A4 page with 10mm margins.
var pdfWidths = []float64{22, 32, 30, 35, 45, 25, 28, 40, 20}

const pdfRowHeight = 6

// WriteSalesPDF writes the listing rows as a printable table. The grand total
// counts active rows only. Long cells are clipped to their column.
func WriteSalesPDF(w io.Writer, rows []reporting.SaleRow) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		for i, h := range Headers {
			pdf.CellFormat(pdfWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(SheetName), "", 1, "L", false, 0, "")
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	for _, row := range rows {
		for i, v := range record(row) {
			align := "L"
			if i == amountColumn-1 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], pdfRowHeight, tr(clip(pdf, v, pdfWidths[i])), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 9)
	var before float64
	for _, width := range pdfWidths[:amountColumn-1] {
		before += width
	}
	pdf.CellFormat(before, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(pdfWidths[amountColumn-1], 7, activeTotal(rows).StringFixed(2), "1", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

// clip shortens s so it fits in width, marking the cut with "...".
func clip(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
