package export

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// PDFWriter renders a landscape listing of the table.
type PDFWriter struct{}

func (PDFWriter) Format() string { return FormatPDF }

func (PDFWriter) Dir() string { return "pdf_data" }

func (PDFWriter) Write(path string, table telemetry.Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Air Quality Telemetry")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", table.Len()))
	pdf.Ln(8)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(len(table.Columns), pageWidth-left-right)

	pdf.SetFont("Arial", "B", 7)
	for i, label := range table.Header() {
		pdf.CellFormat(widths[i], 6, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 7)
	for i := 0; i < table.Len(); i++ {
		for j, cell := range table.Strings(i) {
			align := "R"
			if j == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[j], 5, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.OutputFileAndClose(path)
}

// columnWidths gives the time column twice the width of the others.
func columnWidths(n int, total float64) []float64 {
	if n == 0 {
		return nil
	}
	unit := total / float64(n+1)
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = unit
	}
	widths[0] = unit * 2
	return widths
}
