package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	telemetry "atmotube-export/internal/telemetry/domain"
)

const (
	// SheetName is the only sheet of a spreadsheet artifact.
	SheetName = "Sheet1"
	// DateCellFormat is applied to the data cells of the first column.
	DateCellFormat = "yyyy-mm-dd hh:mm"
)

// XLSXWriter writes a single-sheet spreadsheet.
type XLSXWriter struct{}

func (XLSXWriter) Format() string { return FormatXLSX }

func (XLSXWriter) Dir() string { return "excel_data" }

func (XLSXWriter) Write(path string, table telemetry.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, 0, len(table.Columns))
	for _, label := range table.Header() {
		header = append(header, label)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := table.Values(i)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}

	if table.Len() > 0 {
		numFmt := DateCellFormat
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("A%d", table.Len()+1), style); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
