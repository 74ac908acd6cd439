package export

import (
	"encoding/csv"
	"os"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// CSVSeparator separates fields in delimited-text artifacts.
const CSVSeparator = ';'

// CSVWriter writes semicolon-delimited text with a header row.
type CSVWriter struct{}

func (CSVWriter) Format() string { return FormatCSV }

func (CSVWriter) Dir() string { return "csv_data" }

func (CSVWriter) Write(path string, table telemetry.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = CSVSeparator
	if err := w.Write(table.Header()); err != nil {
		f.Close()
		return err
	}
	for i := 0; i < table.Len(); i++ {
		if err := w.Write(table.Strings(i)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
