package export

import (
	"errors"
	"fmt"
	"strings"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// Supported artifact formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// DefaultFormats are written when no formats are configured.
var DefaultFormats = []string{FormatXLSX, FormatCSV}

var errUnknownFormat = errors.New("export: unknown format")

// Writer renders a table into one artifact file.
type Writer interface {
	// Format is the artifact format name, also used as file extension.
	Format() string
	// Dir is the top-level directory artifacts of this format live under.
	Dir() string
	Write(path string, table telemetry.Table) error
}

// WritersFor builds writers for the given format names.
func WritersFor(formats []string) ([]Writer, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	seen := make(map[string]bool, len(formats))
	writers := make([]Writer, 0, len(formats))
	for _, raw := range formats {
		format := strings.ToLower(strings.TrimSpace(raw))
		if format == "" || seen[format] {
			continue
		}
		seen[format] = true
		switch format {
		case FormatXLSX:
			writers = append(writers, XLSXWriter{})
		case FormatCSV:
			writers = append(writers, CSVWriter{})
		case FormatPDF:
			writers = append(writers, PDFWriter{})
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownFormat, raw)
		}
	}
	if len(writers) == 0 {
		return nil, errors.New("export: no formats")
	}
	return writers, nil
}
