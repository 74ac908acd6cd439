package telemetry

import (
	"encoding/json"
	"strconv"
)

var columnLabels = map[string]string{
	KeyTime:     "Date (GMT)",
	KeyVOC:      "VOC (ppm)",
	KeyTemp:     "Temperature (C)",
	KeyHumidity: "Humidity (%)",
	KeyPressure: "Pressure (mbar)",
	KeyPM1:      "PM1 (ug/m3)",
	KeyPM25:     "PM2.5 (ug/m3)",
	KeyPM10:     "PM10 (ug/m3)",
	KeyLat:      "Latitude",
	KeyLon:      "Longitude",
}

// Label returns the display label for a record key. Unknown keys keep their name.
func Label(key string) string {
	if label, ok := columnLabels[key]; ok {
		return label
	}
	return key
}

// Column is a table column.
type Column struct {
	Key   string
	Label string
}

// Table is the tabular form of a batch, ready for export.
type Table struct {
	Columns []Column
	Rows    []Row
}

// BuildTable flattens every item. The known columns always come first,
// followed by unknown keys in first-seen order.
func BuildTable(items []json.RawMessage) Table {
	table := Table{Rows: make([]Row, 0, len(items))}
	seen := make(map[string]bool, len(recordKeys))
	for _, key := range recordKeys {
		table.Columns = append(table.Columns, Column{Key: key, Label: Label(key)})
		seen[key] = true
	}
	for _, item := range items {
		row := Flatten(item)
		for _, key := range row.keys {
			if !seen[key] {
				seen[key] = true
				table.Columns = append(table.Columns, Column{Key: key, Label: Label(key)})
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Header returns the column labels.
func (t Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Label
	}
	return out
}

// Strings returns row i as plain text cells.
func (t Table) Strings(i int) []string {
	row := t.Rows[i]
	out := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		out[j] = row.Text(col.Key)
	}
	return out
}

// Values returns row i as typed cells: numbers as float64 where they fit,
// everything else as text, missing values as nil.
func (t Table) Values(i int) []any {
	row := t.Rows[i]
	out := make([]any, len(t.Columns))
	for j, col := range t.Columns {
		v, ok := row.Get(col.Key)
		if !ok || v == nil {
			continue
		}
		if num, isNum := v.(json.Number); isNum {
			if f, err := strconv.ParseFloat(num.String(), 64); err == nil {
				out[j] = f
				continue
			}
		}
		out[j] = CellText(v)
	}
	return out
}
