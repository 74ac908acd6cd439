package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record keys as delivered by the Atmotube API after coords are promoted.
const (
	KeyTime     = "time"
	KeyVOC      = "voc"
	KeyTemp     = "t"
	KeyHumidity = "h"
	KeyPressure = "p"
	KeyPM1      = "pm1"
	KeyPM25     = "pm25"
	KeyPM10     = "pm10"
	KeyLat      = "lat"
	KeyLon      = "lon"

	keyCoords = "coords"
)

const (
	// APITimeLayout is the fractional-second UTC layout used by the API.
	APITimeLayout = "2006-01-02T15:04:05.999999Z"
	// DisplayTimeLayout is used when echoing records on the console.
	DisplayTimeLayout = "2006-01-02 15:04"
)

var recordKeys = []string{
	KeyTime, KeyVOC, KeyTemp, KeyHumidity, KeyPressure,
	KeyPM1, KeyPM25, KeyPM10, KeyLat, KeyLon,
}

// RecordKeys returns the flattened record keys in column order.
func RecordKeys() []string {
	out := make([]string, len(recordKeys))
	copy(out, recordKeys)
	return out
}

// Row is a flattened record. Keys keep the order in which they appeared.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from ordered keys and their values.
func NewRow(keys []string, values map[string]any) Row {
	row := Row{values: make(map[string]any, len(keys))}
	for _, key := range keys {
		row.Set(key, values[key])
	}
	return row
}

// PlaceholderRow is substituted for items that are not JSON objects.
func PlaceholderRow() Row {
	row := Row{values: make(map[string]any, len(recordKeys))}
	for _, key := range recordKeys {
		row.Set(key, "")
	}
	return row
}

// Keys returns the row keys in order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Set stores value under key. Existing keys keep their position.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key from the row.
func (r *Row) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Text returns the plain string form of the value under key.
func (r Row) Text(key string) string {
	v, ok := r.values[key]
	if !ok {
		return ""
	}
	return CellText(v)
}

// Flatten merges the nested coords object of a raw API item into its parent
// and drops the coords key. Items that are not JSON objects yield PlaceholderRow.
func Flatten(raw json.RawMessage) Row {
	keys, values, ok := decodeObject(raw)
	if !ok {
		return PlaceholderRow()
	}
	row := NewRow(keys, values)
	coords, hasCoords := row.Get(keyCoords)
	if !hasCoords {
		return row
	}
	if nested, ok := coords.(orderedObject); ok {
		for _, key := range nested.keys {
			row.Set(key, nested.values[key])
		}
	}
	row.Delete(keyCoords)
	return row
}

// WithDisplayTime returns a copy of r whose time value is reformatted for the console.
// Unparseable or missing time values are left as they are.
func (r Row) WithDisplayTime() Row {
	out := NewRow(r.keys, r.values)
	raw, ok := r.values[KeyTime].(string)
	if !ok || raw == "" {
		return out
	}
	if display, err := DisplayTime(raw); err == nil {
		out.Set(KeyTime, display)
	}
	return out
}

// DisplayTime converts an API timestamp to DisplayTimeLayout.
func DisplayTime(raw string) (string, error) {
	parsed, err := time.Parse(APITimeLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return parsed.Format(DisplayTimeLayout), nil
}

// String renders the row as {key: value, ...} for console echo.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", key, CellText(r.values[key]))
	}
	b.WriteByte('}')
	return b.String()
}

// CellText renders a decoded JSON value as plain text.
func CellText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		if value {
			return "True"
		}
		return "False"
	case orderedObject:
		return value.String()
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(raw)
	}
}

type orderedObject struct {
	keys   []string
	values map[string]any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o orderedObject) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		name, _ := json.Marshal(key)
		b.Write(name)
		b.WriteByte(':')
		switch v := o.values[key].(type) {
		case string:
			quoted, _ := json.Marshal(v)
			b.Write(quoted)
		case nil:
			b.WriteString("null")
		case bool:
			fmt.Fprintf(&b, "%t", v)
		default:
			b.WriteString(CellText(v))
		}
	}
	b.WriteByte('}')
	return b.String()
}

// decodeObject decodes raw as a JSON object, keeping key order and raw number text.
func decodeObject(raw json.RawMessage) ([]string, map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	obj, err := readObject(dec)
	if err != nil {
		return nil, nil, false
	}
	return obj.keys, obj.values, true
}

func readObject(dec *json.Decoder) (orderedObject, error) {
	tok, err := dec.Token()
	if err != nil {
		return orderedObject{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return orderedObject{}, ErrNotAnObject
	}
	return readMembers(dec)
}

func readMembers(dec *json.Decoder) (orderedObject, error) {
	obj := orderedObject{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return orderedObject{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return orderedObject{}, ErrNotAnObject
		}
		value, err := readValue(dec)
		if err != nil {
			return orderedObject{}, err
		}
		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return orderedObject{}, err
	}
	return obj, nil
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		return readMembers(dec)
	case '[':
		var items []any
		for dec.More() {
			item, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, ErrNotAnObject
	}
}
