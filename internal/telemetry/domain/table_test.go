package telemetry

import (
	"encoding/json"
	"reflect"
	"testing"
)

var expectedHeader = []string{
	"Date (GMT)", "VOC (ppm)", "Temperature (C)", "Humidity (%)", "Pressure (mbar)",
	"PM1 (ug/m3)", "PM2.5 (ug/m3)", "PM10 (ug/m3)", "Latitude", "Longitude",
}

func TestBuildTableEmpty(t *testing.T) {
	table := BuildTable(nil)
	if table.Len() != 0 {
		t.Fatalf("expected no rows, got %d", table.Len())
	}
	if got := table.Header(); !reflect.DeepEqual(got, expectedHeader) {
		t.Fatalf("expected header %v, got %v", expectedHeader, got)
	}
}

func TestBuildTableRowsAndExtras(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"time":"2024-01-01T00:00:00.000000Z","voc":1,"t":2,"h":3,"p":4,"pm1":5,"pm25":6,"pm10":7,"coords":{"lat":8,"lon":9}}`),
		json.RawMessage(`"garbage"`),
		json.RawMessage(`{"time":"2024-01-01T01:00:00.000000Z","aqs":80}`),
	}
	table := BuildTable(items)
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	wantHeader := append(append([]string{}, expectedHeader...), "aqs")
	if got := table.Header(); !reflect.DeepEqual(got, wantHeader) {
		t.Fatalf("expected header %v, got %v", wantHeader, got)
	}

	first := table.Strings(0)
	want := []string{"2024-01-01T00:00:00.000000Z", "1", "2", "3", "4", "5", "6", "7", "8", "9", ""}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("expected %v, got %v", want, first)
	}
	second := table.Strings(1)
	for i, cell := range second {
		if cell != "" {
			t.Fatalf("expected empty placeholder cell %d, got %q", i, cell)
		}
	}
	third := table.Strings(2)
	if third[0] != "2024-01-01T01:00:00.000000Z" || third[10] != "80" || third[1] != "" {
		t.Fatalf("unexpected third row %v", third)
	}
}

func TestTableValues(t *testing.T) {
	table := BuildTable([]json.RawMessage{
		json.RawMessage(`{"time":"2024-01-01T00:00:00.000000Z","voc":0.5,"coords":{"lat":8,"lon":9}}`),
	})
	values := table.Values(0)
	if values[0] != "2024-01-01T00:00:00.000000Z" {
		t.Fatalf("expected time string, got %#v", values[0])
	}
	if values[1] != 0.5 {
		t.Fatalf("expected float voc, got %#v", values[1])
	}
	if values[2] != nil {
		t.Fatalf("expected nil for missing t, got %#v", values[2])
	}
	if values[8] != float64(8) || values[9] != float64(9) {
		t.Fatalf("unexpected coords %#v %#v", values[8], values[9])
	}
}
