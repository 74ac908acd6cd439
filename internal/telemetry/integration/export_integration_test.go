package integration_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"atmotube-export/internal/export"
	"atmotube-export/internal/telemetry/application"
	telemetry "atmotube-export/internal/telemetry/domain"
	"atmotube-export/internal/telemetry/infrastructure/atmotube"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestExportRun_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("mac") {
		case "AA:BB:CC:DD:EE:FF":
			_, _ = w.Write([]byte(`{"data":{"total":1,"items":[{"time":"2024-01-01T00:00:00.000000Z","voc":1,"t":2,"h":3,"p":4,"pm1":5,"pm25":6,"pm10":7,"coords":{"lat":8,"lon":9}}]}}`))
		case "11:22:33:44:55:66":
			_, _ = w.Write([]byte(`{"data":{"total":0,"items":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("unknown device"))
		}
	}))
	defer server.Close()

	root := t.TempDir()
	client, err := atmotube.NewClient(server.URL, "key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	writers, err := export.WritersFor(nil)
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	exporter, err := export.NewExporter(root, writers, logger)
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	var out bytes.Buffer
	svc, err := application.NewExportService(client, exporter, &out, logger,
		application.WithClock(fixedClock{now: time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	start, err := telemetry.ParseDate("2024-01-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	window := svc.Window(start)
	summary, err := svc.Run(context.Background(), []string{"AA:BB:CC:DD:EE:FF", "00:00:00:00:00:00", "11:22:33:44:55:66"}, window)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Exported != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	csvData, err := os.ReadFile(filepath.Join(root, "csv_data", "AA-BB-CC-DD-EE-FF", "2024-01-01_2024-01-08.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(csvData), "\n"), "\n")
	if len(lines) != 2 || lines[1] != "2024-01-01T00:00:00.000000Z;1;2;3;4;5;6;7;8;9" {
		t.Fatalf("unexpected csv %q", csvData)
	}
	for _, path := range []string{
		filepath.Join(root, "excel_data", "AA-BB-CC-DD-EE-FF", "2024-01-01_2024-01-08.xlsx"),
		filepath.Join(root, "excel_data", "11-22-33-44-55-66", "empty_2024-01-01_2024-01-08.xlsx"),
		filepath.Join(root, "csv_data", "11-22-33-44-55-66", "empty_2024-01-01_2024-01-08.csv"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "csv_data", "00-00-00-00-00-00")); !os.IsNotExist(err) {
		t.Fatalf("expected no artifacts for failed device, got %v", err)
	}

	console := out.String()
	for _, want := range []string{
		"Total records for MAC AA:BB:CC:DD:EE:FF: 1",
		"{time: 2024-01-01 00:00, voc: 1, t: 2, h: 3, p: 4, pm1: 5, pm25: 6, pm10: 7, lat: 8, lon: 9}",
		"Error: 404, unknown device",
		"Total records for MAC 11:22:33:44:55:66: 0",
	} {
		if !strings.Contains(console, want) {
			t.Fatalf("expected console to contain %q, got:\n%s", want, console)
		}
	}
}
