package export

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// EmptyPrefix marks artifacts of windows that returned no records.
const EmptyPrefix = "empty_"

// Exporter writes every configured format for a device/window table.
type Exporter struct {
	root    string
	writers []Writer
	logger  *log.Logger
}

// NewExporter constructs an exporter rooted at root.
func NewExporter(root string, writers []Writer, logger *log.Logger) (*Exporter, error) {
	if len(writers) == 0 {
		return nil, errors.New("export: no writers")
	}
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &Exporter{root: root, writers: writers, logger: logger}, nil
}

// BaseName returns <start>_<end>, prefixed with EmptyPrefix for empty results.
func BaseName(window telemetry.Window, empty bool) string {
	name := window.String()
	if empty {
		return EmptyPrefix + name
	}
	return name
}

// RelPath is the artifact path relative to the export root.
func RelPath(w Writer, device string, window telemetry.Window, empty bool) string {
	return filepath.Join(w.Dir(), telemetry.DeviceDir(device), BaseName(window, empty)+"."+w.Format())
}

// Export writes all artifacts for table. Any previous artifact for the same
// device and window is removed first, whether or not it carried EmptyPrefix.
func (e *Exporter) Export(device string, window telemetry.Window, table telemetry.Table) ([]telemetry.Artifact, error) {
	if device == "" {
		return nil, telemetry.ErrEmptyDevice
	}
	empty := table.Len() == 0
	artifacts := make([]telemetry.Artifact, 0, len(e.writers))
	for _, w := range e.writers {
		started := time.Now()
		rel := RelPath(w, device, window, empty)
		path := filepath.Join(e.root, rel)
		if err := e.write(w, device, window, path, table); err != nil {
			return artifacts, &telemetry.ExportError{Format: w.Format(), Elapsed: time.Since(started), Err: err}
		}
		e.logger.Printf("export written: format=%s device=%s path=%s rows=%d", w.Format(), device, path, table.Len())
		artifacts = append(artifacts, telemetry.Artifact{
			Format:  w.Format(),
			Device:  device,
			Window:  window,
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Empty:   empty,
			Rows:    table.Len(),
			Elapsed: time.Since(started),
		})
	}
	return artifacts, nil
}

func (e *Exporter) write(w Writer, device string, window telemetry.Window, path string, table telemetry.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	for _, empty := range []bool{false, true} {
		if err := removeIfExists(filepath.Join(e.root, RelPath(w, device, window, empty))); err != nil {
			return err
		}
	}
	return w.Write(path, table)
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
