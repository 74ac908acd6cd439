package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// Event types emitted to notifiers.
const (
	EventExported    = "exported"
	EventFetchFailed = "fetch_failed"
	EventRunFinished = "run_finished"
)

// Result labels reported to the recorder.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ArtifactExporter writes the artifacts of one device/window table.
type ArtifactExporter interface {
	Export(device string, window telemetry.Window, table telemetry.Table) ([]telemetry.Artifact, error)
}

// ArtifactMirror copies a written artifact elsewhere.
type ArtifactMirror interface {
	Mirror(ctx context.Context, artifact telemetry.Artifact) error
}

// Event describes a step of an export run.
type Event struct {
	Type       string
	Device     string
	Window     telemetry.Window
	Total      int
	Items      int
	Artifacts  []telemetry.Artifact
	Error      string
	Summary    *RunSummary
	OccurredAt time.Time
}

// Notifier receives export run events.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Recorder collects run metrics.
type Recorder interface {
	ObserveFetch(result string, duration time.Duration)
	ObserveExport(format, result string, duration time.Duration)
	AddRecords(device string, count int)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RunSummary counts the outcome of a run.
type RunSummary struct {
	Window    telemetry.Window
	Devices   int
	Exported  int
	Failed    int
	Records   int
	Artifacts int
}

// ExportService fetches, echoes and exports telemetry device by device.
type ExportService struct {
	fetcher  telemetry.Fetcher
	exporter ArtifactExporter
	mirror   ArtifactMirror
	notifier Notifier
	recorder Recorder
	clock    Clock
	out      io.Writer
	logger   *log.Logger
}

// Option configures optional collaborators.
type Option func(*ExportService)

// WithMirror mirrors every written artifact.
func WithMirror(mirror ArtifactMirror) Option {
	return func(s *ExportService) { s.mirror = mirror }
}

// WithNotifier sends run events to notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *ExportService) { s.notifier = notifier }
}

// WithRecorder records run metrics.
func WithRecorder(recorder Recorder) Option {
	return func(s *ExportService) { s.recorder = recorder }
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *ExportService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewExportService constructs the service. Console lines go to out.
func NewExportService(fetcher telemetry.Fetcher, exporter ArtifactExporter, out io.Writer, logger *log.Logger, opts ...Option) (*ExportService, error) {
	if fetcher == nil {
		return nil, errors.New("export service: nil fetcher")
	}
	if exporter == nil {
		return nil, errors.New("export service: nil exporter")
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &ExportService{
		fetcher:  fetcher,
		exporter: exporter,
		clock:    SystemClock{},
		out:      out,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Window resolves the fetch window for start against the service clock.
func (s *ExportService) Window(start time.Time) telemetry.Window {
	return telemetry.ResolveWindow(start, s.clock.Now())
}

// Run processes devices in order. Fetch failures are reported and skipped;
// an export failure stops the run.
func (s *ExportService) Run(ctx context.Context, devices []string, window telemetry.Window) (RunSummary, error) {
	summary := RunSummary{Window: window, Devices: len(devices)}
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		batch, err := s.fetch(ctx, device, window)
		if err != nil {
			s.reportFetchError(ctx, device, window, err)
			summary.Failed++
			continue
		}
		artifacts, err := s.exportBatch(ctx, device, window, batch)
		if err != nil {
			return summary, fmt.Errorf("export %s: %w", device, err)
		}
		summary.Exported++
		summary.Records += len(batch.Items)
		summary.Artifacts += len(artifacts)
	}
	s.notify(ctx, Event{Type: EventRunFinished, Window: window, Summary: &summary})
	return summary, nil
}

func (s *ExportService) fetch(ctx context.Context, device string, window telemetry.Window) (telemetry.Batch, error) {
	started := time.Now()
	batch, err := s.fetcher.Fetch(ctx, device, window)
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if s.recorder != nil {
		s.recorder.ObserveFetch(result, time.Since(started))
	}
	return batch, err
}

func (s *ExportService) reportFetchError(ctx context.Context, device string, window telemetry.Window, err error) {
	var statusErr *telemetry.StatusError
	if errors.As(err, &statusErr) {
		fmt.Fprintf(s.out, "Error: %d, %s\n", statusErr.StatusCode, statusErr.Body)
	} else {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	s.logger.Printf("fetch failed: device=%s window=%s err=%v", device, window, err)
	s.notify(ctx, Event{Type: EventFetchFailed, Device: device, Window: window, Error: err.Error()})
}

func (s *ExportService) exportBatch(ctx context.Context, device string, window telemetry.Window, batch telemetry.Batch) ([]telemetry.Artifact, error) {
	fmt.Fprintf(s.out, "Total records for MAC %s: %d\n", device, batch.Total)
	for _, item := range batch.Items {
		fmt.Fprintln(s.out, telemetry.Flatten(item).WithDisplayTime().String())
	}
	if s.recorder != nil {
		s.recorder.AddRecords(device, len(batch.Items))
	}

	table := telemetry.BuildTable(batch.Items)
	artifacts, err := s.exporter.Export(device, window, table)
	s.observeExport(artifacts, err)
	if err != nil {
		return artifacts, err
	}

	if s.mirror != nil {
		for _, artifact := range artifacts {
			if err := s.mirror.Mirror(ctx, artifact); err != nil {
				s.logger.Printf("mirror error: device=%s path=%s err=%v", device, artifact.Path, err)
			}
		}
	}
	s.notify(ctx, Event{
		Type:      EventExported,
		Device:    device,
		Window:    window,
		Total:     batch.Total,
		Items:     len(batch.Items),
		Artifacts: artifacts,
	})
	return artifacts, nil
}

func (s *ExportService) observeExport(artifacts []telemetry.Artifact, err error) {
	if s.recorder == nil {
		return
	}
	for _, artifact := range artifacts {
		s.recorder.ObserveExport(artifact.Format, ResultSuccess, artifact.Elapsed)
	}
	var exportErr *telemetry.ExportError
	if errors.As(err, &exportErr) {
		s.recorder.ObserveExport(exportErr.Format, ResultError, exportErr.Elapsed)
	}
}

func (s *ExportService) notify(ctx context.Context, event Event) {
	if s.notifier == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	s.notifier.Notify(ctx, event)
}
