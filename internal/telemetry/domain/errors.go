package telemetry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("telemetry: invalid date")
	// ErrInvalidTimestamp is returned when an API timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("telemetry: invalid timestamp")
	// ErrNotAnObject is returned when a raw item is not a JSON object.
	ErrNotAnObject = errors.New("telemetry: item is not an object")
	// ErrEmptyDevice is returned when a device identifier is empty.
	ErrEmptyDevice = errors.New("telemetry: empty device id")
)

// StatusError reports a non-200 answer from the telemetry API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("telemetry: http %d: %s", e.StatusCode, e.Body)
}

// ExportError reports the format whose artifact could not be written.
type ExportError struct {
	Format  string
	Elapsed time.Duration
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
