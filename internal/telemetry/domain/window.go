package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for queries and file names.
const DateLayout = "2006-01-02"

// MaxWindowDays caps the length of a single fetch window.
const MaxWindowDays = 7

// Window is the [Start, End] range of one fetch.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses a YYYY-MM-DD date as a local calendar value.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// ResolveWindow returns the window starting at start whose end is
// min(now, start + MaxWindowDays), never earlier than start.
func ResolveWindow(start, now time.Time) Window {
	end := start.AddDate(0, 0, MaxWindowDays)
	if now.Before(end) {
		end = now
	}
	if end.Before(start) {
		end = start
	}
	return Window{Start: start, End: end}
}

// StartKey is the formatted start date.
func (w Window) StartKey() string { return w.Start.Format(DateLayout) }

// EndKey is the formatted end date.
func (w Window) EndKey() string { return w.End.Format(DateLayout) }

// String renders the window as start_end.
func (w Window) String() string { return w.StartKey() + "_" + w.EndKey() }
