package telemetry

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Batch is one page of telemetry for a device.
type Batch struct {
	Total int
	Items []json.RawMessage
}

// Empty reports whether the batch carries no items.
func (b Batch) Empty() bool { return len(b.Items) == 0 }

// Fetcher loads telemetry for a device over a window.
type Fetcher interface {
	Fetch(ctx context.Context, device string, window Window) (Batch, error)
}

// Artifact is one exported file for a device/window pair.
type Artifact struct {
	Format  string
	Device  string
	Window  Window
	Path    string
	RelPath string
	Empty   bool
	Rows    int
	// Elapsed is the time spent writing this artifact.
	Elapsed time.Duration
}

// DeviceDir rewrites a MAC-style identifier into a filesystem-safe segment.
func DeviceDir(device string) string {
	return strings.ReplaceAll(device, ":", "-")
}
