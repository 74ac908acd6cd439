package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricPrefix = "atmotube_export_"

	resultSuccess = "success"
)

// Recorder collects the metrics of one export run.
type Recorder struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
	records       *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

// New constructs a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_total",
				Help: "Total telemetry fetches by result",
			},
			[]string{"result"},
		),
		fetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Telemetry fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		exportTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "artifacts_total",
				Help: "Total artifact writes by format and result",
			},
			[]string{"format", "result"},
		),
		exportLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Artifact export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_total",
				Help: "Total telemetry records exported by device",
			},
			[]string{"device"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_run_timestamp_seconds",
			Help: "Unix time of the last finished run",
		}),
	}
	r.registry.MustRegister(
		r.fetchTotal,
		r.fetchLatency,
		r.exportTotal,
		r.exportLatency,
		r.records,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveFetch records fetch duration and result.
func (r *Recorder) ObserveFetch(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	r.fetchTotal.WithLabelValues(result).Inc()
	r.fetchLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveExport records artifact export duration and result.
func (r *Recorder) ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	r.exportTotal.WithLabelValues(format, result).Inc()
	r.exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
}

// AddRecords adds exported record counts for a device.
func (r *Recorder) AddRecords(device string, count int) {
	if count <= 0 {
		return
	}
	if device == "" {
		device = "unknown"
	}
	r.records.WithLabelValues(device).Add(float64(count))
}

// MarkRun stamps the run completion time.
func (r *Recorder) MarkRun(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Push sends the collected metrics to a Prometheus Pushgateway.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return errors.New("metrics: empty pushgateway url")
	}
	if job == "" {
		job = "atmotube_export"
	}
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}
