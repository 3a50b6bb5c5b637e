package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for media operations.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes int, err error)
	RecordDelete(duration time.Duration, err error)
}

// PrometheusObserver exports media metrics to Prometheus.
type PrometheusObserver struct {
	duration      *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	uploadedBytes prometheus.Counter
}

// NewPrometheusObserver registers the media collectors with reg. Collectors
// already registered under the same names are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "media"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of media upload and delete operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed media operations by error kind.",
		}, []string{"operation", "kind"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative size of successfully uploaded images.",
		}),
	}

	var err error
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	if o.failures, err = register(reg, o.failures); err != nil {
		return nil, err
	}
	if o.uploadedBytes, err = register(reg, o.uploadedBytes); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register media metric: %w", err)
	}
	return c, nil
}

// RecordUpload tracks upload latency, size and failures.
func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int, err error) {
	o.duration.WithLabelValues("upload").Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues("upload", errorKind(err)).Inc()
		return
	}
	o.uploadedBytes.Add(float64(sizeBytes))
}

// RecordDelete tracks delete latency and failures.
func (o *PrometheusObserver) RecordDelete(duration time.Duration, err error) {
	o.duration.WithLabelValues("delete").Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues("delete", errorKind(err)).Inc()
	}
}

// errorKind maps err onto a bounded label value.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrProcessing):
		return "processing"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrStorageRejected):
		return "storage_rejected"
	default:
		return "unknown"
	}
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, int, error) {}

func (nopObserver) RecordDelete(time.Duration, error) {}
