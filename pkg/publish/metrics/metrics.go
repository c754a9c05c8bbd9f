// Package metrics exposes Prometheus instruments for publish operations.
package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-publish/pkg/publish"
)

// Metrics implements publish.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BytesUploaded     prometheus.Counter
}

// New creates the instruments and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_operations_total",
				Help: "Total number of publish operations by result",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publish_operation_duration_seconds",
				Help:    "Duration of publish operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		BytesUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "publish_bytes_uploaded_total",
				Help: "Total number of bytes uploaded",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.OperationsTotal, m.OperationDuration, m.BytesUploaded)
	}
	return m
}

// ObserveOperation counts one operation and its latency.
func (m *Metrics) ObserveOperation(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Classify(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// AddUploadedBytes adds n to the uploaded byte counter.
func (m *Metrics) AddUploadedBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesUploaded.Add(float64(n))
}

// Classify maps an operation error onto a result label.
func Classify(err error) string {
	if err == nil {
		return "success"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, publish.ErrInvalidRequest), errors.Is(err, publish.ErrUnknownContentType):
		return "invalid"
	case errors.Is(err, publish.ErrCredentialsUnavailable):
		return "credentials"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "Forbidden"):
		return "access_denied"
	case strings.Contains(msg, "SlowDown") || strings.Contains(msg, "Throttl") || strings.Contains(msg, "TooManyInvalidationsInProgress"):
		return "throttled"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return "network_error"
	default:
		return "error"
	}
}

var _ publish.Recorder = (*Metrics)(nil)
