// Package metrics provides Prometheus instrumentation for the projection engine.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warpfork/go-errcat"
)

// Callback names used as the "op" label.
const (
	OpBeginEnumeration = "begin_enumeration"
	OpGetEnumeration   = "get_enumeration"
	OpEndEnumeration   = "end_enumeration"
	OpResolveMetadata  = "resolve_metadata"
	OpQueryFileName    = "query_file_name"
	OpReadContent      = "read_content"
	OpNotification     = "notification"
)

// OutcomeOK labels callbacks which returned no error.
const OutcomeOK = "ok"

/*
	Metrics holds the collectors for one engine.

	A nil *Metrics is valid and records nothing, so components can be
	constructed without instrumentation.
*/
type Metrics struct {
	callbacksTotal   *prometheus.CounterVec
	callbackDuration *prometheus.HistogramVec
	sessionsOpen     prometheus.Gauge
	bytesServed      prometheus.Counter
}

// New registers a fresh set of collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		callbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagfs_callbacks_total",
				Help: "Total number of host callbacks handled, by outcome",
			},
			[]string{"op", "outcome"},
		),
		callbackDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tagfs_callback_duration_seconds",
				Help:    "Host callback duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		sessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tagfs_enumeration_sessions_open",
				Help: "Number of directory enumeration sessions currently open",
			},
		),
		bytesServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tagfs_content_bytes_served_total",
				Help: "Total file content bytes delivered to the host",
			},
		),
	}
}

// Outcome renders an error as a label value: its category, or "ok".
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if cat := errcat.Category(err); cat != nil {
		return fmt.Sprintf("%v", cat)
	}
	return "unknown"
}

// RecordCallback counts one callback and its duration.
func (m *Metrics) RecordCallback(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(op, Outcome(err)).Inc()
	m.callbackDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpen.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsOpen.Dec()
}

func (m *Metrics) BytesServed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesServed.Add(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler for a registry.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
