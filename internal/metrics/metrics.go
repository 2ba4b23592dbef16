// Package metrics provides Prometheus instrumentation for callguard.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/callguard/internal/model"
)

const namespace = "callguard"

var (
	// AnalysesTotal counts produced analysis results by source and level.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis results produced, partitioned by source and risk level.",
		},
		[]string{"source", "level"},
	)

	// ClassifierFailuresTotal counts remote classifier failures absorbed into the fallback result.
	ClassifierFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_failures_total",
			Help:      "Remote classifier failures by reason.",
		},
		[]string{"reason"},
	)

	// ClassifierDuration observes remote classifier latency.
	ClassifierDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Remote classifier latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		},
	)

	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Remote classifier circuit breaker transitions.",
		},
		[]string{"from", "to"},
	)

	// MonitorActive is 1 while a monitoring session runs.
	MonitorActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_active",
			Help:      "Whether a monitoring session is active.",
		},
	)

	// TicksDroppedTotal counts tick results discarded because their session ended.
	TicksDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Tick results discarded after their monitoring session was stopped.",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern, and status class.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CallsRecordedTotal counts finished calls by kind and final level.
	CallsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_recorded_total",
			Help:      "Finished calls by kind and final risk level.",
		},
		[]string{"kind", "level"},
	)

	// StreamClients tracks connected WebSocket clients.
	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected live stream clients.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		AnalysesTotal,
		ClassifierFailuresTotal,
		ClassifierDuration,
		BreakerTransitionsTotal,
		MonitorActive,
		TicksDroppedTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CallsRecordedTotal,
		StreamClients,
	}
}

// Register attaches the callguard collectors to reg. Collectors that are
// already registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, collector := range collectors() {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis counts one produced result.
func ObserveAnalysis(source, level string) {
	AnalysesTotal.WithLabelValues(source, level).Inc()
}

// ObserveClassifierCall records the latency of a remote call and, when
// reason is non-empty, the failure that was absorbed.
func ObserveClassifierCall(duration time.Duration, reason string) {
	if duration < 0 {
		duration = 0
	}
	ClassifierDuration.Observe(duration.Seconds())
	if reason != "" {
		ClassifierFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// CallSink counts finished calls. It satisfies service.HistorySink so it can
// sit next to the history store.
type CallSink struct{}

// Record implements service.HistorySink.
func (CallSink) Record(_ context.Context, record model.CallRecord) error {
	CallsRecordedTotal.WithLabelValues(string(record.Kind), string(record.RiskLevel)).Inc()
	return nil
}

// Middleware records request counts and latency using the route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(c.Request.Method, path))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, statusBucket(c.Writer.Status())).Inc()
	}
}

// Handler serves the Prometheus exposition for reg.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}
