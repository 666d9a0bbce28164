package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	wizardEvents    *prometheus.CounterVec
	submissions     prometheus.Counter
	checkoutResults *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the gateway's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	wizardEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_events_total",
		Help: "Wizard navigation events by step and event",
	}, []string{"step", "event"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_submissions_total",
		Help: "Total document requests submitted through the wizard",
	})

	checkoutResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_returns_total",
		Help: "Payment redirect returns by outcome",
	}, []string{"outcome"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_transitions_total",
		Help: "Request status transitions by target and result",
	}, []string{"target", "result"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, wizardEvents, submissions, checkoutResults, transitions, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		wizardEvents:    wizardEvents,
		submissions:     submissions,
		checkoutResults: checkoutResults,
		transitions:     transitions,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordWizardEvent counts a wizard navigation event.
func (m *MetricsService) RecordWizardEvent(step, event string) {
	if m == nil {
		return
	}
	m.wizardEvents.WithLabelValues(step, event).Inc()
}

// RecordSubmission counts a completed wizard submission.
func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordPaymentReturn counts a payment redirect return by outcome.
func (m *MetricsService) RecordPaymentReturn(outcome string) {
	if m == nil {
		return
	}
	m.checkoutResults.WithLabelValues(outcome).Inc()
}

// RecordTransition counts a status transition attempt.
func (m *MetricsService) RecordTransition(target string, allowed bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !allowed {
		result = "blocked"
	}
	m.transitions.WithLabelValues(target, result).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
