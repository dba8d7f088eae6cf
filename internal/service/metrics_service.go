package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

// MetricsService owns the Prometheus registry for HTTP, cache and complaint
// lifecycle instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	complaintsCreated prometheus.Counter
	transitions       *prometheus.CounterVec
	feedbackRatings   prometheus.Histogram
	uploads           *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewMetricsService registers collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		complaintsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixify_complaints_created_total",
			Help: "Complaints filed by students",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixify_complaint_transitions_total",
			Help: "Complaint status transitions",
		}, []string{"from", "to"}),
		feedbackRatings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fixify_feedback_rating",
			Help:    "Ratings submitted for resolved complaints",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixify_image_uploads_total",
			Help: "Complaint images stored by kind and result",
		}, []string{"kind", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixify_notifications_total",
			Help: "Notification delivery attempts by result",
		}, []string{"result"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.complaintsCreated, m.transitions, m.feedbackRatings, m.uploads, m.notifications,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry exposes the registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) ComplaintCreated() {
	if m == nil {
		return
	}
	m.complaintsCreated.Inc()
}

func (m *MetricsService) StatusTransition(from, to models.StatusID) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.Name(), to.Name()).Inc()
}

func (m *MetricsService) FeedbackSubmitted(rating int) {
	if m == nil {
		return
	}
	m.feedbackRatings.Observe(float64(rating))
}

func (m *MetricsService) ImageUpload(kind models.ImageKind, err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(kind), resultLabel(err)).Inc()
}

func (m *MetricsService) NotificationResult(err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
