package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revise_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revise_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revise_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revise_store_latency_seconds",
		Help:    "Histogram of agenda store operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation", "route"})

	topicsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revise_topics_added_total",
		Help: "Topics scheduled for review.",
	})

	itemsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revise_items_removed_total",
		Help: "Agenda items removed by users.",
	})

	remindersDue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revise_reminders_due_total",
		Help: "Review items found due by the reminder sweep.",
	})
)

// Middleware records request metrics labelled by chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// chi fills the pattern in while routing.
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, statusCode).Observe(time.Since(start).Seconds())
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(r.Method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStore records the latency of a store operation.
func ObserveStore(ctx context.Context, backend, operation string, start time.Time) {
	storeLatency.WithLabelValues(backend, operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
}

// TopicAdded counts one scheduled topic.
func TopicAdded() { topicsAdded.Inc() }

// ItemsRemoved counts removed agenda items.
func ItemsRemoved(n int) { itemsRemoved.Add(float64(n)) }

// RemindersDue counts items found due by a sweep.
func RemindersDue(n int) { remindersDue.Add(float64(n)) }

// routeFromContext returns the chi route pattern matched so far, or "none"
// outside an HTTP request.
func routeFromContext(ctx context.Context) string {
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "none"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
