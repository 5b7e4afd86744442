package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vhevents_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"status"})

	eventsSelected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vhevents_events_selected",
		Help: "Events in the window of the last successful run, by kind.",
	}, []string{"kind"})

	lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vhevents_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vhevents_http_requests_total",
		Help: "HTTP requests served in serve mode.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vhevents_http_request_duration_seconds",
		Help:    "HTTP request latency in serve mode.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// MustRegister registers the package collectors once.
func MustRegister(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			runsTotal,
			eventsSelected,
			lastSuccess,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// RunSucceeded records a successful pipeline run and its event counts.
func RunSucceeded(total, weekly, other int) {
	runsTotal.WithLabelValues("ok").Inc()
	eventsSelected.WithLabelValues("total").Set(float64(total))
	eventsSelected.WithLabelValues("weekly").Set(float64(weekly))
	eventsSelected.WithLabelValues("other").Set(float64(other))
	lastSuccess.Set(float64(time.Now().Unix()))
}

// RunFailed records an aborted run.
func RunFailed() {
	runsTotal.WithLabelValues("error").Inc()
}

// Middleware counts chi-routed requests by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
