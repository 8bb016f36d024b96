package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Requests are labelled by chi route pattern so batch IDs and scene handles
// never become label values. Requests that match no route share one label.
const unroutedLabel = "unrouted"

// requestBuckets cover quick queries up to await and activate calls, which
// block until the asset system finishes.
var requestBuckets = []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 5, 15, 30, 60}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sceneloader_http_requests_total",
			Help: "HTTP requests by route, method and status class.",
		},
		[]string{"route", "method", "class"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sceneloader_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: requestBuckets,
		},
		[]string{"route", "method"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sceneloader_http_requests_in_flight",
			Help: "HTTP requests currently being served, including open event streams.",
		},
	)

	eventStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sceneloader_http_event_streams",
			Help: "Open batch event streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, eventStreams)
}

// instrument wraps the router with request metrics.
func instrument(next http.Handler) http.Handler {
	observed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(route, r.Method, statusClass(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
	return promhttp.InstrumentHandlerInFlight(httpInFlight, observed)
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unroutedLabel
}

// statusClass maps a status code to "2xx", "4xx" and so on. A handler that
// never wrote a header answered 200.
func statusClass(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status/100) + "xx"
}
