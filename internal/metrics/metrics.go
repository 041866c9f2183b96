package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hairdash_http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	LatencyMS = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "hairdash_http_latency_ms", Help: "HTTP latency in ms", Buckets: prometheus.LinearBuckets(50, 50, 20)},
		[]string{"route"},
	)
	QueryDurationMS = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "hairdash_query_duration_ms", Help: "Analytics sub-query duration in ms", Buckets: prometheus.ExponentialBuckets(1, 2, 14)},
		[]string{"endpoint", "query"},
	)
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hairdash_fallbacks_total", Help: "Analytics sub-queries answered from fallback data"},
		[]string{"endpoint", "query", "policy"},
	)
	UpstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hairdash_upstream_requests_total", Help: "Calls to external collaborators"},
		[]string{"service", "status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(RequestsTotal, LatencyMS, QueryDurationMS, FallbacksTotal, UpstreamTotal)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency labelled by the chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
