package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests counts handled HTTP requests by path and status.
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of handled HTTP requests by path and status.",
		},
		[]string{"path", "status"},
	)

	// Latency observes request duration by path.
	Latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of handled HTTP requests.",
		},
		[]string{"path"},
	)
)

// Metrics records request counts and latency.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		Requests.WithLabelValues(r.URL.Path, strconv.Itoa(sw.status)).Inc()
		Latency.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
