// internal/metrics/metrics.go
//
// Prometheus counters for the rewards backend, on a private registry so
// tests can build as many as they like.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim results used as the "result" label.
const (
	ClaimPaid     = "paid"
	ClaimRejected = "rejected"
	ClaimFailed   = "failed"
)

type Metrics struct {
	reg *prometheus.Registry

	Claims       *prometheus.CounterVec
	StatsUpdates prometheus.Counter
	RateLimited  prometheus.Counter
	Requests     *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monadtype",
			Name:      "claims_total",
			Help:      "Reward claims by result.",
		}, []string{"result"}),
		StatsUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monadtype",
			Name:      "stats_updates_total",
			Help:      "Leaderboard stat submissions accepted.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monadtype",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-address rate limit.",
		}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "monadtype",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	reg.MustRegister(
		m.Claims, m.StatsUpdates, m.RateLimited, m.Requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware observes request latency labelled by the matched chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
