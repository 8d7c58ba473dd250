package budgetapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentedTransport wraps next with request counters and latency
// histograms registered on reg.
func InstrumentedTransport(reg prometheus.Registerer, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_api_requests_total",
			Help: "Requests sent to the budget service, by method and status code.",
		},
		[]string{"code", "method"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "budget_api_request_duration_seconds",
			Help:    "Latency of requests sent to the budget service.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "budget_api_requests_in_flight",
		Help: "Requests to the budget service currently in flight.",
	})
	reg.MustRegister(requests, duration, inflight)

	return promhttp.InstrumentRoundTripperInFlight(inflight,
		promhttp.InstrumentRoundTripperCounter(requests,
			promhttp.InstrumentRoundTripperDuration(duration, next)))
}
