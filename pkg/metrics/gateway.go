package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records outbound delivery gateway call metadata.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Duration of delivery gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "network"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_call_success",
		Help: "Successful delivery gateway calls.",
	}, []string{"endpoint", "network"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_call_failure",
		Help: "Failed delivery gateway calls.",
	}, []string{"endpoint", "network"})
	reg.MustRegister(duration, success, failure)
	return &GatewayMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the endpoint/network pair.
func (g *GatewayMetrics) ObserveDuration(endpoint, network string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(network)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the endpoint/network pair.
func (g *GatewayMetrics) IncSuccess(endpoint, network string) {
	if g == nil || g.success == nil {
		return
	}
	g.success.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(network)).Inc()
}

// IncFailure increments the failure counter for the endpoint/network pair.
func (g *GatewayMetrics) IncFailure(endpoint, network string) {
	if g == nil || g.failure == nil {
		return
	}
	g.failure.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(network)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
