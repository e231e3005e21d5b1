package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProviderAttempts counts provider calls by outcome ("success" or a failure reason).
	ProviderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_provider_attempts_total",
			Help: "Provider attempts made by the failover loop",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks the duration of a single attempt, including polling.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prism_provider_attempt_duration_seconds",
			Help:    "Duration of a single provider attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// ProviderCoolingDown is 1 while a provider sits in cooldown.
	ProviderCoolingDown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prism_provider_cooling_down",
			Help: "Whether a provider is currently excluded after a failure",
		},
		[]string{"provider"},
	)

	// FailoverExhausted counts calls that returned no content at all.
	FailoverExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_failover_exhausted_total",
			Help: "Generations that found no provider able to answer",
		},
		[]string{"reason"},
	)

	// QuotaUsed mirrors today's quota counter.
	QuotaUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prism_quota_daily_used",
			Help: "Quota-gated feature invocations used today",
		},
	)

	// FeatureRequests counts copywriter feature calls by outcome.
	FeatureRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_feature_requests_total",
			Help: "Copywriter feature invocations",
		},
		[]string{"feature", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(ProviderAttempts)
	prometheus.MustRegister(ProviderLatency)
	prometheus.MustRegister(ProviderCoolingDown)
	prometheus.MustRegister(FailoverExhausted)
	prometheus.MustRegister(QuotaUsed)
	prometheus.MustRegister(FeatureRequests)
}
