// Package metrics provides Prometheus metrics for the trip pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all trip pipeline metrics.
type Metrics struct {
	// Pipeline outcomes
	SubmissionsTotal *prometheus.CounterVec // Submissions by terminal status (completed, failed)
	RejectionsTotal  *prometheus.CounterVec // Verification rejections by rule

	// Reward issuance
	RewardsIssuedTotal      prometheus.Counter   // Total GREEN tokens issued
	IssuanceDurationSeconds prometheus.Histogram // End-to-end reward issuance latency
	StrandedMintsTotal      prometheus.Counter   // Mints whose follow-up transfer failed

	// Stats cache
	StatsCacheHitsTotal   *prometheus.CounterVec // Stats cache hits by scope (user, global)
	StatsCacheMissesTotal *prometheus.CounterVec // Stats cache misses by scope (user, global)
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhop_trip_submissions_total",
			Help: "Total number of processed trip submissions by terminal status",
		}, []string{"status"}),

		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhop_trip_rejections_total",
			Help: "Total number of trip verification rejections by rule",
		}, []string{"rule"}),

		RewardsIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "greenhop_rewards_issued_tokens_total",
			Help: "Total number of GREEN tokens issued as trip rewards",
		}),

		IssuanceDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "greenhop_reward_issuance_duration_seconds",
			Help:    "Duration of the credential-mint-transfer issuance sequence",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		StrandedMintsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "greenhop_reward_stranded_mints_total",
			Help: "Total number of successful mints whose treasury transfer failed",
		}),

		StatsCacheHitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhop_stats_cache_hits_total",
			Help: "Total number of stats cache hits by scope",
		}, []string{"scope"}),

		StatsCacheMissesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhop_stats_cache_misses_total",
			Help: "Total number of stats cache misses by scope",
		}, []string{"scope"}),
	}
}

// RecordSubmission records a processed submission by terminal status.
func (m *Metrics) RecordSubmission(status string) {
	m.SubmissionsTotal.WithLabelValues(status).Inc()
}

// RecordRejection records a verification rejection by rule name.
func (m *Metrics) RecordRejection(rule string) {
	m.RejectionsTotal.WithLabelValues(rule).Inc()
}

// RecordReward records issued tokens and the issuance latency.
func (m *Metrics) RecordReward(amount int64, durationSeconds float64) {
	m.RewardsIssuedTotal.Add(float64(amount))
	m.IssuanceDurationSeconds.Observe(durationSeconds)
}

// RecordStrandedMint records a mint left in the treasury by a failed transfer.
func (m *Metrics) RecordStrandedMint() {
	m.StrandedMintsTotal.Inc()
}

// RecordStatsCacheHit records a stats cache hit for the given scope.
func (m *Metrics) RecordStatsCacheHit(scope string) {
	m.StatsCacheHitsTotal.WithLabelValues(scope).Inc()
}

// RecordStatsCacheMiss records a stats cache miss for the given scope.
func (m *Metrics) RecordStatsCacheMiss(scope string) {
	m.StatsCacheMissesTotal.WithLabelValues(scope).Inc()
}
