// Package metrics defines the custom Prometheus metrics of the auth service.
// It is the single source of truth for metric names, labels, and help strings.
// HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsStartedTotal counts token pairs issued by register, login, and
// external login.
// Label:
//   - outcome: resolution branch (registered, authenticated, matched_by_external_id,
//     linked_by_email, created)
var SessionsStartedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Total number of sessions started, by identity resolution outcome.",
	},
	[]string{"outcome"},
)

// AuthFailuresTotal counts rejected authentication attempts.
// Labels:
//   - operation: register, login, refresh, google
//   - code: stable error code (conflict, unauthenticated, token_invalid, …)
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Total number of failed authentication operations, by operation and error code.",
	},
	[]string{"operation", "code"},
)

// RefreshRotationsTotal counts successful refresh token rotations.
var RefreshRotationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rotations_total",
		Help:      "Total number of refresh tokens exchanged for a new pair.",
	},
)

// LogoutsTotal counts logouts.
// Label:
//   - scope: "device" or "all"
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logouts, by scope.",
	},
	[]string{"scope"},
)

// ── Sweep metrics ─────────────────────────────────────────────────────────────

// ExpiredTokensSweptTotal counts refresh token rows removed by the sweeper.
var ExpiredTokensSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expired_refresh_tokens_swept_total",
		Help:      "Total number of expired refresh tokens deleted by the background sweep.",
	},
)

// SweepDuration measures one sweep run.
// Label:
//   - result: "ok" or "error"
var SweepDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_sweep_duration_seconds",
		Help:      "Duration of the expired refresh token sweep.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// SweepRecorder feeds sweep runs into the metrics above.
type SweepRecorder struct{}

func (SweepRecorder) ObserveSweep(removed int64, took time.Duration, err error) {
	if err != nil {
		SweepDuration.WithLabelValues("error").Observe(took.Seconds())
		return
	}
	SweepDuration.WithLabelValues("ok").Observe(took.Seconds())
	ExpiredTokensSweptTotal.Add(float64(removed))
}
