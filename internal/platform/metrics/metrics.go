// Package metrics registers the Prometheus instruments for the access gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProofsIssued       prometheus.Counter
	AccessDenied       *prometheus.CounterVec
	PlaybackTracked    prometheus.Counter
	QuotaExceeded      prometheus.Counter
	CredentialRefresh  *prometheus.CounterVec
	ViewDurationSecs   prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ProofsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vidgate_proofs_issued_total",
			Help: "Total number of access proofs minted",
		}),
		AccessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgate_access_denied_total",
			Help: "Total number of denied access decisions by reason",
		}, []string{"reason"}),
		PlaybackTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vidgate_playback_tracked_total",
			Help: "Total number of recorded playback sessions",
		}),
		QuotaExceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vidgate_quota_exceeded_total",
			Help: "Total number of playback attempts rejected on quota",
		}),
		CredentialRefresh: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgate_credential_refresh_total",
			Help: "Total number of delegated credential refresh attempts by result",
		}, []string{"result"}),
		ViewDurationSecs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidgate_view_duration_seconds",
			Help:    "Reported view durations per tracked playback",
			Buckets: prometheus.ExponentialBuckets(15, 2, 10),
		}),
	}
}
