package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Bootstrap outcomes.
const (
	BootstrapAuthenticated = "authenticated"
	BootstrapDefaulted     = "defaulted"
	BootstrapFallback      = "setup_fallback"
	BootstrapFailed        = "failed"
	BootstrapStale         = "stale"
)

// SessionMetrics records session bootstrap outcomes.
type SessionMetrics struct {
	bootstraps *prometheus.CounterVec
	duration   prometheus.Histogram
	signOuts   *prometheus.CounterVec
}

// NewSessionMetrics registers the session metrics on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	bootstraps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_bootstrap_total",
		Help: "Session bootstraps by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_bootstrap_duration_seconds",
		Help:    "Duration of session bootstraps.",
		Buckets: prometheus.DefBuckets,
	})
	signOuts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_sign_out_total",
		Help: "Sign-out attempts by result.",
	}, []string{"result"})
	reg.MustRegister(bootstraps, duration, signOuts)
	return &SessionMetrics{bootstraps: bootstraps, duration: duration, signOuts: signOuts}
}

// ObserveBootstrap records a finished bootstrap.
func (s *SessionMetrics) ObserveBootstrap(outcome string, duration time.Duration) {
	if s == nil || s.bootstraps == nil {
		return
	}
	s.bootstraps.WithLabelValues(normalizeLabel(outcome)).Inc()
	s.duration.Observe(duration.Seconds())
}

// ObserveSignOut records a sign-out attempt.
func (s *SessionMetrics) ObserveSignOut(ok bool) {
	if s == nil || s.signOuts == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	s.signOuts.WithLabelValues(result).Inc()
}
