package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cart mutation results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
)

// Sync outcomes.
const (
	SyncOK      = "ok"
	SyncFailed  = "failed"
	SyncTimeout = "timeout"
)

// CartMetrics records cart mutations, local persistence and remote sync health.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	syncs           *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	items           prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Failed reads or writes of the locally persisted cart.",
	}, []string{"stage"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_total",
		Help: "Remote cart snapshot syncs by outcome.",
	}, []string{"outcome"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of remote cart snapshot syncs.",
		Buckets: prometheus.DefBuckets,
	})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_item_count",
		Help: "Units currently in the cart.",
	})
	reg.MustRegister(mutations, persistFailures, syncs, syncDuration, items)
	return &CartMetrics{
		mutations:       mutations,
		persistFailures: persistFailures,
		syncs:           syncs,
		syncDuration:    syncDuration,
		items:           items,
	}
}

// ObserveMutation counts a mutation attempt.
func (c *CartMetrics) ObserveMutation(op string, applied bool) {
	if c == nil || c.mutations == nil {
		return
	}
	result := ResultRejected
	if applied {
		result = ResultApplied
	}
	c.mutations.WithLabelValues(normalizeLabel(op), result).Inc()
}

// IncPersistFailure counts a failed load or save of the local cart.
func (c *CartMetrics) IncPersistFailure(stage string) {
	if c == nil || c.persistFailures == nil {
		return
	}
	c.persistFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveSync records the outcome and latency of one remote sync.
func (c *CartMetrics) ObserveSync(outcome string, duration time.Duration) {
	if c == nil || c.syncs == nil {
		return
	}
	c.syncs.WithLabelValues(normalizeLabel(outcome)).Inc()
	c.syncDuration.Observe(duration.Seconds())
}

// SetItemCount publishes the current unit count.
func (c *CartMetrics) SetItemCount(count int) {
	if c == nil || c.items == nil {
		return
	}
	c.items.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
