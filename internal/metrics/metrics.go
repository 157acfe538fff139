package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Aggregator implements aggregator.Metrics and aggregator.CancelOrphanCounter
// over a dedicated Prometheus registry.
type Aggregator struct {
	tickDuration      *prometheus.HistogramVec
	tickTotal         *prometheus.CounterVec
	eventsAggregated  *prometheus.CounterVec
	ledgerRows        *prometheus.GaugeVec
	cancelOrphanTotal prometheus.Counter
}

// NewAggregator registers the aggregator's metric families on registry
// and returns a handle implementing the aggregator package's metrics
// seam.
func NewAggregator(registry *prometheus.Registry) *Aggregator {
	m := &Aggregator{
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aggregator",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one aggregator tick, by model and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model", "result"}),
		tickTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "ticks_total",
			Help:      "Count of completed aggregator ticks, by model and result.",
		}, []string{"model", "result"}),
		eventsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "events_aggregated_total",
			Help:      "Count of events folded into derived state, by model and event type.",
		}, []string{"model", "event_type"}),
		ledgerRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aggregator",
			Name:      "ledger_rows",
			Help:      "Total row count of the idempotence ledger, sampled once per successful tick.",
		}, []string{"model"}),
		cancelOrphanTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "cancel_orphan_total",
			Help:      "Count of cancel events that matched no known order.",
		}),
	}

	registry.MustRegister(m.tickDuration, m.tickTotal, m.eventsAggregated, m.ledgerRows, m.cancelOrphanTotal)
	return m
}

// ObserveTick records one tick's outcome and duration.
func (m *Aggregator) ObserveTick(model string, result string, duration time.Duration) {
	m.tickDuration.WithLabelValues(model, result).Observe(duration.Seconds())
	m.tickTotal.WithLabelValues(model, result).Inc()
}

// ObserveEventsAggregated records how many events of eventType a tick folded in.
func (m *Aggregator) ObserveEventsAggregated(model, eventType string, n int) {
	if n == 0 {
		return
	}
	m.eventsAggregated.WithLabelValues(model, eventType).Add(float64(n))
}

// ObserveLedgerRows sets the ledger-size gauge to n.
func (m *Aggregator) ObserveLedgerRows(model string, n int64) {
	m.ledgerRows.WithLabelValues(model).Set(float64(n))
}

// IncCancelOrphan implements aggregator.CancelOrphanCounter.
func (m *Aggregator) IncCancelOrphan() {
	m.cancelOrphanTotal.Inc()
}
