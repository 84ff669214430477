// Package metrics provides Prometheus metrics for the console engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all console engine metrics.
type Metrics struct {
	// Snapshot flow
	SnapshotsDelivered prometheus.Counter // Change-sets received from the collection subscription
	VisibleRecords     prometheus.Gauge   // Records in the current snapshot
	CardRecords        prometheus.Gauge   // Snapshot records carrying a card payload

	// Moderation writes
	WritesTotal   *prometheus.CounterVec // Remote writes issued, by operation
	WriteFailures *prometheus.CounterVec // Remote writes rejected, by operation

	// Operator state
	StagedEdits    prometheus.Gauge       // Uncommitted verification-code edits
	MessagesPosted *prometheus.CounterVec // Transient status messages, by kind
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		SnapshotsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veridesk_snapshots_delivered_total",
			Help: "Total number of change-sets delivered by the collection subscription",
		}),
		VisibleRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "veridesk_visible_records",
			Help: "Current number of visible submission records",
		}),
		CardRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "veridesk_card_records",
			Help: "Current number of visible records carrying card info",
		}),
		WritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridesk_writes_total",
			Help: "Total number of remote collection writes issued, labeled by operation",
		}, []string{"op"}),
		WriteFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridesk_write_failures_total",
			Help: "Total number of remote collection writes rejected, labeled by operation",
		}, []string{"op"}),
		StagedEdits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "veridesk_staged_edits",
			Help: "Current number of uncommitted verification-code edits",
		}),
		MessagesPosted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridesk_messages_posted_total",
			Help: "Total number of transient operator messages posted, labeled by kind",
		}, []string{"kind"}),
	}
}

// RecordSnapshot updates snapshot flow metrics after a change-set lands.
func (m *Metrics) RecordSnapshot(visible, withCard int) {
	if m == nil {
		return
	}
	m.SnapshotsDelivered.Inc()
	m.VisibleRecords.Set(float64(visible))
	m.CardRecords.Set(float64(withCard))
}

// RecordWrite records the outcome of a remote write for the given operation.
func (m *Metrics) RecordWrite(op string, err error) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(op).Inc()
	if err != nil {
		m.WriteFailures.WithLabelValues(op).Inc()
	}
}

// SetStagedEdits updates the staged-edit gauge.
func (m *Metrics) SetStagedEdits(n int) {
	if m == nil {
		return
	}
	m.StagedEdits.Set(float64(n))
}

// RecordMessage counts a posted transient message by kind.
func (m *Metrics) RecordMessage(kind string) {
	if m == nil {
		return
	}
	m.MessagesPosted.WithLabelValues(kind).Inc()
}
