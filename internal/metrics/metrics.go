package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enrichment outcomes used as the "result" label of EnrichmentTotal.
const (
	EnrichApplied   = "applied"
	EnrichDiscarded = "discarded"
	EnrichNotFound  = "not_found"
	EnrichFailed    = "failed"
	EnrichSkipped   = "skipped"
)

var (
	// Participants is the number of records in the presence registry.
	Participants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_participants",
			Help: "Current number of participants in the presence registry",
		},
	)

	// Connections is the number of live WebSocket clients registered with the hub.
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_updates_total",
			Help: "Total location updates by outcome",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	DisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_disconnects_total",
			Help: "Total connection releases by outcome",
		},
		[]string{"result"}, // "removed", "retained", "stale", "anonymous"
	)

	EnrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_enrichment_total",
			Help: "Total profile enrichment lookups by outcome",
		},
		[]string{"result"},
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "presence_enrichment_duration_seconds",
			Help:    "Duration of profile store lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_sent_total",
			Help: "Total events queued for delivery to clients",
		},
		[]string{"event"},
	)

	SlowConsumersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_consumers_dropped_total",
			Help: "Total clients dropped because their event buffer was full",
		},
	)
)
