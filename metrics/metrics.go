package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsRecorded counts beacons that passed the consent gate and were
	// handed to the writer.
	EventsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitepulse_events_recorded_total",
		Help: "Total number of events accepted for recording.",
	})

	// EventsSuppressed counts beacons dropped by the consent gate,
	// labelled by reason (dnt or consent).
	EventsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitepulse_events_suppressed_total",
		Help: "Total number of events suppressed by the consent gate.",
	}, []string{"reason"})

	// EventsDropped counts events lost because the writer queue was full.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitepulse_events_dropped_total",
		Help: "Total number of events dropped due to a full write queue.",
	})

	// BotEvents counts recorded events whose user agent matched a bot
	// signature.
	BotEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitepulse_bot_events_total",
		Help: "Total number of recorded events classified as bot traffic.",
	})

	// BatchesWritten counts batches flushed to the event store.
	BatchesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitepulse_event_batches_written_total",
		Help: "Total number of event batches written to storage.",
	})

	// IngestDuration observes beacon handling latency in seconds.
	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitepulse_ingest_duration_seconds",
		Help:    "Latency of beacon ingestion handling.",
		Buckets: prometheus.DefBuckets,
	})

	// ReportDuration observes report execution latency in seconds.
	ReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitepulse_report_duration_seconds",
		Help:    "Latency of report and funnel execution.",
		Buckets: prometheus.DefBuckets,
	})
)
