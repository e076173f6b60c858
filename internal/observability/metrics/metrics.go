package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "fleethub_"

var (
	registerOnce sync.Once

	eventsApplied *prometheus.CounterVec
	eventsNoop    *prometheus.CounterVec

	subscribers      prometheus.Gauge
	broadcastDropped prometheus.Counter

	ingestRejected *prometheus.CounterVec
)

// Init registers the hub's metrics with the default prometheus registry.
// Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		eventsApplied = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_applied_total",
				Help: "Mutation events that changed state, by event type",
			},
			[]string{"type"},
		)
		eventsNoop = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_noop_total",
				Help: "Mutation events absorbed as no-ops, by event type",
			},
			[]string{"type"},
		)
		subscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "subscribers",
				Help: "Currently connected broadcast subscribers",
			},
		)
		broadcastDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_dropped_total",
				Help: "Broadcast frames dropped for individual subscribers",
			},
		)
		ingestRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rejected_total",
				Help: "Inbound payloads rejected at a boundary, by source",
			},
			[]string{"source"},
		)

		prometheus.MustRegister(
			eventsApplied,
			eventsNoop,
			subscribers,
			broadcastDropped,
			ingestRejected,
		)
	})
}

// RecordEventApplied counts an applied mutation.
func RecordEventApplied(eventType string) {
	if eventsApplied != nil {
		eventsApplied.WithLabelValues(eventType).Inc()
	}
}

// RecordEventNoop counts an absorbed no-op mutation.
func RecordEventNoop(eventType string) {
	if eventsNoop != nil {
		eventsNoop.WithLabelValues(eventType).Inc()
	}
}

// SubscriberConnected adjusts the live subscriber gauge upward.
func SubscriberConnected() {
	if subscribers != nil {
		subscribers.Inc()
	}
}

// SubscriberDisconnected adjusts the live subscriber gauge downward.
func SubscriberDisconnected() {
	if subscribers != nil {
		subscribers.Dec()
	}
}

// RecordBroadcastDropped counts a frame dropped for one subscriber.
func RecordBroadcastDropped() {
	if broadcastDropped != nil {
		broadcastDropped.Inc()
	}
}

// RecordIngestRejected counts a malformed inbound payload.
func RecordIngestRejected(source string) {
	if ingestRejected != nil {
		ingestRejected.WithLabelValues(source).Inc()
	}
}
