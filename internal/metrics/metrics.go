package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poller metrics
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_polls_total",
			Help: "Total number of poll runs",
		},
		[]string{"poller", "status"}, // status: success, failed, skipped
	)

	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_alerts_poll_duration_seconds",
			Help:    "Time taken by a poll run",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"poller"},
	)

	// Engine metrics
	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_emitted_total",
			Help: "Total number of alerts emitted by the engines",
		},
		[]string{"engine", "severity"},
	)

	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_suppressed_total",
			Help: "Total number of alerts dropped by the deduplication window",
		},
		[]string{"engine"},
	)

	TrackedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backoffice_alerts_tracked_entities",
			Help: "Number of entities with observation state",
		},
		[]string{"engine"},
	)

	// Sink metrics
	NotificationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backoffice_alerts_notifications_active",
			Help: "Current size of the visible notification set",
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backoffice_alerts_websocket_clients",
			Help: "Connected dashboard websocket clients",
		},
	)

	TelegramSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_telegram_sent_total",
			Help: "Total number of notifications forwarded to Telegram",
		},
		[]string{"status"},
	)

	// Event and backend metrics
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_events_received_total",
			Help: "Total number of CRUD events received",
		},
		[]string{"topic", "source"}, // source: http, kafka
	)

	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_backend_requests_total",
			Help: "Total number of requests to the back-office API",
		},
		[]string{"operation", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_alerts_backend_request_duration_seconds",
			Help:    "Back-office API request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_alerts_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
