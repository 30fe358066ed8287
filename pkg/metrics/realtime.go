package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Connection attempt outcomes.
const (
	ConnectAccepted          = "accepted"
	ConnectMissingCredential = "missing_credential"
	ConnectInvalidCredential = "invalid_credential"
	ConnectUpgradeFailed     = "upgrade_failed"
)

// Delivery outcomes.
const (
	DeliveryPushed        = "pushed"
	DeliveryOffline       = "offline"
	DeliveryPushFailed    = "push_failed"
	DeliveryPersistFailed = "persist_failed"
)

// RealtimeMetrics tracks the websocket registry and notification delivery.
// A nil *RealtimeMetrics is valid and records nothing.
type RealtimeMetrics struct {
	active     prometheus.Gauge
	connects   *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	broadcast  prometheus.Histogram
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_active_channels",
		Help: "Users with a registered realtime channel.",
	})
	connects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_connect_attempts_total",
		Help: "Realtime connection attempts by outcome.",
	}, []string{"outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification deliveries by kind and outcome.",
	}, []string{"kind", "outcome"})
	broadcast := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notification_broadcast_duration_seconds",
		Help:    "Time to fan a notification out to every recipient.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(active, connects, deliveries, broadcast)
	return &RealtimeMetrics{
		active:     active,
		connects:   connects,
		deliveries: deliveries,
		broadcast:  broadcast,
	}
}

// SetActive records the current registry size.
func (m *RealtimeMetrics) SetActive(n int) {
	if m == nil || m.active == nil {
		return
	}
	m.active.Set(float64(n))
}

func (m *RealtimeMetrics) IncConnect(outcome string) {
	if m == nil || m.connects == nil {
		return
	}
	m.connects.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *RealtimeMetrics) IncDelivery(kind, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *RealtimeMetrics) ObserveBroadcast(d time.Duration) {
	if m == nil || m.broadcast == nil {
		return
	}
	m.broadcast.Observe(d.Seconds())
}
