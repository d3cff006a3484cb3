package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the geofence-and-presence
// engine. A nil Collector is valid and records nothing, so components can
// run unmetered in tests.
type Collector struct {
	gatherer prometheus.Gatherer

	PositionSamples prometheus.Counter
	SensorErrors    *prometheus.CounterVec
	StoreWrites     *prometheus.CounterVec
	ZoneRecomputes  prometheus.Counter
	Notifications   *prometheus.CounterVec
	InvalidRecords  prometheus.Counter
	ActiveSessions  prometheus.Gauge
	TrackedPlayers  prometheus.Gauge
}

// NewCollector registers the engine metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		PositionSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_position_samples_total",
			Help: "Successful position samples received from location sources.",
		}),
		SensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_errors_total",
			Help: "Location sensor failures, labeled by error kind.",
		}, []string{"kind"}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_writes_total",
			Help: "Debounced player record writes, labeled by outcome.",
		}, []string{"outcome"}),
		ZoneRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zone_membership_recomputes_total",
			Help: "Zone membership recomputations that passed the rate limit.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outside_zone_notifications_total",
			Help: "Outside-zone notifications, labeled delivered or suppressed.",
		}, []string{"outcome"}),
		InvalidRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_invalid_records_total",
			Help: "Remote player records dropped during reconciliation.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Currently running player sessions.",
		}),
		TrackedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_tracked_players",
			Help: "Players in the last reconciled presence snapshot.",
		}),
	}

	reg.MustRegister(
		c.PositionSamples, c.SensorErrors, c.StoreWrites, c.ZoneRecomputes,
		c.Notifications, c.InvalidRecords, c.ActiveSessions, c.TrackedPlayers,
	)
	return c
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Sample records one successful position sample.
func (c *Collector) Sample() {
	if c != nil {
		c.PositionSamples.Inc()
	}
}

// SensorError records a sensor failure of the given kind.
func (c *Collector) SensorError(kind string) {
	if c != nil {
		c.SensorErrors.WithLabelValues(kind).Inc()
	}
}

// Write records a debounced store write outcome.
func (c *Collector) Write(ok bool) {
	if c != nil {
		c.StoreWrites.WithLabelValues(outcome(ok)).Inc()
	}
}

// Recompute records one zone membership recomputation.
func (c *Collector) Recompute() {
	if c != nil {
		c.ZoneRecomputes.Inc()
	}
}

// Notification records an outside-zone notification attempt.
func (c *Collector) Notification(delivered bool) {
	if c != nil {
		if delivered {
			c.Notifications.WithLabelValues("delivered").Inc()
		} else {
			c.Notifications.WithLabelValues("suppressed").Inc()
		}
	}
}

// InvalidRecord records a filtered remote record.
func (c *Collector) InvalidRecord() {
	if c != nil {
		c.InvalidRecords.Inc()
	}
}

// Sessions sets the active session gauge.
func (c *Collector) Sessions(n int) {
	if c != nil {
		c.ActiveSessions.Set(float64(n))
	}
}

// Players sets the tracked player gauge.
func (c *Collector) Players(n int) {
	if c != nil {
		c.TrackedPlayers.Set(float64(n))
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
