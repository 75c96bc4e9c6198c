// Package metrics exports stream activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

// ScopeBridge labels the bridge's own registry; websocket sessions use
// their session id.
const ScopeBridge = "bridge"

// Collector holds the metrics shared by every registry of the process.
// Registries observe it through Scope.
type Collector struct {
	samples *prometheus.CounterVec
	state   *prometheus.GaugeVec
	gather  prometheus.Gatherer
}

// New registers the collector's metrics with reg. reg must also be a
// Gatherer (a *prometheus.Registry is) for Handler to serve them.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motion_bridge_samples_total",
			Help: "Samples delivered by sensor subsystems, by sensor and outcome (forwarded, suppressed, dropped).",
		}, []string{"sensor", "outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motion_bridge_stream_state",
			Help: "Stream lifecycle state per registry scope and sensor (1 inactive, 2 active). Unbound streams have no series.",
		}, []string{"scope", "sensor"}),
	}
	reg.MustRegister(c.samples, c.state)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gather = g
	} else {
		c.gather = prometheus.DefaultGatherer
	}
	return c
}

// Scope returns the observer for one registry. Sample counters are shared;
// stream state is tracked per scope so registries never overwrite each other.
func (c *Collector) Scope(name string) stream.Observer {
	return &scoped{c: c, scope: name}
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gather, promhttp.HandlerOpts{})
}

type scoped struct {
	c     *Collector
	scope string
}

func (s *scoped) Forwarded(id sample.SensorID) {
	s.c.samples.WithLabelValues(id.Name(), "forwarded").Inc()
}

func (s *scoped) Suppressed(id sample.SensorID) {
	s.c.samples.WithLabelValues(id.Name(), "suppressed").Inc()
}

func (s *scoped) Dropped(id sample.SensorID) {
	s.c.samples.WithLabelValues(id.Name(), "dropped").Inc()
}

// StateChanged removes the series once a stream is unbound, which is where
// Stop and registry Close leave every stream.
func (s *scoped) StateChanged(id sample.SensorID, st stream.State) {
	if st == stream.Unbound {
		s.c.state.DeleteLabelValues(s.scope, id.Name())
		return
	}
	s.c.state.WithLabelValues(s.scope, id.Name()).Set(float64(st))
}
