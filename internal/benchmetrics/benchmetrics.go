// Package benchmetrics is a thin Prometheus sink for cmd/slotbench. It
// exists so the benchmarking CLI can expose live throughput and
// shard-load gauges while it drives pkg/sync containers under load; the
// containers themselves never import this package or know metrics exist,
// matching the split the teacher draws between its cache and its optional
// metrics sink.
//
// © 2025 arena-cache authors. MIT License.
package benchmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink records the counters and gauges a benchmark run produces. A nil
// *Sink is valid and records nothing, so callers that did not ask for
// metrics (no -metrics flag) pay no cost.
type Sink struct {
	ops        *prometheus.CounterVec
	shardLoad  *prometheus.GaugeVec
	reservedGa prometheus.Gauge
}

// New registers a fresh set of collectors on reg and returns a Sink that
// reports into them. Passing a nil reg disables metrics: every method on
// the returned *Sink becomes a no-op.
func New(reg *prometheus.Registry) *Sink {
	if reg == nil {
		return nil
	}
	s := &Sink{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbench",
			Name:      "ops_total",
			Help:      "Operations performed, by kind.",
		}, []string{"op"}),
		shardLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "slotbench",
			Name:      "shard_load",
			Help:      "Live element count observed per shard.",
		}, []string{"shard"}),
		reservedGa: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotbench",
			Name:      "lazy_reservations_outstanding",
			Help:      "Lazy-insert reservations not yet committed or discarded.",
		}),
	}
	reg.MustRegister(s.ops, s.shardLoad, s.reservedGa)
	return s
}

func (s *Sink) IncOp(op string) {
	if s == nil {
		return
	}
	s.ops.WithLabelValues(op).Inc()
}

func (s *Sink) SetShardLoad(shard, load int) {
	if s == nil {
		return
	}
	s.shardLoad.WithLabelValues(strconv.Itoa(shard)).Set(float64(load))
}

func (s *Sink) SetReservations(n int) {
	if s == nil {
		return
	}
	s.reservedGa.Set(float64(n))
}
