// Package telemetry holds the process-internal Prometheus collectors.
// They are registered with the default registry but never served over
// HTTP — no metrics exporter endpoint exists. They exist purely so
// in-process state (reputation events, PoH cadence, PFP level) is
// introspectable via gocore's existing stats plumbing and future
// debugging tools.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// ReputationEvents counts Apply() calls by event name.
var ReputationEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "qnet_reputation_events_total",
		Help: "Count of reputation events applied, by event name.",
	},
	[]string{"event"},
)

// PoHTicks counts advanced PoH hash-chain ticks.
var PoHTicks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "qnet_poh_ticks_total",
		Help: "Count of PoH ticker advances.",
	},
)

// PFPLevel reports the active Progressive Finalization Protocol level
// (0 = none, 4 = deepest degradation) for the current macroblock round.
var PFPLevel = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "qnet_pfp_level",
		Help: "Active PFP degradation level for the in-flight macroblock round.",
	},
)

func init() {
	prometheus.MustRegister(ReputationEvents, PoHTicks, PFPLevel)
}
