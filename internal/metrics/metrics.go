package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"syscheck/internal/status"
	"syscheck/internal/system"
)

// Collector exports the aggregated prerequisite state as prometheus gauges.
// Each check contributes one time series per state, with value 1 on the
// state it currently projects.
type Collector struct {
	agg       *system.Aggregator
	stateDesc *prometheus.Desc
	readyDesc *prometheus.Desc
}

// NewCollector creates a collector over the aggregator.
func NewCollector(agg *system.Aggregator) *Collector {
	return &Collector{
		agg: agg,
		stateDesc: prometheus.NewDesc(
			"syscheck_prerequisite_state",
			"Current projected state per prerequisite check (1 = active state).",
			[]string{"check", "state"}, nil,
		),
		readyDesc: prometheus.NewDesc(
			"syscheck_prerequisites_satisfied",
			"Whether every prerequisite currently projects success.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
	ch <- c.readyDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.agg.Snapshot()
	for _, check := range snap.Checks {
		for _, st := range status.All() {
			value := 0.0
			if check.State == st {
				value = 1
			}
			ch <- prometheus.MustNewConstMetric(
				c.stateDesc, prometheus.GaugeValue, value, check.Name, string(st),
			)
		}
	}

	ready := 0.0
	if c.agg.Satisfied() {
		ready = 1
	}
	ch <- prometheus.MustNewConstMetric(c.readyDesc, prometheus.GaugeValue, ready)
}

// NewRegistry builds a registry carrying the syscheck collector alongside
// the standard process and runtime collectors.
func NewRegistry(agg *system.Aggregator) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(agg),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
