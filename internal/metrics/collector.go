package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/fieldprop/internal/driver"
)

const (
	metricsNamespace = "fieldprop"
	driverSubsystem  = "driver"
)

// StatsSource is anything that reports driver statistics. Drivers satisfy it
// directly.
type StatsSource interface {
	Stats() driver.Stats
}

// Snapshot is a frozen copy of driver statistics.
type Snapshot driver.Stats

func (s Snapshot) Stats() driver.Stats { return driver.Stats(s) }

// DriverCollector exports the statistics of named drivers as Prometheus
// metrics, labelled by driver name.
//
// Drivers are not thread-safe. Register a live driver only when scrapes
// cannot overlap an advance; otherwise register a Snapshot.
type DriverCollector struct {
	mu      sync.Mutex
	sources map[string]StatsSource

	calls        *prometheus.Desc
	steps        *prometheus.Desc
	integrations *prometheus.Desc
	warnings     *prometheus.Desc
	exhausted    *prometheus.Desc
	nonConverged *prometheus.Desc
	distance     *prometheus.Desc
	dyerrMax     *prometheus.Desc
}

var _ prometheus.Collector = (*DriverCollector)(nil)

func NewDriverCollector() *DriverCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, driverSubsystem, name),
			help, append([]string{"driver"}, labels...), nil)
	}
	return &DriverCollector{
		sources:      make(map[string]StatsSource),
		calls:        desc("calls_total", "Number of advance requests."),
		steps:        desc("steps_total", "Number of integration steps by outcome.", "kind"),
		integrations: desc("integrations_total", "Number of integration steps by step control.", "kind"),
		warnings:     desc("warnings_total", "Number of warnings issued."),
		exhausted:    desc("exhausted_total", "Number of advances stopped by the step budget."),
		nonConverged: desc("nonconverged_total", "Number of extrapolation steps accepted without convergence."),
		distance:     desc("distance_mm_total", "Curve length integrated by step control.", "kind"),
		dyerrMax:     desc("dyerr_max", "Largest relative error seen in an unchecked step."),
	}
}

// Register adds or replaces the source exported under name.
func (c *DriverCollector) Register(name string, s StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = s
}

func (c *DriverCollector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

func (c *DriverCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.calls
	ch <- c.steps
	ch <- c.integrations
	ch <- c.warnings
	ch <- c.exhausted
	ch <- c.nonConverged
	ch <- c.distance
	ch <- c.dyerrMax
}

func (c *DriverCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sources := make([]StatsSource, len(names))
	sort.Strings(names)
	for i, name := range names {
		sources[i] = c.sources[name]
	}
	c.mu.Unlock()

	for i, name := range names {
		st := sources[i].Stats()
		counter := func(d *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, append([]string{name}, labels...)...)
		}
		counter(c.calls, float64(st.Calls))
		counter(c.steps, float64(st.GoodSteps), "good")
		counter(c.steps, float64(st.BadSteps), "bad")
		counter(c.steps, float64(st.SmallSteps), "small")
		counter(c.integrations, float64(st.FullIntegrations), "full")
		counter(c.integrations, float64(st.SmallIntegrations), "small")
		counter(c.warnings, float64(st.Warnings))
		counter(c.exhausted, float64(st.Exhausted))
		counter(c.nonConverged, float64(st.NonConverged))
		counter(c.distance, st.SumHLarge, "large")
		counter(c.distance, st.SumHSmall, "small")
		ch <- prometheus.MustNewConstMetric(c.dyerrMax, prometheus.GaugeValue, st.DyerrMax, name)
	}
}
