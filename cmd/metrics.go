package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

const metricsPrefix = "kamino_sim"

// newMetricsScope returns the root scope for a run and a flush function that must be
// called once the run is done. With an empty path metrics are discarded and flush is a
// no-op. Otherwise metrics are collected in a private Prometheus registry and flush
// writes it to path in text exposition format.
func newMetricsScope(path string) (tally.Scope, func() error, error) {
	if path == "" {
		return tally.NoopScope, func() error { return nil }, nil
	}

	reporter := newPromReporter(prometheus.NewRegistry())
	// No reporting interval: the single report happens on Close, on the caller's goroutine.
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:    metricsPrefix,
		Reporter:  reporter,
		Separator: "_",
	}, 0)

	flush := func() error {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("flushing metrics: %w", err)
		}
		if err := reporter.Err(); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		if err := prometheus.WriteToTextfile(path, reporter.registry); err != nil {
			return fmt.Errorf("writing metrics to %s: %w", path, err)
		}
		logrus.Infof("Metrics written to %s", path)
		return nil
	}
	return scope, flush, nil
}

// promReporter is a tally.StatsReporter that feeds counters and gauges into Prometheus
// collectors. Label names of a metric are fixed by its first report.
// Timers and histograms are not emitted by the simulator and are dropped.
type promReporter struct {
	registry *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	err      error
}

func newPromReporter(registry *prometheus.Registry) *promReporter {
	return &promReporter{
		registry: registry,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Err returns the first registration or labelling error, if any.
func (r *promReporter) Err() error { return r.err }

func (r *promReporter) Capabilities() tally.Capabilities { return r }

// Reporting implements tally.Capabilities.
func (r *promReporter) Reporting() bool { return true }

// Tagging implements tally.Capabilities.
func (r *promReporter) Tagging() bool { return true }

func (r *promReporter) Flush() {}

// ReportCounter receives the delta since the previous report.
func (r *promReporter) ReportCounter(name string, tags map[string]string, value int64) {
	vec, ok := r.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: fmt.Sprintf("%s counter", name),
		}, labelNames(tags))
		if !r.register(name, vec) {
			return
		}
		r.counters[name] = vec
	}
	c, err := vec.GetMetricWith(tags)
	if err != nil {
		r.setErr(fmt.Errorf("counter %s: %w", name, err))
		return
	}
	c.Add(float64(value))
}

func (r *promReporter) ReportGauge(name string, tags map[string]string, value float64) {
	vec, ok := r.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: fmt.Sprintf("%s gauge", name),
		}, labelNames(tags))
		if !r.register(name, vec) {
			return
		}
		r.gauges[name] = vec
	}
	g, err := vec.GetMetricWith(tags)
	if err != nil {
		r.setErr(fmt.Errorf("gauge %s: %w", name, err))
		return
	}
	g.Set(value)
}

func (r *promReporter) ReportTimer(string, map[string]string, time.Duration) {}

func (r *promReporter) ReportHistogramValueSamples(string, map[string]string, tally.Buckets, float64, float64, int64) {
}

func (r *promReporter) ReportHistogramDurationSamples(string, map[string]string, tally.Buckets, time.Duration, time.Duration, int64) {
}

func (r *promReporter) register(name string, c prometheus.Collector) bool {
	if err := r.registry.Register(c); err != nil {
		r.setErr(fmt.Errorf("registering %s: %w", name, err))
		return false
	}
	return true
}

func (r *promReporter) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
