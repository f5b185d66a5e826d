package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every exported metric name.
const DefaultNamespace = "reml"

// PrometheusCollector exposes the metrics of a Registry to client_golang.
// Counters become counters with a _total suffix, gauges stay gauges and
// histograms keep their buckets, with min and max as extra gauges. Meters
// export their count and one, five and fifteen minute rates.
type PrometheusCollector struct {
	namespace string
	registry  *Registry
}

// NewPrometheusCollector wraps reg. An empty namespace uses DefaultNamespace.
func NewPrometheusCollector(reg *Registry, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &PrometheusCollector{namespace: namespace, registry: reg}
}

// Describe implements prometheus.Collector. Registry metrics are created
// lazily, so no descriptors are sent and the collector registers unchecked.
func (pc *PrometheusCollector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (pc *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	r := pc.registry
	r.mu.RLock()
	counters := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}
	gauges := make([]*Gauge, 0, len(r.gauges))
	for _, g := range r.gauges {
		gauges = append(gauges, g)
	}
	hists := make([]*Histogram, 0, len(r.histograms))
	for _, h := range r.histograms {
		hists = append(hists, h)
	}
	meters := make([]*Meter, 0, len(r.meters))
	for _, m := range r.meters {
		meters = append(meters, m)
	}
	r.mu.RUnlock()

	sort.Slice(meters, func(i, j int) bool { return meters[i].name < meters[j].name })
	sort.Slice(counters, func(i, j int) bool { return counters[i].name < counters[j].name })
	sort.Slice(gauges, func(i, j int) bool { return gauges[i].name < gauges[j].name })
	sort.Slice(hists, func(i, j int) bool { return hists[i].name < hists[j].name })

	for _, c := range counters {
		desc := prometheus.NewDesc(pc.fqName(c.name)+"_total", c.name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(c.Value()))
	}
	for _, g := range gauges {
		desc := prometheus.NewDesc(pc.fqName(g.name), g.name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(g.Value()))
	}
	for _, h := range hists {
		name := pc.fqName(h.name)
		desc := prometheus.NewDesc(name, h.name, nil, nil)
		ch <- prometheus.MustNewConstHistogram(desc, uint64(h.Count()), h.Sum(), h.Buckets())
		minDesc := prometheus.NewDesc(name+"_min", h.name+" minimum", nil, nil)
		ch <- prometheus.MustNewConstMetric(minDesc, prometheus.GaugeValue, h.Min())
		maxDesc := prometheus.NewDesc(name+"_max", h.name+" maximum", nil, nil)
		ch <- prometheus.MustNewConstMetric(maxDesc, prometheus.GaugeValue, h.Max())
	}
	for _, m := range meters {
		name := pc.fqName(m.name)
		rates := m.Rates()
		desc := prometheus.NewDesc(name+"_total", m.name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(rates.Count))
		for _, w := range []struct {
			suffix string
			rate   float64
		}{{"_rate1m", rates.One}, {"_rate5m", rates.Five}, {"_rate15m", rates.Fifteen}} {
			rd := prometheus.NewDesc(name+w.suffix, m.name+" rate per second", nil, nil)
			ch <- prometheus.MustNewConstMetric(rd, prometheus.GaugeValue, w.rate)
		}
	}
}

// fqName converts a dotted registry name ("prover.proving_ms") into a
// Prometheus metric name ("reml_prover_proving_ms").
func (pc *PrometheusCollector) fqName(name string) string {
	return pc.namespace + "_" + sanitizeName(name)
}

// sanitizeName maps every character outside [a-zA-Z0-9_] to an underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NewPrometheusRegistry returns a client_golang registry carrying the bridge
// for reg plus the Go runtime and process collectors.
func NewPrometheusRegistry(reg *Registry) *prometheus.Registry {
	pr := prometheus.NewRegistry()
	pr.MustRegister(
		NewPrometheusCollector(reg, DefaultNamespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return pr
}

// Handler returns an HTTP handler serving reg in the Prometheus text format.
func Handler(reg *Registry) http.Handler {
	return promhttp.HandlerFor(NewPrometheusRegistry(reg), promhttp.HandlerOpts{})
}
