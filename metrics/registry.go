package metrics

import "sync"

// Registry holds named metrics. Accessors create a metric on first use, so a
// name always resolves to the same instance.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	meters     map[string]*Meter
}

// DefaultRegistry backs the metrics declared in standard.go.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		meters:     make(map[string]*Meter),
	}
}

// getOrCreate looks name up in m under the read lock and falls back to
// creating it under the write lock.
func getOrCreate[T any](mu *sync.RWMutex, m map[string]T, name string, create func() T) T {
	mu.RLock()
	v, ok := m[name]
	mu.RUnlock()
	if ok {
		return v
	}
	mu.Lock()
	defer mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	v = create()
	m[name] = v
	return v
}

func (r *Registry) Counter(name string) *Counter {
	return getOrCreate(&r.mu, r.counters, name, func() *Counter { return NewCounter(name) })
}

func (r *Registry) Gauge(name string) *Gauge {
	return getOrCreate(&r.mu, r.gauges, name, func() *Gauge { return NewGauge(name) })
}

// Histogram returns the histogram registered under name. bounds apply only
// when the call creates it.
func (r *Registry) Histogram(name string, bounds ...float64) *Histogram {
	return getOrCreate(&r.mu, r.histograms, name, func() *Histogram { return NewHistogram(name, bounds...) })
}

func (r *Registry) Meter(name string) *Meter {
	return getOrCreate(&r.mu, r.meters, name, func() *Meter { return NewMeter(name) })
}

// Snapshot copies every metric value keyed by name. Counters and gauges map
// to int64; histograms and meters map to a map[string]interface{} of fields.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]interface{}, len(r.counters)+len(r.gauges)+len(r.histograms)+len(r.meters))
	for name, c := range r.counters {
		snap[name] = c.Value()
	}
	for name, g := range r.gauges {
		snap[name] = g.Value()
	}
	for name, h := range r.histograms {
		snap[name] = map[string]interface{}{
			"count": h.Count(),
			"sum":   h.Sum(),
			"min":   h.Min(),
			"max":   h.Max(),
			"mean":  h.Mean(),
			"p50":   h.Quantile(0.5),
			"p99":   h.Quantile(0.99),
		}
	}
	for name, m := range r.meters {
		rates := m.Rates()
		snap[name] = map[string]interface{}{
			"count":  rates.Count,
			"rate1":  rates.One,
			"rate5":  rates.Five,
			"rate15": rates.Fifteen,
		}
	}
	return snap
}
