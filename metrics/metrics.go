// Package metrics provides lightweight metrics primitives for the prover,
// collector and admission components. Counter and Gauge are lock-free;
// Histogram and Meter take a mutex per observation. NewPrometheusCollector
// exposes a Registry to client_golang.
package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count.
type Counter struct {
	name  string
	value atomic.Int64
}

func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n. Non-positive n is ignored.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.value.Add(n)
	}
}

func (c *Counter) Value() int64 { return c.value.Load() }
func (c *Counter) Name() string { return c.name }

// Gauge is an instantaneous level such as a queue depth.
type Gauge struct {
	name  string
	value atomic.Int64
}

func NewGauge(name string) *Gauge {
	return &Gauge{name: name}
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }
func (g *Gauge) Name() string { return g.name }

// DefaultBuckets are the upper bounds used when a histogram is created
// without explicit ones. They suit millisecond latencies from a fast mock
// proof up to a minute-long real one.
var DefaultBuckets = []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000}

// Histogram counts observations into fixed upper-bound buckets and keeps the
// running sum, minimum and maximum. An implicit +Inf bucket catches values
// above the last bound.
type Histogram struct {
	name   string
	bounds []float64

	mu     sync.Mutex
	counts []uint64 // per bucket, len(bounds)+1
	count  int64
	sum    float64
	min    float64
	max    float64
}

// NewHistogram returns a histogram with the given bucket upper bounds. The
// bounds are sorted and deduplicated; none selects DefaultBuckets.
func NewHistogram(name string, bounds ...float64) *Histogram {
	if len(bounds) == 0 {
		bounds = DefaultBuckets
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	uniq := sorted[:0]
	for _, b := range sorted {
		if math.IsNaN(b) || math.IsInf(b, 1) {
			continue
		}
		if len(uniq) > 0 && uniq[len(uniq)-1] == b {
			continue
		}
		uniq = append(uniq, b)
	}
	return &Histogram{
		name:   name,
		bounds: uniq,
		counts: make([]uint64, len(uniq)+1),
		min:    math.MaxFloat64,
		max:    -math.MaxFloat64,
	}
}

// Observe records v. NaN is dropped.
func (h *Histogram) Observe(v float64) {
	if math.IsNaN(v) {
		return
	}
	i := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	h.counts[i]++
	h.count++
	h.sum += v
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
	h.mu.Unlock()
}

// ObserveDuration records d in milliseconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(float64(d) / float64(time.Millisecond))
}

func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Min returns the smallest observation, or 0 before the first one.
func (h *Histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.min
}

// Max returns the largest observation, or 0 before the first one.
func (h *Histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.max
}

func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Buckets returns the cumulative count at or below each upper bound, keyed
// by bound. The +Inf bucket is Count.
func (h *Histogram) Buckets() map[float64]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[float64]uint64, len(h.bounds))
	var acc uint64
	for i, b := range h.bounds {
		acc += h.counts[i]
		out[b] = acc
	}
	return out
}

// Quantile estimates the q-th quantile (0 <= q <= 1) as the upper bound of
// the bucket holding it, clamped to the observed maximum. It returns 0
// before the first observation.
func (h *Histogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	q = math.Max(0, math.Min(1, q))
	rank := uint64(math.Ceil(q * float64(h.count)))
	if rank == 0 {
		rank = 1
	}
	var acc uint64
	for i, b := range h.bounds {
		acc += h.counts[i]
		if acc >= rank {
			return math.Min(b, h.max)
		}
	}
	return h.max
}

func (h *Histogram) Name() string { return h.name }
