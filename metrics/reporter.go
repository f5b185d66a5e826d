package metrics

import (
	"context"
	"sort"
	"time"
)

// ReportFunc receives a flattened snapshot of a registry.
type ReportFunc func(values map[string]float64)

// Reporter periodically flattens a Registry and hands the values to a
// ReportFunc, typically a log line.
type Reporter struct {
	registry *Registry
	interval time.Duration
	report   ReportFunc
}

// NewReporter creates a reporter for reg. A non-positive interval disables
// periodic reports.
func NewReporter(reg *Registry, interval time.Duration, report ReportFunc) *Reporter {
	return &Reporter{registry: reg, interval: interval, report: report}
}

// Run reports every interval until ctx is done, then reports once more.
func (r *Reporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.ReportOnce()
			return
		case <-ticker.C:
			r.ReportOnce()
		}
	}
}

// ReportOnce reports the current values.
func (r *Reporter) ReportOnce() {
	r.report(Flatten(r.registry))
}

// Flatten returns every value of reg as a float keyed by metric name.
// Histograms contribute name.count, name.sum and name.mean; meters
// contribute name.count and name.rate1.
func Flatten(reg *Registry) map[string]float64 {
	out := make(map[string]float64)
	for name, v := range reg.Snapshot() {
		switch v := v.(type) {
		case int64:
			out[name] = float64(v)
		case map[string]interface{}:
			for field, fv := range v {
				switch fv := fv.(type) {
				case int64:
					out[name+"."+field] = float64(fv)
				case float64:
					out[name+"."+field] = fv
				}
			}
		}
	}
	return out
}

// SortedArgs turns values into alternating key/value arguments in name
// order, ready for a structured logger.
func SortedArgs(values map[string]float64) []any {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]any, 0, 2*len(names))
	for _, name := range names {
		args = append(args, name, values[name])
	}
	return args
}
