package metrics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestFlatten(t *testing.T) {
	r := NewRegistry()
	r.Counter("prover.proofs_generated").Add(3)
	r.Gauge("collector.pending").Set(7)
	r.Histogram("prover.proving_ms").Observe(10)
	r.Histogram("prover.proving_ms").Observe(30)
	r.Meter("collector.submissions").Mark(2)

	got := Flatten(r)
	want := map[string]float64{
		"prover.proofs_generated":     3,
		"collector.pending":           7,
		"prover.proving_ms.count":     2,
		"prover.proving_ms.sum":       40,
		"prover.proving_ms.mean":      20,
		"collector.submissions.count": 2,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestSortedArgs(t *testing.T) {
	args := SortedArgs(map[string]float64{"b": 2, "a": 1})
	if len(args) != 4 || args[0] != "a" || args[1] != 1.0 || args[2] != "b" {
		t.Fatalf("args = %v", args)
	}
}

func TestReporterRun(t *testing.T) {
	r := NewRegistry()
	r.Counter("admission.accepted").Inc()

	var mu sync.Mutex
	var reports []map[string]float64
	rep := NewReporter(r, 5*time.Millisecond, func(v map[string]float64) {
		mu.Lock()
		reports = append(reports, v)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	rep.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(reports) < 2 {
		t.Fatalf("reports = %d, want at least 2", len(reports))
	}
	if reports[len(reports)-1]["admission.accepted"] != 1 {
		t.Errorf("final report = %v", reports[len(reports)-1])
	}
}

func TestReporterDisabled(t *testing.T) {
	called := false
	rep := NewReporter(NewRegistry(), 0, func(map[string]float64) { called = true })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep.Run(ctx)
	if called {
		t.Error("disabled reporter should not report")
	}
}
