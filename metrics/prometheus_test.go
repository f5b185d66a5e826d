package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"prover.proving_ms", "prover_proving_ms"},
		{"collector.pending", "collector_pending"},
		{"a-b c/d", "a_b_c_d"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrometheusCollector_Values(t *testing.T) {
	r := NewRegistry()
	r.Counter("prover.proofs_generated").Add(3)
	r.Gauge("collector.pending").Set(12)
	h := r.Histogram("prover.proving_ms", 10, 100)
	h.Observe(5)
	h.Observe(15)

	pc := NewPrometheusCollector(r, "")
	// counter, gauge, histogram plus min and max.
	if n := testutil.CollectAndCount(pc); n != 5 {
		t.Fatalf("collected %d metrics, want 5", n)
	}

	expected := `
# HELP reml_prover_proofs_generated_total prover.proofs_generated
# TYPE reml_prover_proofs_generated_total counter
reml_prover_proofs_generated_total 3
`
	if err := testutil.CollectAndCompare(pc, strings.NewReader(expected), "reml_prover_proofs_generated_total"); err != nil {
		t.Fatalf("counter export mismatch: %v", err)
	}

	expected = `
# HELP reml_collector_pending collector.pending
# TYPE reml_collector_pending gauge
reml_collector_pending 12
`
	if err := testutil.CollectAndCompare(pc, strings.NewReader(expected), "reml_collector_pending"); err != nil {
		t.Fatalf("gauge export mismatch: %v", err)
	}

	expected = `
# HELP reml_prover_proving_ms prover.proving_ms
# TYPE reml_prover_proving_ms histogram
reml_prover_proving_ms_bucket{le="10"} 1
reml_prover_proving_ms_bucket{le="100"} 2
reml_prover_proving_ms_bucket{le="+Inf"} 2
reml_prover_proving_ms_sum 20
reml_prover_proving_ms_count 2
`
	if err := testutil.CollectAndCompare(pc, strings.NewReader(expected), "reml_prover_proving_ms"); err != nil {
		t.Fatalf("histogram export mismatch: %v", err)
	}
}

func TestPrometheusCollector_LateMetrics(t *testing.T) {
	r := NewRegistry()
	pr := prometheus.NewRegistry()
	if err := pr.Register(NewPrometheusCollector(r, "test")); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Metrics created after registration are still exported.
	r.Counter("late").Inc()
	families, err := pr.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "test_late_total" {
		t.Fatalf("families = %v, want one test_late_total", families)
	}
}

func TestHandler_ServesText(t *testing.T) {
	r := NewRegistry()
	r.Counter("admission.accepted").Add(2)

	srv := httptest.NewServer(Handler(r))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	text := string(body)
	if !strings.Contains(text, "reml_admission_accepted_total 2") {
		t.Fatalf("missing counter in output:\n%s", text)
	}
	if !strings.Contains(text, "go_goroutines") {
		t.Fatal("missing Go runtime metrics")
	}
}
