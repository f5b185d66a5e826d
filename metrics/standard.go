package metrics

// Pre-defined metrics for the prover, collector and admission components. All
// metrics live in DefaultRegistry so they are globally accessible without
// passing a registry around.

var (
	// ---- Prover metrics ----

	// ProofsGenerated counts proof bundles produced by the proving core.
	ProofsGenerated = DefaultRegistry.Counter("prover.proofs_generated")
	// ProofsFailed counts proving attempts that aborted.
	ProofsFailed = DefaultRegistry.Counter("prover.proofs_failed")
	// ProvingTime records end-to-end proving duration in milliseconds.
	ProvingTime = DefaultRegistry.Histogram("prover.proving_ms")
	// SignaturesVerified counts requests whose signature verified in the guest.
	SignaturesVerified = DefaultRegistry.Counter("prover.signatures_verified")
	// SignaturesRejected counts requests excluded from a batch output.
	SignaturesRejected = DefaultRegistry.Counter("prover.signatures_rejected")
	// ProofSize records the size of generated proofs in bytes.
	ProofSize = DefaultRegistry.Histogram("prover.proof_bytes", 256, 512, 1024, 4096, 16384, 65536, 102400)
	// SignatureThroughput meters requests run through the guest.
	SignatureThroughput = DefaultRegistry.Meter("prover.signature_throughput")

	// ---- Collector metrics ----

	// CollectorPending tracks requests buffered and not yet in a batch.
	CollectorPending = DefaultRegistry.Gauge("collector.pending")
	// CollectorQueued tracks closed batches waiting for a proving worker.
	CollectorQueued = DefaultRegistry.Gauge("collector.queued")
	// CollectorSubmitted counts accepted submissions.
	CollectorSubmitted = DefaultRegistry.Counter("collector.submitted")
	// CollectorRefused counts submissions refused for malformed input or
	// backpressure.
	CollectorRefused = DefaultRegistry.Counter("collector.refused")
	// CollectorBatches counts batches closed by the collector.
	CollectorBatches = DefaultRegistry.Counter("collector.batches")
	// CollectorSubmitRate meters accepted submissions.
	CollectorSubmitRate = DefaultRegistry.Meter("collector.submissions")

	// ---- Admission metrics ----

	// AdmissionAccepted counts accepted proof submissions.
	AdmissionAccepted = DefaultRegistry.Counter("admission.accepted")
	// AdmissionRejected counts rejected proof submissions.
	AdmissionRejected = DefaultRegistry.Counter("admission.rejected")
	// AdmissionRecorded counts request IDs newly recorded as verified.
	AdmissionRecorded = DefaultRegistry.Counter("admission.requests_recorded")
)
