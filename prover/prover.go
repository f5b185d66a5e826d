// Package prover drives the batch-verification guest through a zkVM proof
// backend. It turns a batch of signature requests into a proof bundle, checks
// bundles locally and handles the bundle and request file formats.
package prover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/guest"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/metrics"
	"github.com/tesserax/reml/zkvm"
)

// Prover errors.
var (
	ErrInputRead            = errors.New("prover: failed to read input")
	ErrInputParse           = errors.New("prover: failed to parse input")
	ErrSerialize            = errors.New("prover: failed to serialize")
	ErrOutputWrite          = errors.New("prover: failed to write output")
	ErrProverExecution      = errors.New("prover: proof generation failed")
	ErrVKeyMismatch         = errors.New("prover: verification key hash mismatch")
	ErrProofInvalid         = errors.New("prover: proof verification failed")
	ErrPublicValuesMismatch = errors.New("prover: public values mismatch")
	ErrNilBundle            = errors.New("prover: nil proof bundle")
)

// Config configures a Prover.
type Config struct {
	// Mock selects the mock backend: fast, header-only proofs that are not
	// accepted on-chain.
	Mock bool

	// Logger receives progress logs. Nil uses the default logger.
	Logger *log.Logger

	// Now returns the bundle generation time. Nil uses time.Now.
	Now func() time.Time
}

// Prover holds the keys of the guest program and a proof backend. It is safe
// for concurrent use.
type Prover struct {
	backend zkvm.ProverBackend
	pk      *zkvm.ProvingKey
	vk      *zkvm.VerificationKey
	log     *log.Logger
	now     func() time.Time
}

// New sets up the guest program keys for the configured backend.
func New(cfg Config) (*Prover, error) {
	pk, vk, err := zkvm.Setup(guest.Program())
	if err != nil {
		return nil, fmt.Errorf("prover: setup: %w", err)
	}
	var backend zkvm.ProverBackend = zkvm.TraceBackend{}
	if cfg.Mock {
		backend = zkvm.MockBackend{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Prover{
		backend: backend,
		pk:      pk,
		vk:      vk,
		log:     logger.Module("prover").With("backend", backend.Name()),
		now:     now,
	}, nil
}

// VKeyHash returns the verifier key hash of the guest program.
func (p *Prover) VKeyHash() common.Hash { return p.vk.Hash() }

// Backend returns the name of the proof backend in use.
func (p *Prover) Backend() string { return p.backend.Name() }

// Prove runs the guest on in and returns the proof bundle. A guest failure
// produces no bundle.
func (p *Prover) Prove(ctx context.Context, in *types.BatchInput) (*types.ProofBundle, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil batch input", ErrInputParse)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input, err := in.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: batch input: %w", ErrSerialize, err)
	}

	p.log.Info("generating proof", "batch", in.BatchID, "requests", in.BatchSize())
	start := p.now()
	proof, err := p.backend.Prove(p.pk, input)
	metrics.ProvingTime.ObserveDuration(p.now().Sub(start))
	if err != nil {
		metrics.ProofsFailed.Inc()
		p.log.Warn("proof generation failed", "batch", in.BatchID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrProverExecution, err)
	}

	out, err := types.DecodeBatchOutput(proof.PublicValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublicValuesMismatch, err)
	}
	if out.BatchID != in.BatchID {
		return nil, fmt.Errorf("%w: batch id %d, want %d", ErrPublicValuesMismatch, out.BatchID, in.BatchID)
	}

	bundle := &types.ProofBundle{
		Proof:       proof.Data,
		Output:      out,
		VKeyHash:    p.vk.Hash(),
		GeneratedAt: uint64(start.Unix()),
	}

	metrics.ProofsGenerated.Inc()
	metrics.ProofSize.Observe(float64(bundle.ProofSize()))
	metrics.SignaturesVerified.Add(int64(out.VerifiedCount))
	metrics.SignaturesRejected.Add(int64(in.BatchSize()) - int64(out.VerifiedCount))
	metrics.SignatureThroughput.Mark(int64(in.BatchSize()))

	p.log.Info("proof generated",
		"batch", out.BatchID,
		"verified", out.VerifiedCount,
		"rejected", in.BatchSize()-int(out.VerifiedCount),
		"root", out.RequestsRoot.Hex(),
		"proof_bytes", bundle.ProofSize(),
		"compression", fmt.Sprintf("%.1fx", bundle.CompressionRatio()),
	)
	return bundle, nil
}

// Verify checks a bundle locally: the verifier key hash must be this
// program's and the proof must verify against the bundle's public output.
func (p *Prover) Verify(bundle *types.ProofBundle) error {
	if bundle == nil || bundle.Output == nil {
		return ErrNilBundle
	}
	if bundle.VKeyHash != p.vk.Hash() {
		return fmt.Errorf("%w: bundle %s, program %s", ErrVKeyMismatch, bundle.VKeyHash.Hex(), p.vk.Hash().Hex())
	}
	if err := bundle.Output.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublicValuesMismatch, err)
	}
	pv, err := bundle.Output.Encode()
	if err != nil {
		return fmt.Errorf("%w: public values: %w", ErrSerialize, err)
	}

	ok, err := p.backend.Verify(p.vk, &zkvm.Proof{Data: bundle.Proof, PublicValues: pv})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofInvalid, err)
	}
	if !ok {
		return ErrProofInvalid
	}
	p.log.Debug("proof verified", "batch", bundle.Output.BatchID, "verified", bundle.Output.VerifiedCount)
	return nil
}
