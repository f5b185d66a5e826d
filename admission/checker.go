package admission

import (
	"fmt"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/guest"
	"github.com/tesserax/reml/zkvm"
)

// ProofChecker validates a proof blob against its public values. It runs as
// the last admission check, after replay and root checks passed.
// publicValues is the canonical encoding of sub.PublicValues.
type ProofChecker interface {
	Check(sub *ProofSubmission, publicValues []byte) error
}

// StructuralChecker checks the shape and embedded bindings of a proof
// without verifying its points.
type StructuralChecker struct {
	// MinProofSize is the size floor. Zero uses zkvm.TraceProofSize.
	MinProofSize int
}

// Check implements ProofChecker.
func (c StructuralChecker) Check(sub *ProofSubmission, publicValues []byte) error {
	floor := c.MinProofSize
	if floor == 0 {
		floor = zkvm.TraceProofSize
	}
	if len(sub.Proof) < floor {
		return fmt.Errorf("%w: %d bytes, need %d", ErrProofTooSmall, len(sub.Proof), floor)
	}
	header, err := zkvm.ParseProofHeader(sub.Proof)
	if err != nil {
		return err
	}
	if header.VKeyCommitment != zkvm.VKeyCommitment(sub.VKeyHash) {
		return zkvm.ErrProofVKeyBinding
	}
	if header.ValuesCommitment != zkvm.PublicValuesCommitment(publicValues) {
		return zkvm.ErrProofValuesBinding
	}
	return checkCount(sub.PublicValues)
}

// BackendChecker verifies proofs with the zkvm verifier against the
// verification key of the batch verification guest.
type BackendChecker struct {
	vk *zkvm.VerificationKey
}

// NewBackendChecker sets up the verification key of the guest program.
func NewBackendChecker() (*BackendChecker, error) {
	_, vk, err := zkvm.Setup(guest.Program())
	if err != nil {
		return nil, fmt.Errorf("admission: setup: %w", err)
	}
	return &BackendChecker{vk: vk}, nil
}

// Check implements ProofChecker.
func (c *BackendChecker) Check(sub *ProofSubmission, publicValues []byte) error {
	if err := checkCount(sub.PublicValues); err != nil {
		return err
	}
	ok, err := zkvm.VerifyProof(c.vk, &zkvm.Proof{Data: sub.Proof, PublicValues: publicValues})
	if err != nil {
		return err
	}
	if !ok {
		return zkvm.ErrProofInvalid
	}
	return nil
}

func checkCount(out *types.BatchOutput) error {
	if out.VerifiedCount == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidPublicValues)
	}
	if int(out.VerifiedCount) != len(out.VerifiedRequestIDs) {
		return fmt.Errorf("%w: %w", ErrInvalidPublicValues, types.ErrCountMismatch)
	}
	return nil
}
