package zkvm

import (
	"errors"
	"fmt"
)

// Verification errors.
var (
	ErrNilVerificationKey = errors.New("zkvm: nil verification key")
	ErrNilProof           = errors.New("zkvm: nil proof")
	ErrEmptyProofData     = errors.New("zkvm: empty proof data")
	ErrMockProof          = errors.New("zkvm: mock proof not accepted")
)

// BackendByName returns the prover backend with the given name.
func BackendByName(name string) (ProverBackend, error) {
	switch name {
	case "trace", "":
		return TraceBackend{}, nil
	case "mock":
		return MockBackend{}, nil
	default:
		return nil, fmt.Errorf("zkvm: unknown backend %q", name)
	}
}

// VerifyProof validates a production proof against a verification key,
// dispatching on the proof version byte. Mock proofs are refused.
func VerifyProof(vk *VerificationKey, proof *Proof) (bool, error) {
	if vk == nil {
		return false, ErrNilVerificationKey
	}
	if proof == nil {
		return false, ErrNilProof
	}
	if len(proof.Data) == 0 {
		return false, ErrEmptyProofData
	}
	switch proof.Data[0] {
	case ProofVersionTrace:
		return TraceBackend{}.Verify(vk, proof)
	case ProofVersionMock:
		return false, ErrMockProof
	default:
		return false, ErrProofBadVersion
	}
}
