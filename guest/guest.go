// Package guest is the batch-verification program that runs inside the
// zkVM. Run holds the batch logic and is an ordinary pure function; Main
// adapts it to the zkVM input and public-values channels.
package guest

import (
	"errors"
	"fmt"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/crypto/pqc"
)

var (
	ErrNilInput        = errors.New("guest: nil batch input")
	ErrProtocolVersion = errors.New("guest: unsupported protocol version")
	ErrChainTag        = errors.New("guest: chain tag mismatch")
	ErrBatchTooLarge   = errors.New("guest: batch exceeds maximum size")
)

// Outcome classifies the result of one request.
type Outcome uint8

const (
	OutcomeVerified Outcome = iota
	OutcomeMalformed
	OutcomeInvalidSignature
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeInvalidSignature:
		return "invalid-signature"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Observer is told the outcome of every request in input order. It may be
// nil.
type Observer func(req *types.SignatureRequest, outcome Outcome)

// Run verifies every request of the batch and returns the public output.
// Requests with malformed sizes or failing signatures are excluded from the
// verified set; they never fail the batch. Version and chain tag mismatches
// and oversized batches are fatal.
func Run(in *types.BatchInput, observe Observer) (*types.BatchOutput, error) {
	if in == nil {
		return nil, ErrNilInput
	}
	if in.Version != types.ProtocolVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrProtocolVersion, in.Version, types.ProtocolVersion)
	}
	if in.ChainID != types.ChainTag {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChainTag, in.ChainID, types.ChainTag)
	}
	if len(in.Requests) > types.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d requests, limit %d", ErrBatchTooLarge, len(in.Requests), types.MaxBatchSize)
	}

	ids := make([]uint64, 0, len(in.Requests))
	for _, req := range in.Requests {
		outcome := verifyRequest(req)
		if outcome == OutcomeVerified {
			ids = append(ids, req.RequestID)
		}
		if observe != nil {
			observe(req, outcome)
		}
	}
	return types.NewBatchOutput(in.BatchID, ids), nil
}

func verifyRequest(req *types.SignatureRequest) Outcome {
	if req == nil || req.ValidateSizes() != nil {
		return OutcomeMalformed
	}
	if !pqc.VerifyMLDSA44Digest(req.Message, req.PublicKey, req.Signature) {
		return OutcomeInvalidSignature
	}
	return OutcomeVerified
}
