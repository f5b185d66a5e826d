// Package admission is the on-chain proof-admission state machine. It keeps
// the aggregator registry, admits batch proofs after an ordered series of
// checks, guards against replay and records every verified request id for
// constant-time lookups. All state lives in a rawdb.Database.
package admission

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tesserax/reml/core/types"
)

// AggregatorInfo is the registry record of an aggregator. Records are never
// deleted; deactivation clears Active.
type AggregatorInfo struct {
	RegisteredAt    uint64
	ProofsSubmitted uint64
	Active          bool
}

// BatchRecord is written once per admitted batch id.
type BatchRecord struct {
	Aggregator      common.Address
	VerifiedAt      uint64
	SignatureCount  uint32
	RequestsRoot    common.Hash
	ProofCommitment common.Hash
}

// VerificationInfo records the batch and block that first admitted a
// request id.
type VerificationInfo struct {
	BatchID uint64
	Block   uint64
}

// BatchInfo is the public view of a batch. Unknown batches yield the zero
// value.
type BatchInfo struct {
	RequestsRoot   common.Hash
	SignatureCount uint32
	VerifiedAt     uint64
}

// ProofSubmission is the payload of SubmitProof.
type ProofSubmission struct {
	BatchID      uint64
	Proof        []byte
	PublicValues *types.BatchOutput
	VKeyHash     common.Hash
}

// SubmissionFromBundle builds the submission for a prover bundle.
func SubmissionFromBundle(b *types.ProofBundle) *ProofSubmission {
	sub := &ProofSubmission{
		Proof:        common.CopyBytes(b.Proof),
		PublicValues: b.Output,
		VKeyHash:     b.VKeyHash,
	}
	if b.Output != nil {
		sub.BatchID = b.Output.BatchID
	}
	return sub
}

// Origin is the dispatch origin of a call: the privileged root or a signed
// account.
type Origin struct {
	root    bool
	signed  bool
	account common.Address
}

// Root returns the privileged origin.
func Root() Origin { return Origin{root: true} }

// Signed returns the origin of a call signed by account.
func Signed(account common.Address) Origin {
	return Origin{signed: true, account: account}
}

// None returns an unsigned, unprivileged origin.
func None() Origin { return Origin{} }

// IsRoot reports whether o is the privileged origin.
func (o Origin) IsRoot() bool { return o.root }

// Account returns the signer of a signed origin.
func (o Origin) Account() (common.Address, bool) { return o.account, o.signed }

func (o Origin) String() string {
	switch {
	case o.root:
		return "root"
	case o.signed:
		return "signed(" + o.account.Hex() + ")"
	default:
		return "none"
	}
}

func encodeRecord(v interface{}) ([]byte, error) {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, fmt.Errorf("admission: encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte, v interface{}) error {
	if err := rlp.DecodeBytes(data, v); err != nil {
		return fmt.Errorf("admission: decode record: %w", err)
	}
	return nil
}
