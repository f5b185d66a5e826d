package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProofBundle is the prover's deliverable: a proof, the public values it
// attests to and the hash of the verification key that checks it.
type ProofBundle struct {
	Proof       hexutil.Bytes `json:"proof"`
	Output      *BatchOutput  `json:"output"`
	VKeyHash    common.Hash   `json:"vkey_hash"`
	GeneratedAt uint64        `json:"generated_at"`
}

// ProofSize returns the proof length in bytes.
func (b *ProofBundle) ProofSize() int { return len(b.Proof) }

// CompressionRatio compares the raw size of the verified signatures (message,
// public key and signature each) with the size of the proof replacing them.
func (b *ProofBundle) CompressionRatio() float64 {
	if len(b.Proof) == 0 || b.Output == nil {
		return 0
	}
	raw := int(b.Output.VerifiedCount) * (common.HashLength + MLDSAPublicKeySize + MLDSASignatureSize)
	return float64(raw) / float64(len(b.Proof))
}
