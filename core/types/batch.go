package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tesserax/reml/crypto"
)

// Protocol constants shared by the guest, the prover and admission.
const (
	ProtocolVersion uint8  = 1
	ChainTag        uint32 = 13817
	MaxBatchSize           = 256
)

var (
	ErrCountMismatch = errors.New("types: verified count does not match id list")
	ErrRootMismatch  = errors.New("types: requests root does not match id list")
)

// BatchInput is the public input of the guest program.
type BatchInput struct {
	Version  uint8
	ChainID  uint32
	BatchID  uint64
	Requests []*SignatureRequest
}

// NewBatchInput wraps requests with the current protocol version and chain tag.
func NewBatchInput(requests []*SignatureRequest, batchID uint64) *BatchInput {
	return &BatchInput{
		Version:  ProtocolVersion,
		ChainID:  ChainTag,
		BatchID:  batchID,
		Requests: requests,
	}
}

// BatchSize returns the number of requests in the batch.
func (in *BatchInput) BatchSize() int { return len(in.Requests) }

// RawSize returns the total uncompressed size of all requests.
func (in *BatchInput) RawSize() int {
	total := 0
	for _, r := range in.Requests {
		total += r.RawSize()
	}
	return total
}

// Encode serializes the input for the zkVM input channel.
func (in *BatchInput) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(in)
}

// DecodeBatchInput parses an RLP-encoded BatchInput.
func DecodeBatchInput(data []byte) (*BatchInput, error) {
	in := new(BatchInput)
	if err := rlp.DecodeBytes(data, in); err != nil {
		return nil, fmt.Errorf("types: decode batch input: %w", err)
	}
	return in, nil
}

// BatchOutput is the public output committed by the guest program.
type BatchOutput struct {
	Version            uint8       `json:"version"`
	ChainID            uint32      `json:"chain_id"`
	BatchID            uint64      `json:"batch_id"`
	VerifiedCount      uint32      `json:"verified_count"`
	RequestsRoot       common.Hash `json:"requests_root"`
	VerifiedRequestIDs []uint64    `json:"verified_request_ids"`
}

// NewBatchOutput builds an output for the verified ids, computing the count
// and the requests root.
func NewBatchOutput(batchID uint64, ids []uint64) *BatchOutput {
	if ids == nil {
		ids = []uint64{}
	}
	return &BatchOutput{
		Version:            ProtocolVersion,
		ChainID:            ChainTag,
		BatchID:            batchID,
		VerifiedCount:      uint32(len(ids)),
		RequestsRoot:       crypto.RequestsRoot(ids),
		VerifiedRequestIDs: ids,
	}
}

// Validate checks the count and root against the id list.
func (out *BatchOutput) Validate() error {
	if int(out.VerifiedCount) != len(out.VerifiedRequestIDs) {
		return fmt.Errorf("%w: count %d, ids %d", ErrCountMismatch, out.VerifiedCount, len(out.VerifiedRequestIDs))
	}
	if root := crypto.RequestsRoot(out.VerifiedRequestIDs); root != out.RequestsRoot {
		return fmt.Errorf("%w: claimed %s, computed %s", ErrRootMismatch, out.RequestsRoot, root)
	}
	return nil
}

// Encode serializes the output for the zkVM public values region.
func (out *BatchOutput) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(out)
}

// DecodeBatchOutput parses RLP-encoded public values.
func DecodeBatchOutput(data []byte) (*BatchOutput, error) {
	out := new(BatchOutput)
	if err := rlp.DecodeBytes(data, out); err != nil {
		return nil, fmt.Errorf("types: decode batch output: %w", err)
	}
	if out.VerifiedRequestIDs == nil {
		out.VerifiedRequestIDs = []uint64{}
	}
	return out, nil
}
