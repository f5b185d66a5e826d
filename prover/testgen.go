package prover

import (
	"encoding/binary"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/crypto"
)

// TestSigner is a deterministic ML-DSA-44 key pair for test batches. The key
// for a given index is the same on every run.
type TestSigner struct {
	PublicKey []byte
	priv      *mldsa44.PrivateKey
}

// NewTestSigner derives the key pair for index.
func NewTestSigner(index uint64) *TestSigner {
	var seed [mldsa44.SeedSize]byte
	copy(seed[:], crypto.Keccak256([]byte("reml-test-signer"), binary.LittleEndian.AppendUint64(nil, index)))
	pub, priv := mldsa44.NewKeyFromSeed(&seed)
	pk, err := pub.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("prover: marshal test key: %v", err))
	}
	return &TestSigner{PublicKey: pk, priv: priv}
}

// Sign returns the deterministic ML-DSA-44 signature over the digest.
func (s *TestSigner) Sign(digest common.Hash) []byte {
	sig := make([]byte, mldsa44.SignatureSize)
	if err := mldsa44.SignTo(s.priv, digest[:], nil, false, sig); err != nil {
		panic(fmt.Sprintf("prover: sign: %v", err))
	}
	return sig
}

// Request builds a signed request for digest.
func (s *TestSigner) Request(digest common.Hash, id uint64) *types.SignatureRequest {
	return types.NewSignatureRequest(digest, s.PublicKey, s.Sign(digest), id)
}

// TestBatchMessage is the simulated transaction digest of request i: the
// little-endian index followed by a fixed byte pattern.
func TestBatchMessage(i uint64) common.Hash {
	var msg common.Hash
	binary.LittleEndian.PutUint64(msg[:8], i)
	for j := 8; j < common.HashLength; j++ {
		msg[j] = byte((i*7 + uint64(j)*13) % 256)
	}
	return msg
}

// CorruptSignature returns a copy of sig with its first byte inverted.
func CorruptSignature(sig []byte) []byte {
	out := common.CopyBytes(sig)
	if len(out) > 0 {
		out[0] ^= 0xff
	}
	return out
}

// GenerateTestBatch signs count requests with IDs 0..count-1, one key per
// request. With includeInvalid the first count/10 signatures are corrupted.
func GenerateTestBatch(count int, includeInvalid bool) []*types.SignatureRequest {
	invalid := 0
	if includeInvalid {
		invalid = count / 10
	}
	reqs := make([]*types.SignatureRequest, 0, count)
	for i := 0; i < count; i++ {
		id := uint64(i)
		req := NewTestSigner(id).Request(TestBatchMessage(id), id)
		if i < invalid {
			req.Signature = CorruptSignature(req.Signature)
		}
		reqs = append(reqs, req)
	}
	return reqs
}
