package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tesserax/reml/crypto/pqc"
)

// Fixed ML-DSA-44 encodings carried by a SignatureRequest.
const (
	MLDSAPublicKeySize = pqc.MLDSA44PublicKeySize // 1312
	MLDSASignatureSize = pqc.MLDSA44SignatureSize // 2420

	// requestOverhead covers the 32-byte message and the 8-byte request id.
	requestOverhead = common.HashLength + 8
)

var (
	ErrPublicKeySize = errors.New("types: invalid ML-DSA public key size")
	ErrSignatureSize = errors.New("types: invalid ML-DSA signature size")
)

// SignatureRequest asks for one ML-DSA-44 signature over a 32-byte message
// digest to be verified. Requests are immutable once created.
type SignatureRequest struct {
	Message   common.Hash   `json:"message"`
	PublicKey hexutil.Bytes `json:"public_key"`
	Signature hexutil.Bytes `json:"signature"`
	RequestID uint64        `json:"request_id"`
}

// NewSignatureRequest builds a request.
func NewSignatureRequest(message common.Hash, publicKey, signature []byte, id uint64) *SignatureRequest {
	return &SignatureRequest{
		Message:   message,
		PublicKey: common.CopyBytes(publicKey),
		Signature: common.CopyBytes(signature),
		RequestID: id,
	}
}

// ValidateSizes checks the key and signature lengths. Requests failing this
// check are never handed to the verifier.
func (r *SignatureRequest) ValidateSizes() error {
	if len(r.PublicKey) != MLDSAPublicKeySize {
		return fmt.Errorf("%w: request %d has %d bytes", ErrPublicKeySize, r.RequestID, len(r.PublicKey))
	}
	if len(r.Signature) != MLDSASignatureSize {
		return fmt.Errorf("%w: request %d has %d bytes", ErrSignatureSize, r.RequestID, len(r.Signature))
	}
	return nil
}

// Verify runs ML-DSA-44 verification for the request.
func (r *SignatureRequest) Verify() bool {
	return pqc.VerifyMLDSA44Digest(r.Message, r.PublicKey, r.Signature)
}

// RawSize is the number of bytes the request occupies uncompressed.
func (r *SignatureRequest) RawSize() int {
	return requestOverhead + len(r.PublicKey) + len(r.Signature)
}
