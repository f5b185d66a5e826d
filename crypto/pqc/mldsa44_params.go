// Package pqc implements verification for the ML-DSA-44 signature scheme
// (FIPS 204, the Dilithium2 parameter set) over the ring Z_q[X]/(X^256+1).
//
// The verifier is pure and deterministic: it never spawns goroutines, never
// panics on malformed input and never allocates proportionally to its input
// beyond the fixed-size key and signature decodings. It is run inside the
// guest program for every request of a batch.
package pqc

import "errors"

// ML-DSA-44 parameter set per FIPS 204 table 1.
const (
	MLDSAN      = 256     // polynomial degree
	MLDSAQ      = 8380417 // prime modulus 2^23 - 2^13 + 1
	MLDSAD      = 13      // dropped bits of t
	MLDSAK      = 4       // rows of A
	MLDSAL      = 4       // columns of A
	MLDSAEta    = 2       // secret coefficient bound
	MLDSATau    = 39      // +/-1 coefficients in the challenge
	MLDSABeta   = MLDSATau * MLDSAEta
	MLDSAGamma1 = 1 << 17 // masking range
	MLDSAGamma2 = (MLDSAQ - 1) / 88
	MLDSAOmega  = 80 // maximum hint weight
)

// Encoded sizes in bytes.
const (
	MLDSASeedSize        = 32
	MLDSACTildeSize      = 32
	MLDSATrSize          = 64
	MLDSAMuSize          = 64
	mldsaPolyT1Size      = MLDSAN * 10 / 8 // 320
	mldsaPolyZSize       = MLDSAN * 18 / 8 // 576
	mldsaPolyW1Size      = MLDSAN * 6 / 8  // 192
	MLDSA44PublicKeySize = MLDSASeedSize + MLDSAK*mldsaPolyT1Size
	MLDSA44SignatureSize = MLDSACTildeSize + MLDSAL*mldsaPolyZSize + MLDSAOmega + MLDSAK
)

// Montgomery arithmetic constants. mldsaQInv is q^-1 mod 2^32; mldsaMont is
// 2^32 mod q; mldsaInvNTTScale is mont^2/256 mod q.
const (
	mldsaQInv        = 58728449
	mldsaMont        = 4193792
	mldsaInvNTTScale = 41978
	mldsaRootOfUnity = 1753
)

// Verification failure reasons reported by CheckMLDSA44.
var (
	ErrMLDSAPublicKeySize     = errors.New("mldsa44: invalid public key size")
	ErrMLDSASignatureSize     = errors.New("mldsa44: invalid signature size")
	ErrMLDSAMalformedHint     = errors.New("mldsa44: malformed hint encoding")
	ErrMLDSANormBound         = errors.New("mldsa44: response exceeds norm bound")
	ErrMLDSAChallengeMismatch = errors.New("mldsa44: challenge mismatch")
)
