package crypto

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// NewShake128 returns a SHAKE-128 reader that has absorbed the concatenation
// of seed. Reads squeeze an unbounded deterministic byte stream.
func NewShake128(seed ...[]byte) sha3.ShakeHash {
	h := sha3.NewShake128()
	for _, s := range seed {
		h.Write(s)
	}
	return h
}

// NewShake256 returns a SHAKE-256 reader that has absorbed the concatenation
// of seed.
func NewShake256(seed ...[]byte) sha3.ShakeHash {
	h := sha3.NewShake256()
	for _, s := range seed {
		h.Write(s)
	}
	return h
}

// Shake256Sum returns n bytes of SHAKE-256 output over the concatenation of
// data.
func Shake256Sum(n int, data ...[]byte) []byte {
	out := make([]byte, n)
	h := NewShake256(data...)
	h.Read(out)
	return out
}

// Blake2b256 returns the BLAKE2b-256 digest of the concatenation of data.
func Blake2b256(data ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	for _, b := range data {
		h.Write(b)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
