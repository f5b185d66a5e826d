package pqc

import (
	"crypto/subtle"

	"github.com/tesserax/reml/crypto"
)

// VerifyMLDSA44 reports whether sig is a valid ML-DSA-44 signature by pk over
// msg with an empty context string. It returns false for any malformed key or
// signature and never panics.
func VerifyMLDSA44(pk, msg, sig []byte) bool {
	return CheckMLDSA44(pk, msg, sig) == nil
}

// VerifyMLDSA44Digest verifies a signature over a 32-byte message digest.
func VerifyMLDSA44Digest(digest [32]byte, pk, sig []byte) bool {
	return CheckMLDSA44(pk, digest[:], sig) == nil
}

// CheckMLDSA44 is VerifyMLDSA44 with the rejection reason.
func CheckMLDSA44(pkBytes, msg, sigBytes []byte) error {
	var (
		pk  mldsaPublicKey
		sig mldsaSignature
	)
	if err := pk.decode(pkBytes); err != nil {
		return err
	}
	if err := sig.decode(sigBytes); err != nil {
		return err
	}
	for i := range sig.z {
		if sig.z[i].normExceeds(MLDSAGamma1 - MLDSABeta) {
			return ErrMLDSANormBound
		}
	}

	// mu = H(H(pk, 64) || 0x00 || 0x00 || msg, 64)
	tr := crypto.Shake256Sum(MLDSATrSize, pkBytes)
	mu := crypto.Shake256Sum(MLDSAMuSize, tr, []byte{0, 0}, msg)

	var a [MLDSAK]polyVec
	expandA(&pk.rho, &a)

	var c poly
	sampleInBall(sig.cTilde[:], &c)
	c.ntt()

	z := sig.z
	for i := range z {
		z[i].ntt()
	}

	var w1Packed [MLDSAK * mldsaPolyW1Size]byte
	for r := 0; r < MLDSAK; r++ {
		// A*z
		var w, tmp poly
		for s := 0; s < MLDSAL; s++ {
			tmp.pointwiseMontgomery(&a[r][s], &z[s])
			w.add(&w, &tmp)
		}

		// c*t1*2^d
		t := pk.t1[r]
		t.shiftLeft()
		t.ntt()
		tmp.pointwiseMontgomery(&c, &t)

		w.sub(&w, &tmp)
		w.reduce()
		w.invNTT()
		w.freeze()

		var w1 poly
		for j := range w {
			w1[j] = useHint(w[j], sig.h[r][j])
		}
		w1.packW1(w1Packed[r*mldsaPolyW1Size:])
	}

	cTilde := crypto.Shake256Sum(MLDSACTildeSize, mu, w1Packed[:])
	if subtle.ConstantTimeCompare(cTilde, sig.cTilde[:]) != 1 {
		return ErrMLDSAChallengeMismatch
	}
	return nil
}
