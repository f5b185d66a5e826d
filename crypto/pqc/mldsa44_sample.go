package pqc

import (
	"encoding/binary"

	"github.com/tesserax/reml/crypto"
)

// expandA samples the public matrix directly in the NTT domain. Entry (r, s)
// is drawn by rejection sampling 23-bit values below q from
// SHAKE128(rho || s || r).
func expandA(rho *[MLDSASeedSize]byte, a *[MLDSAK]polyVec) {
	for r := 0; r < MLDSAK; r++ {
		for s := 0; s < MLDSAL; s++ {
			xof := crypto.NewShake128(rho[:], []byte{byte(s), byte(r)})
			var buf [3 * 56]byte
			n := 0
			for n < MLDSAN {
				xof.Read(buf[:])
				for i := 0; i+3 <= len(buf) && n < MLDSAN; i += 3 {
					t := uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2]&0x7f)<<16
					if t < MLDSAQ {
						a[r][s][n] = int32(t)
						n++
					}
				}
			}
		}
	}
}

// sampleInBall derives the challenge polynomial with exactly tau
// coefficients in {-1, 1} from cTilde.
func sampleInBall(cTilde []byte, c *poly) {
	xof := crypto.NewShake256(cTilde)
	var buf [8]byte
	xof.Read(buf[:])
	signs := binary.LittleEndian.Uint64(buf[:])

	*c = poly{}
	var b [1]byte
	for i := MLDSAN - MLDSATau; i < MLDSAN; i++ {
		for {
			xof.Read(b[:])
			if int(b[0]) <= i {
				break
			}
		}
		j := int(b[0])
		c[i] = c[j]
		c[j] = 1 - 2*int32(signs&1)
		signs >>= 1
	}
}

// decompose splits r in [0, q) into r1*2*gamma2 + r0 with r0 in
// (-gamma2, gamma2], folding the top residue class into r1 = 0.
func decompose(r int32) (r1, r0 int32) {
	r0 = r % (2 * MLDSAGamma2)
	if r0 > MLDSAGamma2 {
		r0 -= 2 * MLDSAGamma2
	}
	if r-r0 == MLDSAQ-1 {
		return 0, r0 - 1
	}
	return (r - r0) / (2 * MLDSAGamma2), r0
}

// useHint recovers the high bits of r adjusted by the hint bit h.
func useHint(r, h int32) int32 {
	const m = (MLDSAQ - 1) / (2 * MLDSAGamma2) // 44
	r1, r0 := decompose(r)
	if h == 0 {
		return r1
	}
	if r0 > 0 {
		if r1 == m-1 {
			return 0
		}
		return r1 + 1
	}
	if r1 == 0 {
		return m - 1
	}
	return r1 - 1
}
