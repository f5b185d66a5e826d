package pqc

// unpackBits decodes len(out) little-endian values of width bits from buf.
// buf must hold at least len(out)*bits/8 bytes.
func unpackBits(buf []byte, bits uint, out []int32) {
	var acc uint64
	var have uint
	pos := 0
	mask := uint64(1)<<bits - 1
	for i := range out {
		for have < bits {
			acc |= uint64(buf[pos]) << have
			pos++
			have += 8
		}
		out[i] = int32(acc & mask)
		acc >>= bits
		have -= bits
	}
}

// unpackT1 decodes a 10-bit packed t1 polynomial.
func (p *poly) unpackT1(buf []byte) {
	unpackBits(buf[:mldsaPolyT1Size], 10, p[:])
}

// unpackZ decodes an 18-bit packed response polynomial. Each stored value v
// encodes the coefficient gamma1 - v.
func (p *poly) unpackZ(buf []byte) {
	unpackBits(buf[:mldsaPolyZSize], 18, p[:])
	for i := range p {
		p[i] = MLDSAGamma1 - p[i]
	}
}

// packW1 encodes a w1 polynomial with coefficients in [0, 43] at 6 bits each.
func (p *poly) packW1(out []byte) {
	for i := 0; i < MLDSAN/4; i++ {
		out[3*i+0] = byte(p[4*i+0]) | byte(p[4*i+1]<<6)
		out[3*i+1] = byte(p[4*i+1]>>2) | byte(p[4*i+2]<<4)
		out[3*i+2] = byte(p[4*i+2]>>4) | byte(p[4*i+3]<<2)
	}
}

// unpackHint decodes the hint vector. Indices must be strictly increasing
// inside each polynomial, cumulative counts must be non-decreasing and at
// most omega, and unused index slots must be zero.
func unpackHint(buf []byte, h *polyVec) bool {
	k := 0
	for i := 0; i < MLDSAK; i++ {
		end := int(buf[MLDSAOmega+i])
		if end < k || end > MLDSAOmega {
			return false
		}
		for j := k; j < end; j++ {
			if j > k && buf[j] <= buf[j-1] {
				return false
			}
			h[i][buf[j]] = 1
		}
		k = end
	}
	for j := k; j < MLDSAOmega; j++ {
		if buf[j] != 0 {
			return false
		}
	}
	return true
}

type mldsaPublicKey struct {
	rho [MLDSASeedSize]byte
	t1  polyVec
}

type mldsaSignature struct {
	cTilde [MLDSACTildeSize]byte
	z      polyVec
	h      polyVec
}

func (pk *mldsaPublicKey) decode(buf []byte) error {
	if len(buf) != MLDSA44PublicKeySize {
		return ErrMLDSAPublicKeySize
	}
	copy(pk.rho[:], buf[:MLDSASeedSize])
	off := MLDSASeedSize
	for i := range pk.t1 {
		pk.t1[i].unpackT1(buf[off:])
		off += mldsaPolyT1Size
	}
	return nil
}

func (sig *mldsaSignature) decode(buf []byte) error {
	if len(buf) != MLDSA44SignatureSize {
		return ErrMLDSASignatureSize
	}
	copy(sig.cTilde[:], buf[:MLDSACTildeSize])
	off := MLDSACTildeSize
	for i := range sig.z {
		sig.z[i].unpackZ(buf[off:])
		off += mldsaPolyZSize
	}
	if !unpackHint(buf[off:], &sig.h) {
		return ErrMLDSAMalformedHint
	}
	return nil
}
