package pqc

// mldsaZetas holds 2^32 * 1753^brv8(k) mod q in centered form, the twiddle
// factors of the negacyclic NTT in Montgomery representation.
var mldsaZetas [MLDSAN]int32

func init() {
	for k := 0; k < MLDSAN; k++ {
		z := powModQ(mldsaRootOfUnity, uint(bitReverse8(k)))
		z = z * mldsaMont % MLDSAQ
		if z > MLDSAQ/2 {
			z -= MLDSAQ
		}
		mldsaZetas[k] = int32(z)
	}
}

func bitReverse8(x int) int {
	var r int
	for i := 0; i < 8; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

func powModQ(base int64, exp uint) int64 {
	result := int64(1)
	base %= MLDSAQ
	for exp > 0 {
		if exp&1 == 1 {
			result = result * base % MLDSAQ
		}
		base = base * base % MLDSAQ
		exp >>= 1
	}
	return result
}

// ntt transforms p in place into the NTT domain. Output coefficients are
// bounded by 9q in absolute value for inputs bounded by q.
func (p *poly) ntt() {
	k := 0
	for length := 128; length > 0; length >>= 1 {
		for start := 0; start < MLDSAN; start += 2 * length {
			k++
			zeta := int64(mldsaZetas[k])
			for j := start; j < start+length; j++ {
				t := montgomeryReduce(zeta * int64(p[j+length]))
				p[j+length] = p[j] - t
				p[j] = p[j] + t
			}
		}
	}
}

// invNTT transforms p in place back to the coefficient domain and multiplies
// by 2^32. Output coefficients lie in (-q, q).
func (p *poly) invNTT() {
	k := MLDSAN
	for length := 1; length < MLDSAN; length <<= 1 {
		for start := 0; start < MLDSAN; start += 2 * length {
			k--
			zeta := -int64(mldsaZetas[k])
			for j := start; j < start+length; j++ {
				t := p[j]
				p[j] = reduce32(t + p[j+length])
				p[j+length] = montgomeryReduce(zeta * int64(t-p[j+length]))
			}
		}
	}
	for j := range p {
		p[j] = montgomeryReduce(mldsaInvNTTScale * int64(p[j]))
	}
}
