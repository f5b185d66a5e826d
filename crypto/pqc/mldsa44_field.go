package pqc

// poly is a ring element with coefficients in signed int32 representation.
type poly [MLDSAN]int32

// polyVec holds K (equivalently L, both are 4 here) ring elements.
type polyVec [MLDSAK]poly

// montgomeryReduce returns r = a * 2^-32 mod q with -q < r < q for
// |a| <= 2^31 * q.
func montgomeryReduce(a int64) int32 {
	t := int32(a) * mldsaQInv
	return int32((a - int64(t)*MLDSAQ) >> 32)
}

// reduce32 returns r = a mod q with -6283009 <= r <= 6283007.
func reduce32(a int32) int32 {
	t := (a + (1 << 22)) >> 23
	return a - t*MLDSAQ
}

// caddq adds q if a is negative.
func caddq(a int32) int32 {
	return a + ((a >> 31) & MLDSAQ)
}

// freeze returns the standard representative of a in [0, q).
func freeze(a int32) int32 {
	return caddq(reduce32(a))
}

func (p *poly) add(a, b *poly) {
	for i := range p {
		p[i] = a[i] + b[i]
	}
}

func (p *poly) sub(a, b *poly) {
	for i := range p {
		p[i] = a[i] - b[i]
	}
}

func (p *poly) reduce() {
	for i := range p {
		p[i] = reduce32(p[i])
	}
}

func (p *poly) freeze() {
	for i := range p {
		p[i] = freeze(p[i])
	}
}

// shiftLeft multiplies every coefficient by 2^d.
func (p *poly) shiftLeft() {
	for i := range p {
		p[i] <<= MLDSAD
	}
}

// pointwiseMontgomery sets p = a o b * 2^-32 for NTT-domain inputs.
func (p *poly) pointwiseMontgomery(a, b *poly) {
	for i := range p {
		p[i] = montgomeryReduce(int64(a[i]) * int64(b[i]))
	}
}

// normExceeds reports whether any centered coefficient has |c| >= bound.
// Coefficients must already be reduced to (-q/2, q/2].
func (p *poly) normExceeds(bound int32) bool {
	for _, c := range p {
		if c < 0 {
			c = -c
		}
		if c >= bound {
			return true
		}
	}
	return false
}
