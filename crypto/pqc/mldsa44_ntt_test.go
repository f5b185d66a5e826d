package pqc

import (
	"math/big"
	"math/rand"
	"testing"
)

func randomPoly(rng *rand.Rand) poly {
	var p poly
	for i := range p {
		p[i] = int32(rng.Intn(MLDSAQ))
	}
	return p
}

func TestMLDSAZetas(t *testing.T) {
	if mldsaZetas[1] != 25847 {
		t.Fatalf("zetas[1] = %d, want 25847", mldsaZetas[1])
	}
	for k, z := range mldsaZetas {
		if z <= -MLDSAQ/2 || z > MLDSAQ/2 {
			t.Fatalf("zetas[%d] = %d not centered", k, z)
		}
	}
}

func TestMLDSAMontgomeryConstants(t *testing.T) {
	q := big.NewInt(MLDSAQ)
	two32 := new(big.Int).Lsh(big.NewInt(1), 32)

	if got := new(big.Int).Mod(two32, q).Int64(); got != mldsaMont {
		t.Fatalf("mont = %d, want %d", mldsaMont, got)
	}
	// q * qinv == 1 mod 2^32
	prod := new(big.Int).Mul(q, big.NewInt(mldsaQInv))
	if new(big.Int).Mod(prod, two32).Int64() != 1 {
		t.Fatal("qinv is not the inverse of q mod 2^32")
	}
	// mont^2 / 256 == 2^56 mod q
	f := new(big.Int).Exp(big.NewInt(2), big.NewInt(56), q).Int64()
	if f != mldsaInvNTTScale {
		t.Fatalf("inverse NTT scale = %d, want %d", mldsaInvNTTScale, f)
	}
}

func TestMontgomeryReduce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a := int64(rng.Intn(MLDSAQ)) * int64(rng.Intn(MLDSAQ))
		r := montgomeryReduce(a)
		if r <= -MLDSAQ || r >= MLDSAQ {
			t.Fatalf("montgomeryReduce(%d) = %d out of range", a, r)
		}
		// r * 2^32 == a mod q
		got := (int64(r)%MLDSAQ + MLDSAQ) % MLDSAQ * mldsaMont % MLDSAQ
		if got != a%MLDSAQ {
			t.Fatalf("montgomeryReduce(%d): r*2^32 = %d, want %d", a, got, a%MLDSAQ)
		}
	}
}

func TestNTTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := randomPoly(rng)
	b := a
	b.ntt()
	b.invNTT()
	b.freeze()
	for i := range a {
		// invNTT leaves a factor of 2^32.
		want := int32(int64(a[i]) * mldsaMont % MLDSAQ)
		if b[i] != want {
			t.Fatalf("coeff %d = %d, want %d", i, b[i], want)
		}
	}
}

// schoolbook multiplies in Z_q[X]/(X^256+1).
func schoolbook(a, b *poly) poly {
	var acc [MLDSAN]int64
	for i := 0; i < MLDSAN; i++ {
		for j := 0; j < MLDSAN; j++ {
			prod := int64(a[i]) * int64(b[j]) % MLDSAQ
			if i+j < MLDSAN {
				acc[i+j] += prod
			} else {
				acc[i+j-MLDSAN] -= prod
			}
		}
	}
	var r poly
	for i := range acc {
		r[i] = int32((acc[i]%MLDSAQ + MLDSAQ) % MLDSAQ)
	}
	return r
}

func TestNTTMultiplyMatchesSchoolbook(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 3; trial++ {
		a, b := randomPoly(rng), randomPoly(rng)
		want := schoolbook(&a, &b)

		an, bn := a, b
		an.ntt()
		bn.ntt()
		var c poly
		c.pointwiseMontgomery(&an, &bn)
		c.reduce()
		c.invNTT()
		c.freeze()
		if c != want {
			t.Fatalf("trial %d: NTT product differs from schoolbook", trial)
		}
	}
}

func TestDecompose(t *testing.T) {
	for _, r := range []int32{0, 1, MLDSAGamma2, MLDSAGamma2 + 1, 2 * MLDSAGamma2, MLDSAQ - 1, MLDSAQ - MLDSAGamma2} {
		r1, r0 := decompose(r)
		if r1 < 0 || r1 > 43 {
			t.Fatalf("decompose(%d): r1 = %d out of range", r, r1)
		}
		if r0 <= -MLDSAGamma2-1 || r0 > MLDSAGamma2 {
			t.Fatalf("decompose(%d): r0 = %d out of range", r, r0)
		}
		got := (int64(r1)*2*MLDSAGamma2 + int64(r0) + MLDSAQ) % MLDSAQ
		if got != int64(r) {
			t.Fatalf("decompose(%d) = (%d, %d) recombines to %d", r, r1, r0, got)
		}
	}
}

func TestUseHintWraps(t *testing.T) {
	// r in the top class with positive low bits wraps to 0.
	r := int32(43*2*MLDSAGamma2 + 10)
	if got := useHint(r, 1); got != 0 {
		t.Fatalf("useHint top class = %d, want 0", got)
	}
	if got := useHint(5, 0); got != 0 {
		t.Fatalf("useHint without hint = %d, want 0", got)
	}
	if got := useHint(0, 1); got != 43 {
		t.Fatalf("useHint(0, 1) = %d, want 43", got)
	}
}

func TestUnpackBits(t *testing.T) {
	// Four 18-bit values packed into nine bytes.
	vals := []uint64{0x3ffff, 1, 0x20000, 0x12345}
	var packed uint128
	for i, v := range vals {
		packed.orShift(v, uint(18*i))
	}
	buf := packed.bytes(9)
	out := make([]int32, 4)
	unpackBits(buf, 18, out)
	for i, v := range vals {
		if uint64(out[i]) != v {
			t.Fatalf("value %d = %#x, want %#x", i, out[i], v)
		}
	}
}

type uint128 struct{ lo, hi uint64 }

func (u *uint128) orShift(v uint64, s uint) {
	if s < 64 {
		u.lo |= v << s
		if s > 0 {
			u.hi |= v >> (64 - s)
		}
	} else {
		u.hi |= v << (s - 64)
	}
}

func (u *uint128) bytes(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if i < 8 {
			out[i] = byte(u.lo >> (8 * i))
		} else {
			out[i] = byte(u.hi >> (8 * (i - 8)))
		}
	}
	return out
}
