package hash

import "math/bits"

// Pure-Go rapidhash, following the published reference implementation
// (https://github.com/Nicoshev/rapidhash). Only the one-shot 64-bit
// form with the default seed and secret is needed here.

const rapidSeed = 0xbdd89aa982704029

var rapidSecret = [3]uint64{
	0x2d358dccaa6c78a5,
	0x8bb84b93962eacc9,
	0x4b33a62ed433d4a3,
}

func rapidMum(a, b uint64) (uint64, uint64) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi
}

func rapidMix(a, b uint64) uint64 {
	lo, hi := rapidMum(a, b)
	return lo ^ hi
}

// RapidSum64 hashes b with the default seed.
func RapidSum64(b []byte) uint64 {
	p := b
	n := uint64(len(b))
	seed := rapidSeed ^ rapidMix(rapidSeed^rapidSecret[0], rapidSecret[1]) ^ n

	var a, bb uint64
	switch {
	case n <= 16:
		switch {
		case n >= 4:
			a = uint64(le32(p))<<32 | uint64(le32(p[n-4:]))
			delta := (n & 24) >> (n >> 3)
			bb = uint64(le32(p[delta:]))<<32 | uint64(le32(p[n-4-delta:]))
		case n > 0:
			a = uint64(p[0])<<56 | uint64(p[n>>1])<<32 | uint64(p[n-1])
		}
	default:
		i := n
		if i > 48 {
			see1, see2 := seed, seed
			for i >= 48 {
				seed = rapidMix(le64(p)^rapidSecret[0], le64(p[8:])^seed)
				see1 = rapidMix(le64(p[16:])^rapidSecret[1], le64(p[24:])^see1)
				see2 = rapidMix(le64(p[32:])^rapidSecret[2], le64(p[40:])^see2)
				p = p[48:]
				i -= 48
			}
			seed ^= see1 ^ see2
		}
		if i > 16 {
			seed = rapidMix(le64(p)^rapidSecret[2], le64(p[8:])^seed^rapidSecret[1])
			if i > 32 {
				seed = rapidMix(le64(p[16:])^rapidSecret[2], le64(p[24:])^seed)
			}
		}
		// The last 16 bytes of the whole input; after the 48-byte loop
		// fewer than 16 may remain in p.
		a = le64(b[n-16:])
		bb = le64(b[n-8:])
	}

	a ^= rapidSecret[1]
	bb ^= seed
	a, bb = rapidMum(a, bb)
	return rapidMix(a^rapidSecret[0]^n, bb^rapidSecret[1])
}
