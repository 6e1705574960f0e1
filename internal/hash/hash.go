// Package hash provides the 64-bit k-mer hashers selectable by the
// sketching code: rapidhash (default), FxHash and MurmurHash3. The
// choice changes sketch contents, so sketches hashed differently are
// never comparable.
package hash

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Kind selects a hash algorithm.
type Kind uint8

const (
	Rapid Kind = iota
	Fx
	Murmur
	// Mod is not a hash function of its own: it selects the scaled
	// (hash mod w == 0) sketching mode, hashing with Rapid.
	Mod
)

func (k Kind) String() string {
	switch k {
	case Rapid:
		return "rapid"
	case Fx:
		return "fx"
	case Murmur:
		return "murmur"
	case Mod:
		return "mod"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a --hasher flag value.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rapid":
		return Rapid, nil
	case "fx":
		return Fx, nil
	case "murmur":
		return Murmur, nil
	case "mod":
		return Mod, nil
	default:
		return Rapid, fmt.Errorf("unknown hasher %q", s)
	}
}

// Func returns the hashing function for k.
func (k Kind) Func() func([]byte) uint64 {
	switch k {
	case Fx:
		return FxSum64
	case Murmur:
		return MurmurSum64
	default:
		return RapidSum64
	}
}

const murmurSeed = 42

// MurmurSum64 returns the first 64 bits of MurmurHash3 x64-128.
func MurmurSum64(b []byte) uint64 {
	h1, _ := murmur3.Sum128WithSeed(b, murmurSeed)
	return h1
}

// fxMul is the multiplier of the rustc FxHash fold.
const fxMul = 0x517cc1b727220a95

// FxSum64 is the 64-bit FxHash word fold.
func FxSum64(b []byte) uint64 {
	var h uint64
	fold := func(w uint64) {
		h = (h<<5 | h>>59) ^ w
		h *= fxMul
	}
	for len(b) >= 8 {
		fold(le64(b))
		b = b[8:]
	}
	if len(b) >= 4 {
		fold(uint64(le32(b)))
		b = b[4:]
	}
	if len(b) >= 2 {
		fold(uint64(b[0]) | uint64(b[1])<<8)
		b = b[2:]
	}
	if len(b) >= 1 {
		fold(uint64(b[0]))
	}
	return h
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
