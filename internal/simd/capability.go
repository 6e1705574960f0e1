package simd

import (
	"os"
	"strings"
)

// ISA names the kernel family in use.
type ISA uint8

const (
	// Scalar selects the plain one-element-per-iteration kernels.
	Scalar ISA = iota
	// Lanes8 selects the eight-lane unrolled kernels, profitable on
	// cores with wide FP pipelines (AVX2, NEON).
	Lanes8
)

func (i ISA) String() string {
	switch i {
	case Scalar:
		return "scalar"
	case Lanes8:
		return "lanes8"
	default:
		return "unknown"
	}
}

var activeISA ISA

// initCapabilities is called from the platform init after feature
// detection. HNSM_SIMD=scalar|lanes8 overrides the choice.
func initCapabilities(wideFP bool) {
	isa := Scalar
	if wideFP {
		isa = Lanes8
	}
	switch strings.ToLower(os.Getenv("HNSM_SIMD")) {
	case "scalar":
		isa = Scalar
	case "lanes8":
		isa = Lanes8
	}
	activeISA = isa
	if isa == Scalar {
		dotImpl = dotScalar
		squaredL2Impl = squaredL2Scalar
		normImpl = func(a []float32) float32 { return Sqrt(dotScalar(a, a)) }
	}
}

// ActiveISA reports the selected kernel family.
func ActiveISA() ISA { return activeISA }
