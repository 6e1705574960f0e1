//go:build arm64

package simd

func init() {
	// ASIMD (NEON) is architecturally mandatory on arm64.
	initCapabilities(true)
}
