package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{Rapid, Fx, Murmur, Mod} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("sha1")
	assert.Error(t, err)
}

func TestHashersAreDeterministicAndSpread(t *testing.T) {
	inputs := [][]byte{
		[]byte(""),
		[]byte("A"),
		[]byte("ACG"),
		[]byte("ACGTACG"),
		[]byte("ACGTACGTACGTACGTACGT"),
		[]byte("acgtacgtacgtacgtacgtacgtacgtacgtacgtacgtacgtacgtacgtacgt"),
	}
	for _, k := range []Kind{Rapid, Fx, Murmur} {
		f := k.Func()
		seen := make(map[uint64]bool)
		for _, in := range inputs {
			h1 := f(in)
			h2 := f(append([]byte(nil), in...))
			assert.Equal(t, h1, h2, "%s on %q", k, in)
			seen[h1] = true
		}
		// No collisions across these trivially distinct inputs.
		assert.Len(t, seen, len(inputs), k.String())
	}
}

func TestHashersDisagree(t *testing.T) {
	in := []byte("ACGTACG")
	assert.NotEqual(t, RapidSum64(in), FxSum64(in))
	assert.NotEqual(t, RapidSum64(in), MurmurSum64(in))
}

func TestSingleByteSensitivity(t *testing.T) {
	for _, k := range []Kind{Rapid, Fx, Murmur} {
		f := k.Func()
		assert.NotEqual(t, f([]byte("ACGTACG")), f([]byte("ACGTACC")), k.String())
	}
}
