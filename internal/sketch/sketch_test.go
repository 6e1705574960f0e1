package sketch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/seq"
)

func mustSketcher(t *testing.T, p Params) *Sketcher {
	t.Helper()
	sk, err := NewSketcher(p)
	require.NoError(t, err)
	return sk
}

func randDNA(rng *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[rng.Intn(4)]
	}
	return s
}

func TestSelfSimilarity(t *testing.T) {
	sk := mustSketcher(t, Params{K: 21, W: 5, Hasher: hash.Rapid})
	s := randDNA(rand.New(rand.NewSource(1)), 5000)

	a := sk.Sketch("s", s)
	require.Positive(t, a.Len())

	r := Compare(a, a)
	assert.Equal(t, 1.0, r.Jaccard)
	assert.Equal(t, 0.0, r.Mash)
	assert.Equal(t, 1.0, r.Containment)
}

func TestSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	sk := mustSketcher(t, Params{K: 15, W: 3, Hasher: hash.Rapid})
	a := sk.Sketch("a", randDNA(rng, 3000))
	b := sk.Sketch("b", randDNA(rng, 3000))

	ab := Compare(a, b)
	ba := Compare(b, a)
	assert.Equal(t, ab.Jaccard, ba.Jaccard)
	assert.Equal(t, ab.Mash, ba.Mash)
	assert.Equal(t, ab.Inter, ba.Inter)
}

func TestCanonicalStrandInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := randDNA(rng, 4000)
	rc := seq.RevComp(s)

	for _, hk := range []hash.Kind{hash.Rapid, hash.Mod} {
		sk := mustSketcher(t, Params{K: 21, W: 4, Hasher: hk})
		fwd := sk.Sketch("fwd", s)
		rev := sk.Sketch("rev", rc)
		assert.Equal(t, fwd.Hashes, rev.Hashes, hk.String())
	}
}

func TestCaseInsensitiveDNA(t *testing.T) {
	sk := mustSketcher(t, Params{K: 7, W: 2, Hasher: hash.Rapid})
	upper := sk.Sketch("u", []byte("ACGTACGTACGTACGT"))
	lower := sk.Sketch("l", []byte("acgtacgtacgtacgt"))
	assert.Equal(t, upper.Hashes, lower.Hashes)
}

func TestAmbiguousBasesRestartWindow(t *testing.T) {
	sk := mustSketcher(t, Params{K: 5, W: 1, Hasher: hash.Rapid})

	// The N splits the sequence into two runs; k-mers spanning it must
	// not exist.
	split := sk.Sketch("s", []byte("ACGTACGTNACGTACGT"))
	left := sk.Sketch("l", []byte("ACGTACGT"))
	right := sk.Sketch("r", []byte("ACGTACGT"))

	union := map[uint64]bool{}
	for _, h := range left.Hashes {
		union[h] = true
	}
	for _, h := range right.Hashes {
		union[h] = true
	}
	assert.Len(t, split.Hashes, len(union))
}

// naiveKmerSet is an order-free reference: the canonical hash of every
// valid k-mer. With w == 1 the minimizer sketch must equal it exactly.
func naiveKmerSet(s []byte, k int) map[uint64]bool {
	out := map[uint64]bool{}
	up := make([]byte, 0, len(s))
	flushAt := []int{}
	for _, b := range s {
		code := seq.NtCode[b]
		if code > 3 {
			flushAt = append(flushAt, len(up))
			continue
		}
		up = append(up, ntUpper[code])
	}
	flushAt = append(flushAt, len(up))
	start := 0
	hf := hash.Rapid.Func()
	for _, end := range flushAt {
		run := up[start:end]
		rc := seq.RevComp(run)
		for i := 0; i+k <= len(run); i++ {
			hFwd := hf(run[i : i+k])
			hRev := hf(rc[len(rc)-i-k : len(rc)-i])
			if hRev < hFwd {
				out[hRev] = true
			} else {
				out[hFwd] = true
			}
		}
		start = end
	}
	return out
}

func TestWindowOneMatchesAllKmers(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	s := randDNA(rng, 2000)
	s[100], s[700] = 'N', 'n'

	sk := mustSketcher(t, Params{K: 11, W: 1, Hasher: hash.Rapid})
	got := sk.Sketch("s", s)

	want := naiveKmerSet(s, 11)
	require.Len(t, got.Hashes, len(want))
	for _, h := range got.Hashes {
		assert.True(t, want[h])
	}
}

func TestMinimizerIsSubsetOfKmers(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s := randDNA(rng, 5000)

	all := naiveKmerSet(s, 15)
	sk := mustSketcher(t, Params{K: 15, W: 10, Hasher: hash.Rapid})
	got := sk.Sketch("s", s)

	assert.Less(t, got.Len(), len(all))
	for _, h := range got.Hashes {
		assert.True(t, all[h])
	}
}

func TestModHashScaling(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const (
		L = 100000
		k = 21
		w = 16
	)
	sk := mustSketcher(t, Params{K: k, W: w, Hasher: hash.Mod})
	got := sk.Sketch("s", randDNA(rng, L))

	expected := float64(L-k+1) / float64(w)
	assert.InEpsilon(t, expected, float64(got.Len()), 0.15)
}

func TestMashDistance(t *testing.T) {
	assert.Equal(t, 0.0, MashDistance(1, 100, 21))
	assert.Equal(t, 1.0, MashDistance(0, 100, 21))
	// Below the resolvable limit at this union size.
	assert.Equal(t, 1.0, MashDistance(0.001, 100, 21))

	want := -math.Log(2*0.5/(1+0.5)) / 21
	assert.InDelta(t, want, MashDistance(0.5, 100, 21), 1e-12)
}

func TestCompareEmpty(t *testing.T) {
	p := Params{K: 7, W: 1, Hasher: hash.Rapid}
	sk := mustSketcher(t, p)
	empty := sk.Sketch("e", nil)
	full := sk.Sketch("f", []byte("ACGTACGTACGT"))

	r := Compare(empty, full)
	assert.Zero(t, r.Inter)
	assert.Zero(t, r.Jaccard)
	assert.Equal(t, 1.0, r.Mash)
}

func TestIntersection(t *testing.T) {
	assert.Equal(t, 2, Intersection([]uint64{1, 3, 5, 9}, []uint64{2, 3, 9, 10}))
	assert.Equal(t, 0, Intersection(nil, []uint64{1}))
	assert.Equal(t, 3, Intersection([]uint64{1, 2, 3}, []uint64{1, 2, 3}))
}

func TestProteinSketch(t *testing.T) {
	sk := mustSketcher(t, Params{K: 7, W: 2, Hasher: hash.Rapid, Alphabet: Protein})
	a := sk.Sketch("a", []byte("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQ"))
	require.Positive(t, a.Len())

	r := Compare(a, a)
	assert.Equal(t, 1.0, r.Jaccard)
}

func TestDetectAlphabet(t *testing.T) {
	assert.Equal(t, DNA, DetectAlphabet([]byte("ACGTACGTNNRY")))
	assert.Equal(t, DNA, DetectAlphabet(nil))
	assert.Equal(t, Protein, DetectAlphabet([]byte("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQ")))
}

func TestParamsCompatible(t *testing.T) {
	p := Params{K: 21, W: 5, Hasher: hash.Rapid, Alphabet: DNA}
	assert.NoError(t, p.Compatible(p))
	assert.ErrorIs(t, p.Compatible(Params{K: 20, W: 5, Hasher: hash.Rapid}), ErrIncompatibleAlphabet)
	assert.ErrorIs(t, p.Compatible(Params{K: 21, W: 5, Hasher: hash.Rapid, Alphabet: Protein}), ErrIncompatibleAlphabet)
}

func TestSketchFileRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	p := Params{K: 21, W: 5, Hasher: hash.Rapid, Alphabet: DNA}
	sk := mustSketcher(t, p)

	sketches := []*Sketch{
		sk.Sketch("one", randDNA(rng, 2000)),
		sk.Sketch("two", randDNA(rng, 1000)),
		sk.Sketch("empty", nil),
	}

	path := t.TempDir() + "/out.sk"
	require.NoError(t, SaveSketchFile(path, p, sketches))

	got, gotParams, err := LoadSketchFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, gotParams)
	require.Len(t, got, len(sketches))
	for i := range sketches {
		assert.Equal(t, sketches[i].Name, got[i].Name)
		assert.Equal(t, sketches[i].Hashes, got[i].Hashes)
	}
}

func TestSaveSketchFileRejectsMismatch(t *testing.T) {
	p := Params{K: 21, W: 5, Hasher: hash.Rapid}
	other := mustSketcher(t, Params{K: 7, W: 1, Hasher: hash.Rapid})
	err := SaveSketchFile(t.TempDir()+"/x.sk", p, []*Sketch{other.Sketch("a", []byte("ACGTACGTACGT"))})
	assert.ErrorIs(t, err, ErrIncompatibleAlphabet)
}

func TestJaccardOnMutatedSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	s := randDNA(rng, 10000)

	// Mutate 1% of positions; identity stays high, distance small.
	mut := append([]byte(nil), s...)
	for i := 0; i < len(mut)/100; i++ {
		p := rng.Intn(len(mut))
		mut[p] = "ACGT"[rng.Intn(4)]
	}

	sk := mustSketcher(t, Params{K: 21, W: 1, Hasher: hash.Rapid})
	a := sk.Sketch("orig", s)
	b := sk.Sketch("mut", mut)

	r := Compare(a, b)
	assert.Greater(t, r.Jaccard, 0.5)
	assert.Less(t, r.Mash, 0.05)
	assert.Positive(t, r.Mash)
}
