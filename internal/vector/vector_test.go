package vector

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	e, err := ParseLine("item\t1\t0.5\t-2")
	require.NoError(t, err)
	assert.Equal(t, "item", e.Name)
	assert.Equal(t, []float32{1, 0.5, -2}, e.Values)

	_, err = ParseLine("bad\t1\tx")
	assert.Error(t, err)

	_, err = ParseLine("bad\t1\tNaN")
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = ParseLine("bad\tInf")
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestLoadDimensionCheck(t *testing.T) {
	in := "a\t1\t2\t3\nb\t4\t5\n"
	_, err := Load(strings.NewReader(in), false)
	assert.ErrorIs(t, err, ErrBadDimension)
}

func TestLoadBinarize(t *testing.T) {
	in := "a\t0\t2\t-3\t0.1\n"
	got, err := Load(strings.NewReader(in), true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0, 1, 1, 1}, got[0].Values)
}

func TestPack(t *testing.T) {
	vals := make([]float32, 70)
	vals[0], vals[63], vals[64], vals[69] = 1, 1, 1, 1
	p := Pack(Entry{Name: "x", Values: vals})
	require.Len(t, p.Bits, 2)
	assert.Equal(t, uint64(1)|uint64(1)<<63, p.Bits[0])
	assert.Equal(t, uint64(1)|uint64(1)<<5, p.Bits[1])
}

func run(t *testing.T, opts Options, query, target string) string {
	t.Helper()
	e := NewEngine(opts)
	var out bytes.Buffer
	var err error
	if target == "" {
		err = e.Run(context.Background(), strings.NewReader(query), nil, &out)
	} else {
		err = e.Run(context.Background(), strings.NewReader(query), strings.NewReader(target), &out)
	}
	require.NoError(t, err)
	return out.String()
}

func TestEuclid(t *testing.T) {
	in := "a\t0\t0\nb\t3\t4\n"

	out := run(t, Options{Mode: Euclid, Dis: true}, in, "")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "a\ta\t0.0000", lines[0])
	assert.Equal(t, "a\tb\t5.0000", lines[1])
	assert.Equal(t, "b\ta\t5.0000", lines[2])

	// Similarity form 1/(1+d).
	out = run(t, Options{Mode: Euclid}, in, "")
	lines = strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "a\ta\t1.0000", lines[0])
	assert.Equal(t, fmt.Sprintf("a\tb\t%.4f", 1.0/6.0), lines[1])
}

func TestCosine(t *testing.T) {
	in := "x\t1\t0\ny\t0\t1\nz\t2\t0\n"
	out := run(t, Options{Mode: Cosine}, in, "")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "x\tx\t1.0000", lines[0])
	assert.Equal(t, "x\ty\t0.0000", lines[1])
	assert.Equal(t, "x\tz\t1.0000", lines[2])

	// Symmetry across the full matrix.
	score := map[string]string{}
	for _, l := range lines {
		f := strings.Split(l, "\t")
		score[f[0]+","+f[1]] = f[2]
	}
	for _, a := range []string{"x", "y", "z"} {
		for _, b := range []string{"x", "y", "z"} {
			assert.Equal(t, score[a+","+b], score[b+","+a])
		}
	}
}

func TestBinaryJaccard(t *testing.T) {
	in := "p\t1\t1\t0\t0\nq\t1\t0\t1\t0\n"
	out := run(t, Options{Mode: Jaccard, Bin: true}, in, "")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	// |p&q| = 1, |p|q| = 3.
	assert.Equal(t, fmt.Sprintf("p\tq\t%.4f", 1.0/3.0), lines[1])
	assert.Equal(t, "p\tp\t1.0000", lines[0])
}

func TestWeightedJaccard(t *testing.T) {
	got := weightedJaccard([]float32{1, 2, 0}, []float32{2, 1, 0})
	assert.InDelta(t, 2.0/4.0, got, 1e-9)
	assert.Equal(t, 0.0, weightedJaccard([]float32{0}, []float32{0}))
}

func TestJaccardRange(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for trial := 0; trial < 50; trial++ {
		a := make([]float32, 40)
		b := make([]float32, 40)
		for i := range a {
			if rng.Intn(2) == 1 {
				a[i] = 1
			}
			if rng.Intn(2) == 1 {
				b[i] = 1
			}
		}
		j := binaryJaccard(Pack(Entry{Values: a}).Bits, Pack(Entry{Values: b}).Bits)
		assert.GreaterOrEqual(t, j, 0.0)
		assert.LessOrEqual(t, j, 1.0)
	}
}

func TestThresholdAndNoSelf(t *testing.T) {
	in := "a\t1\t0\nb\t1\t0\nc\t0\t1\n"

	out := run(t, Options{Mode: Cosine, Threshold: 0.5, HasThreshold: true}, in, "")
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		f := strings.Split(l, "\t")
		var v float64
		_, err := fmt.Sscanf(f[2], "%f", &v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.5)
	}

	out = run(t, Options{Mode: Cosine, NoSelf: true}, in, "")
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		f := strings.Split(l, "\t")
		assert.NotEqual(t, f[0], f[1])
	}
}

func TestTwoFiles(t *testing.T) {
	q := "q1\t1\t0\n"
	tgt := "t1\t1\t0\nt2\t0\t1\n"
	out := run(t, Options{Mode: Cosine}, q, tgt)
	assert.Equal(t, "q1\tt1\t1.0000\nq1\tt2\t0.0000\n", out)

	e := NewEngine(Options{Mode: Cosine})
	var buf bytes.Buffer
	err := e.Run(context.Background(), strings.NewReader(q), strings.NewReader("t\t1\t2\t3\n"), &buf)
	assert.ErrorIs(t, err, ErrBadDimension)
}

func TestParallelInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "v%02d", i)
		for j := 0; j < 16; j++ {
			fmt.Fprintf(&sb, "\t%.3f", rng.Float64()*2-1)
		}
		sb.WriteByte('\n')
	}
	in := sb.String()

	for _, mode := range []Mode{Euclid, Cosine, Jaccard} {
		p1 := run(t, Options{Mode: mode, Workers: 1}, in, "")
		p8 := run(t, Options{Mode: mode, Workers: 8}, in, "")
		assert.Equal(t, p1, p8, mode.String())
	}
}

func TestEuclidMatchesScalarReference(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	a := make([]float32, 100)
	b := make([]float32, 100)
	for i := range a {
		a[i] = rng.Float32()
		b[i] = rng.Float32()
	}
	var want float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		want += d * d
	}
	e := NewEngine(Options{Mode: Euclid, Dis: true})
	got := e.score(a, b)
	assert.InEpsilon(t, math.Sqrt(want), got, 1e-5)
}
