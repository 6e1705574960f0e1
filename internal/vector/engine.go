package vector

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/hnsm/internal/pipeline"
	"github.com/hupe1980/hnsm/internal/simd"
)

// Mode selects the similarity measure.
type Mode uint8

const (
	Euclid Mode = iota
	Cosine
	Jaccard
)

// ParseMode parses a --mode flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "euclid":
		return Euclid, nil
	case "cosine":
		return Cosine, nil
	case "jaccard":
		return Jaccard, nil
	default:
		return Euclid, fmt.Errorf("vector: unknown mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Jaccard:
		return "jaccard"
	default:
		return "euclid"
	}
}

// Options configures a similarity run.
type Options struct {
	Mode         Mode
	Bin          bool    // threshold values to 0/1
	Dis          bool    // report distance instead of similarity
	Threshold    float64 // emit pairs with score >= Threshold
	HasThreshold bool
	NoSelf       bool // drop pairs of identical names
	Workers      int
}

// Engine computes all-pairs similarity with input-ordered output.
type Engine struct {
	opts Options
}

// NewEngine returns an Engine for opts.
func NewEngine(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{opts: opts}
}

// Run loads queries (and optionally a second target file) and writes one
// TSV line per surviving pair.
func (e *Engine) Run(ctx context.Context, query io.Reader, target io.Reader, out io.Writer) error {
	queries, err := Load(query, e.opts.Bin)
	if err != nil {
		return err
	}
	targets := queries
	if target != nil {
		if targets, err = Load(target, e.opts.Bin); err != nil {
			return err
		}
		if len(queries) > 0 && len(targets) > 0 && len(queries[0].Values) != len(targets[0].Values) {
			return fmt.Errorf("%w: query dimension %d, target dimension %d",
				ErrBadDimension, len(queries[0].Values), len(targets[0].Values))
		}
	}

	// Binary Jaccard runs on packed words with popcount.
	if e.opts.Mode == Jaccard && e.opts.Bin {
		return e.runPacked(ctx, queries, targets, out)
	}

	return pipeline.Run(ctx, e.opts.Workers,
		func(emit func(Entry) error) error {
			for _, q := range queries {
				if err := emit(q); err != nil {
					return err
				}
			}
			return nil
		},
		func(q Entry) ([]byte, error) {
			var buf bytes.Buffer
			for _, t := range targets {
				if e.opts.NoSelf && q.Name == t.Name {
					continue
				}
				e.emitScore(&buf, q.Name, t.Name, e.score(q.Values, t.Values))
			}
			return buf.Bytes(), nil
		},
		func(block []byte) error {
			_, err := out.Write(block)
			return err
		})
}

func (e *Engine) runPacked(ctx context.Context, queries, targets []Entry, out io.Writer) error {
	packedTargets := make([]Packed, len(targets))
	for i, t := range targets {
		packedTargets[i] = Pack(t)
	}
	return pipeline.Run(ctx, e.opts.Workers,
		func(emit func(Packed) error) error {
			for _, q := range queries {
				if err := emit(Pack(q)); err != nil {
					return err
				}
			}
			return nil
		},
		func(q Packed) ([]byte, error) {
			var buf bytes.Buffer
			for _, t := range packedTargets {
				if e.opts.NoSelf && q.Name == t.Name {
					continue
				}
				e.emitScore(&buf, q.Name, t.Name, binaryJaccard(q.Bits, t.Bits))
			}
			return buf.Bytes(), nil
		},
		func(block []byte) error {
			_, err := out.Write(block)
			return err
		})
}

// score computes the pair score for the dense modes, applying the
// distance/similarity conversion.
func (e *Engine) score(a, b []float32) float64 {
	switch e.opts.Mode {
	case Cosine:
		sim := cosineSimilarity(a, b)
		if e.opts.Dis {
			return 1 - sim
		}
		return sim
	case Jaccard:
		sim := weightedJaccard(a, b)
		if e.opts.Dis {
			return 1 - sim
		}
		return sim
	default:
		d := float64(simd.Sqrt(simd.SquaredL2(a, b)))
		if e.opts.Dis {
			return d
		}
		return 1 / (1 + d)
	}
}

func (e *Engine) emitScore(buf *bytes.Buffer, qname, tname string, score float64) {
	if e.opts.HasThreshold && score < e.opts.Threshold {
		return
	}
	fmt.Fprintf(buf, "%s\t%s\t%.4f\n", qname, tname, score)
}

func cosineSimilarity(a, b []float32) float64 {
	na := simd.Norm(a)
	nb := simd.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(simd.Dot(a, b)) / (float64(na) * float64(nb))
}

// weightedJaccard is sum(min)/sum(max), the real-valued generalization
// of the Jaccard index.
func weightedJaccard(a, b []float32) float64 {
	var minSum, maxSum float64
	for i := range a {
		x, y := a[i], b[i]
		if x < y {
			minSum += float64(x)
			maxSum += float64(y)
		} else {
			minSum += float64(y)
			maxSum += float64(x)
		}
	}
	if maxSum == 0 {
		return 0
	}
	return minSum / maxSum
}

func binaryJaccard(a, b []uint64) float64 {
	union := simd.PopcountOr(a, b)
	if union == 0 {
		return 0
	}
	return float64(simd.PopcountAnd(a, b)) / float64(union)
}
