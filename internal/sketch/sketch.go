// Package sketch computes (w,k)-minimizer and scaled ModHash sketches of
// DNA and protein sequences, and estimates pairwise Jaccard, containment
// and Mash distances between them.
package sketch

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/seq"
)

var ErrIncompatibleAlphabet = errors.New("sketch: incompatible sketch parameters")

// Alphabet tags how k-mers are hashed: canonically for DNA, literally
// for protein.
type Alphabet uint8

const (
	DNA Alphabet = iota
	Protein
)

func (a Alphabet) String() string {
	if a == Protein {
		return "protein"
	}
	return "dna"
}

// DetectAlphabet classifies s as DNA when at least 90% of its bytes are
// nucleotide or ambiguity codes.
func DetectAlphabet(s []byte) Alphabet {
	if len(s) == 0 {
		return DNA
	}
	nt := 0
	for _, b := range s {
		if seq.NtCode[b] != seq.CodeInvalid {
			nt++
		}
	}
	if nt*10 >= len(s)*9 {
		return DNA
	}
	return Protein
}

// Params fixes how sequences are sketched. Two sketches are comparable
// only when their Params match exactly.
type Params struct {
	K        int
	W        int
	Hasher   hash.Kind
	Alphabet Alphabet
}

func (p Params) validate() error {
	if p.K < 1 {
		return fmt.Errorf("sketch: k must be positive, got %d", p.K)
	}
	if p.W < 1 {
		return fmt.Errorf("sketch: w must be positive, got %d", p.W)
	}
	return nil
}

// Compatible reports whether sketches built with p and q may be compared.
func (p Params) Compatible(q Params) error {
	if p != q {
		return fmt.Errorf("%w: %+v vs %+v", ErrIncompatibleAlphabet, p, q)
	}
	return nil
}

// Sketch is the minimizer set of one sequence (or one merged file).
// Hashes is sorted ascending and duplicate-free.
type Sketch struct {
	Name   string
	Params Params
	Hashes []uint64
}

// Len returns the sketch cardinality.
func (s *Sketch) Len() int { return len(s.Hashes) }

// Sketcher turns sequences into sketches.
type Sketcher struct {
	params Params
}

// NewSketcher validates params and returns a Sketcher.
func NewSketcher(params Params) (*Sketcher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Sketcher{params: params}, nil
}

// Params returns the sketching parameters.
func (sk *Sketcher) Params() Params { return sk.params }

// Sketch builds the minimizer set of s.
func (sk *Sketcher) Sketch(name string, s []byte) *Sketch {
	bm := roaring64.New()
	sk.appendTo(bm, s)
	return &Sketch{Name: name, Params: sk.params, Hashes: bm.ToArray()}
}

// Accumulator unions several sequences into one sketch, used by the
// merged-file distance mode.
type Accumulator struct {
	sk *Sketcher
	bm *roaring64.Bitmap
}

// NewAccumulator returns an empty accumulator for sk's parameters.
func (sk *Sketcher) NewAccumulator() *Accumulator {
	return &Accumulator{sk: sk, bm: roaring64.New()}
}

// Add unions the minimizers of s into the accumulator.
func (a *Accumulator) Add(s []byte) {
	a.sk.appendTo(a.bm, s)
}

// Finish returns the union sketch.
func (a *Accumulator) Finish(name string) *Sketch {
	return &Sketch{Name: name, Params: a.sk.params, Hashes: a.bm.ToArray()}
}

func (sk *Sketcher) appendTo(bm *roaring64.Bitmap, s []byte) {
	if sk.params.Hasher == hash.Mod {
		sk.modMinimizers(bm, s)
		return
	}
	sk.windowMinimizers(bm, s)
}
