package sketch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/hnsm/internal/fasta"
	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/pipeline"
)

// Options configures a distance run.
type Options struct {
	K        int
	W        int
	Hasher   hash.Kind
	Alphabet string // "auto", "dna" or "protein"
	Merge    bool
	Zero     bool // keep pairs with zero intersection
	Sim      bool // report 1-D instead of D
	Workers  int
}

// Engine computes pairwise sketch distances with deterministic,
// input-ordered output.
type Engine struct {
	opts     Options
	progress rate.Sometimes
}

// NewEngine validates opts and returns an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	switch opts.Alphabet {
	case "", "auto", "dna", "protein":
	default:
		return nil, fmt.Errorf("sketch: unknown alphabet %q", opts.Alphabet)
	}
	if _, err := NewSketcher(Params{K: opts.K, W: opts.W, Hasher: opts.Hasher}); err != nil {
		return nil, err
	}
	return &Engine{
		opts:     opts,
		progress: rate.Sometimes{Interval: 5 * time.Second},
	}, nil
}

// sketcherFor resolves the alphabet, from the flag or from the first
// sequence seen, and builds the sketcher.
func (e *Engine) sketcherFor(first []byte) *Sketcher {
	alpha := DNA
	switch e.opts.Alphabet {
	case "protein":
		alpha = Protein
	case "", "auto":
		alpha = DetectAlphabet(first)
	}
	sk, _ := NewSketcher(Params{K: e.opts.K, W: e.opts.W, Hasher: e.opts.Hasher, Alphabet: alpha})
	return sk
}

// LoadFile sketches every record of a FASTA file, or the whole file as
// one union sketch when merge is set. Files written by the sketch
// subcommand load directly.
func (e *Engine) LoadFile(path string, merge bool) ([]*Sketch, error) {
	if IsSketchFile(path) {
		sketches, params, err := LoadSketchFile(path)
		if err != nil {
			return nil, err
		}
		want := Params{K: e.opts.K, W: e.opts.W, Hasher: e.opts.Hasher, Alphabet: params.Alphabet}
		if err := params.Compatible(want); err != nil {
			return nil, err
		}
		return sketches, nil
	}

	r, closer, err := fasta.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var (
		sk      *Sketcher
		acc     *Accumulator
		out     []*Sketch
		records int
	)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if sk == nil {
			sk = e.sketcherFor(rec.Seq)
			if merge {
				acc = sk.NewAccumulator()
			}
		}
		if merge {
			acc.Add(rec.Seq)
		} else {
			out = append(out, sk.Sketch(rec.Name, rec.Seq))
		}
		records++
		e.progress.Do(func() {
			slog.Info("sketching", "file", path, "records", records)
		})
	}
	if sk == nil {
		sk = e.sketcherFor(nil)
	}
	if merge {
		return []*Sketch{acc.Finish(path)}, nil
	}
	return out, nil
}

// Run compares query against target and writes TSV to out. With one
// input file the query is compared against itself. Merge mode unions
// each file into a single sketch.
func (e *Engine) Run(ctx context.Context, query, target string, out io.Writer) error {
	if target != "" && !e.opts.Merge && !IsSketchFile(query) {
		// Targets are sketched once and held in memory; the query side
		// streams record by record.
		targets, err := e.LoadFile(target, false)
		if err != nil {
			return err
		}
		return e.streamQuery(ctx, query, targets, out)
	}

	queries, err := e.LoadFile(query, e.opts.Merge)
	if err != nil {
		return err
	}
	targets := queries
	if target != "" {
		if targets, err = e.LoadFile(target, e.opts.Merge); err != nil {
			return err
		}
	}
	return e.comparePairs(ctx, queries, targets, out)
}

// streamQuery sketches query records inside the worker pool instead of
// up front, keeping only the target sketches resident.
func (e *Engine) streamQuery(ctx context.Context, query string, targets []*Sketch, out io.Writer) error {
	r, closer, err := fasta.OpenReader(query)
	if err != nil {
		return err
	}
	defer closer.Close()

	first, err := r.Next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	sk := e.sketcherFor(first.Seq)
	if len(targets) > 0 {
		if err := sk.Params().Compatible(targets[0].Params); err != nil {
			return err
		}
	}

	records := 0
	return pipeline.Run(ctx, e.opts.Workers,
		func(emit func(*fasta.Record) error) error {
			rec := first
			for {
				if err := emit(rec); err != nil {
					return err
				}
				records++
				e.progress.Do(func() {
					slog.Info("sketching", "file", query, "records", records)
				})
				if rec, err = r.Next(); err != nil {
					if err == io.EOF {
						return nil
					}
					return err
				}
			}
		},
		func(rec *fasta.Record) ([]byte, error) {
			q := sk.Sketch(rec.Name, rec.Seq)
			if q.Len() == 0 {
				slog.Warn("empty sketch", "name", q.Name)
			}
			var buf bytes.Buffer
			for _, t := range targets {
				res := Compare(q, t)
				if !e.opts.Zero && res.Inter == 0 {
					continue
				}
				e.formatResult(&buf, q.Name, t.Name, res)
			}
			return buf.Bytes(), nil
		},
		func(block []byte) error {
			_, err := out.Write(block)
			return err
		})
}

// RunList treats each path as one merged sketch and emits all ordered
// pairs, self included.
func (e *Engine) RunList(ctx context.Context, paths []string, out io.Writer) error {
	sketches := make([]*Sketch, 0, len(paths))
	for _, p := range paths {
		got, err := e.LoadFile(p, true)
		if err != nil {
			return err
		}
		sketches = append(sketches, got...)
	}
	return e.comparePairs(ctx, sketches, sketches, out)
}

// comparePairs fans queries out over the worker pool; each worker
// compares one query sketch against every target and formats its output
// block. The pipeline writer restores query order.
func (e *Engine) comparePairs(ctx context.Context, queries, targets []*Sketch, out io.Writer) error {
	if len(queries) > 0 && len(targets) > 0 {
		if err := queries[0].Params.Compatible(targets[0].Params); err != nil {
			return err
		}
	}
	for _, q := range queries {
		if q.Len() == 0 {
			slog.Warn("empty sketch", "name", q.Name)
		}
	}

	return pipeline.Run(ctx, e.opts.Workers,
		func(emit func(*Sketch) error) error {
			for _, q := range queries {
				if err := emit(q); err != nil {
					return err
				}
			}
			return nil
		},
		func(q *Sketch) ([]byte, error) {
			var buf bytes.Buffer
			for _, t := range targets {
				r := Compare(q, t)
				if !e.opts.Zero && r.Inter == 0 {
					continue
				}
				e.formatResult(&buf, q.Name, t.Name, r)
			}
			return buf.Bytes(), nil
		},
		func(block []byte) error {
			_, err := out.Write(block)
			return err
		})
}

func (e *Engine) formatResult(buf *bytes.Buffer, qname, tname string, r Result) {
	d := r.Mash
	if e.opts.Sim {
		d = 1 - d
	}
	if e.opts.Merge {
		fmt.Fprintf(buf, "%s\t%s\t%d\t%d\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			qname, tname, r.Total1, r.Total2, r.Inter, r.Union, d, r.Jaccard, r.Containment)
		return
	}
	fmt.Fprintf(buf, "%s\t%s\t%.4f\t%.4f\t%.4f\n", qname, tname, d, r.Jaccard, r.Containment)
}

// IsSketchFile reports whether path names a sketch file written by
// SaveSketchFile, by extension.
func IsSketchFile(path string) bool {
	return strings.HasSuffix(path, ".sk")
}
