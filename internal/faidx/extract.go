package faidx

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/hnsm/internal/bgzf"
	"github.com/hupe1980/hnsm/internal/fasta"
	"github.com/hupe1980/hnsm/internal/seq"
)

// source abstracts the two random-access inputs: a plain file addressed
// by byte offsets and a BGZF file addressed by virtual offsets.
type source interface {
	io.Reader
	seekTo(off uint64) error
}

type plainSource struct {
	f  *os.File
	br *bufio.Reader
}

func (s *plainSource) Read(p []byte) (int, error) { return s.br.Read(p) }

func (s *plainSource) seekTo(off uint64) error {
	if _, err := s.f.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	s.br.Reset(s.f)
	return nil
}

type bgzfSource struct {
	r *bgzf.Reader
}

func (s *bgzfSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *bgzfSource) seekTo(off uint64) error {
	return s.r.Seek(bgzf.VirtualOffset(off))
}

// Extractor resolves range queries against an indexed FASTA file.
// Whole sequences are materialized on first use and kept in an LRU so
// repeated intra-contig queries cost no further I/O.
type Extractor struct {
	ix    *Index
	src   source
	cache *seqCache
	f     *os.File
}

// NewExtractor opens path for random access. The index must describe the
// same file; cacheCap bounds the LRU in sequences.
func NewExtractor(path string, ix *Index, cacheCap int) (*Extractor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var hdr [18]byte
	n, _ := io.ReadFull(f, hdr[:])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	ex := &Extractor{ix: ix, cache: newSeqCache(cacheCap), f: f}
	if n == len(hdr) && bgzf.IsBGZF(hdr[:]) {
		ex.src = &bgzfSource{r: bgzf.NewReader(f)}
	} else {
		ex.src = &plainSource{f: f, br: bufio.NewReaderSize(f, 64*1024)}
	}
	return ex, nil
}

// Close releases the underlying file.
func (ex *Extractor) Close() error { return ex.f.Close() }

// CacheStats returns LRU hit and miss counts.
func (ex *Extractor) CacheStats() (hits, misses int64) { return ex.cache.stats() }

// Extract resolves one query.
func (ex *Extractor) Extract(query string) (*fasta.Record, error) {
	rg, err := ParseRange(query)
	if err != nil {
		return nil, err
	}
	return ex.ExtractRange(rg)
}

// ExtractRange resolves a parsed query.
func (ex *Extractor) ExtractRange(rg Range) (*fasta.Record, error) {
	entry, ok := ex.ix.Get(rg.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNameNotFound, rg.Name)
	}

	full, ok := ex.cache.get(rg.Name)
	if !ok {
		var err error
		if full, err = ex.materialize(entry); err != nil {
			return nil, err
		}
		ex.cache.put(rg.Name, full)
	}

	start, end := rg.Start, rg.End
	if rg.Whole() {
		start, end = 1, entry.SeqLength
	} else if end > entry.SeqLength {
		return nil, fmt.Errorf("%w: %s: end %d beyond sequence of %d bases",
			ErrBadRange, rg, end, entry.SeqLength)
	}

	out := make([]byte, end-start+1)
	copy(out, full[start-1:end])
	if rg.Strand == '-' {
		seq.RevCompInPlace(out)
	}
	return &fasta.Record{Name: rg.String(), Seq: out}, nil
}

// materialize reads the record's full sequence from disk, dropping line
// terminators until SeqLength bases are accumulated.
func (ex *Extractor) materialize(e Entry) ([]byte, error) {
	if err := ex.src.seekTo(e.SeqOffset); err != nil {
		return nil, err
	}
	out := make([]byte, 0, e.SeqLength)
	buf := make([]byte, 64*1024)
	for int64(len(out)) < e.SeqLength {
		n, err := ex.src.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' || b == '\r' {
				continue
			}
			out = append(out, b)
			if int64(len(out)) == e.SeqLength {
				break
			}
		}
		if err != nil {
			if err == io.EOF && int64(len(out)) == e.SeqLength {
				break
			}
			return nil, fmt.Errorf("faidx: read %s: %w", e.Name, err)
		}
	}
	return out, nil
}
