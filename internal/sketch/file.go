package sketch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/hnsm/internal/hash"
)

// Sketch files let the expensive sketching pass run once and feed many
// distance runs. Layout: an 8-byte magic, then one lz4 frame holding the
// parameter header and the per-sketch hash arrays, little-endian.

var sketchMagic = [8]byte{'H', 'N', 'S', 'M', 'S', 'K', 0, 1}

// SaveSketchFile writes sketches to path. All sketches must share the
// same parameters.
func SaveSketchFile(path string, params Params, sketches []*Sketch) error {
	for _, s := range sketches {
		if err := s.Params.Compatible(params); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeSketches(f, params, sketches); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func writeSketches(w io.Writer, params Params, sketches []*Sketch) error {
	if _, err := w.Write(sketchMagic[:]); err != nil {
		return err
	}
	zw := lz4.NewWriter(w)
	bw := bufio.NewWriterSize(zw, 256*1024)

	le := binary.LittleEndian
	hdr := []any{
		uint8(params.Hasher), uint8(params.Alphabet),
		uint32(params.K), uint32(params.W),
		uint32(len(sketches)),
	}
	for _, v := range hdr {
		if err := binary.Write(bw, le, v); err != nil {
			return err
		}
	}
	for _, s := range sketches {
		if len(s.Name) > 0xffff {
			return fmt.Errorf("sketch: name too long: %q", s.Name[:32])
		}
		if err := binary.Write(bw, le, uint16(len(s.Name))); err != nil {
			return err
		}
		if _, err := bw.WriteString(s.Name); err != nil {
			return err
		}
		if err := binary.Write(bw, le, uint64(len(s.Hashes))); err != nil {
			return err
		}
		if err := binary.Write(bw, le, s.Hashes); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// LoadSketchFile reads a file written by SaveSketchFile.
func LoadSketchFile(path string) ([]*Sketch, Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Params{}, err
	}
	defer f.Close()
	return readSketches(f)
}

func readSketches(r io.Reader) ([]*Sketch, Params, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, Params{}, fmt.Errorf("sketch: read magic: %w", err)
	}
	if magic != sketchMagic {
		return nil, Params{}, fmt.Errorf("sketch: not a sketch file")
	}
	br := bufio.NewReaderSize(lz4.NewReader(r), 256*1024)

	le := binary.LittleEndian
	var (
		hasher, alphabet uint8
		k, w, count      uint32
	)
	for _, v := range []any{&hasher, &alphabet, &k, &w, &count} {
		if err := binary.Read(br, le, v); err != nil {
			return nil, Params{}, fmt.Errorf("sketch: read header: %w", err)
		}
	}
	params := Params{
		K:        int(k),
		W:        int(w),
		Hasher:   hash.Kind(hasher),
		Alphabet: Alphabet(alphabet),
	}
	if err := params.validate(); err != nil {
		return nil, Params{}, err
	}

	sketches := make([]*Sketch, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(br, le, &nameLen); err != nil {
			return nil, Params{}, fmt.Errorf("sketch: read entry %d: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, Params{}, fmt.Errorf("sketch: read entry %d: %w", i, err)
		}
		var n uint64
		if err := binary.Read(br, le, &n); err != nil {
			return nil, Params{}, fmt.Errorf("sketch: read entry %d: %w", i, err)
		}
		hashes := make([]uint64, n)
		if err := binary.Read(br, le, hashes); err != nil {
			return nil, Params{}, fmt.Errorf("sketch: read entry %d: %w", i, err)
		}
		sketches = append(sketches, &Sketch{Name: string(name), Params: params, Hashes: hashes})
	}
	return sketches, params, nil
}
