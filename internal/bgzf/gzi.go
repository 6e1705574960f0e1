package bgzf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// The .gzi companion index lists block boundaries of a BGZF file as
// (compressed offset, uncompressed offset) pairs, excluding the first
// block which always starts at zero. Layout is the one bgzip writes:
// a little-endian uint64 entry count followed by the pairs.

// WriteGzi writes the index for the blocks recorded by a Writer. The
// trailing boundary (end of data, start of the EOF marker) is dropped.
func WriteGzi(w io.Writer, entries []IndexEntry) error {
	if len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(entries))); err != nil {
		return fmt.Errorf("bgzf: write gzi count: %w", err)
	}
	for _, e := range entries {
		if err := binary.Write(w, binary.LittleEndian, uint64(e.Compressed)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(e.Uncompressed)); err != nil {
			return err
		}
	}
	return nil
}

// WriteGziFile writes the index next to the compressed output.
func WriteGziFile(path string, entries []IndexEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGzi(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGzi loads a .gzi index.
func ReadGzi(r io.Reader) ([]IndexEntry, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("bgzf: read gzi count: %w", err)
	}
	entries := make([]IndexEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		var c, u uint64
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, fmt.Errorf("bgzf: read gzi entry %d: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			return nil, fmt.Errorf("bgzf: read gzi entry %d: %w", i, err)
		}
		entries = append(entries, IndexEntry{Compressed: int64(c), Uncompressed: int64(u)})
	}
	return entries, nil
}
