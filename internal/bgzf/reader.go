package bgzf

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// Reader decodes a BGZF stream block by block. Sequential reads cross
// block boundaries transparently; when the underlying stream is seekable,
// Seek repositions the reader at any virtual offset produced by Tell.
type Reader struct {
	r  io.Reader
	rs io.Seeker // nil when the source is not seekable

	block    []byte // decoded payload of the current block
	blockOff int    // bytes of block already consumed
	coffset  int64  // compressed offset of the current block
	next     int64  // compressed offset of the next block

	scratch []byte // compressed block buffer, reused
	inflate io.ReadCloser
	err     error
}

// NewReader wraps r. If r also implements io.Seeker, Seek by virtual
// offset is available; otherwise Seek returns ErrSeekUnsupported.
func NewReader(r io.Reader) *Reader {
	br := &Reader{r: r}
	if s, ok := r.(io.Seeker); ok {
		br.rs = s
	}
	return br
}

// Read copies decoded bytes into p, refilling blocks as needed.
func (r *Reader) Read(p []byte) (int, error) {
	var n int
	for n < len(p) {
		if r.blockOff == len(r.block) {
			if err := r.nextBlock(); err != nil {
				if n > 0 && err == io.EOF {
					return n, nil
				}
				return n, err
			}
			continue
		}
		c := copy(p[n:], r.block[r.blockOff:])
		n += c
		r.blockOff += c
	}
	return n, nil
}

// ReadByte returns the next decoded byte.
func (r *Reader) ReadByte() (byte, error) {
	for r.blockOff == len(r.block) {
		if err := r.nextBlock(); err != nil {
			return 0, err
		}
	}
	b := r.block[r.blockOff]
	r.blockOff++
	return b, nil
}

// Tell returns the virtual offset of the next byte Read would return.
func (r *Reader) Tell() VirtualOffset {
	if r.blockOff == len(r.block) && r.blockOff > 0 {
		// At a block boundary the canonical position is the start of the
		// next block, matching what Seek expects.
		return MakeVirtualOffset(r.next, 0)
	}
	return MakeVirtualOffset(r.coffset, r.blockOff)
}

// Seek positions the reader at v. The block containing v is decoded and
// its first Uoffset bytes are consumed.
func (r *Reader) Seek(v VirtualOffset) error {
	if r.rs == nil {
		return ErrSeekUnsupported
	}
	if _, err := r.rs.Seek(v.Coffset(), io.SeekStart); err != nil {
		return fmt.Errorf("bgzf: seek to %s: %w", v, err)
	}
	r.next = v.Coffset()
	r.coffset = v.Coffset()
	r.block = nil
	r.blockOff = 0
	r.err = nil
	if v.Uoffset() == 0 {
		return nil
	}
	if err := r.nextBlock(); err != nil {
		return err
	}
	if v.Uoffset() > len(r.block) {
		return fmt.Errorf("%w: uoffset %d beyond block of %d bytes",
			ErrTruncatedBlock, v.Uoffset(), len(r.block))
	}
	r.blockOff = v.Uoffset()
	return nil
}

// nextBlock reads and decodes the block at r.next. Empty blocks (such as
// the EOF marker) are skipped; io.EOF is reported at end of stream.
func (r *Reader) nextBlock() error {
	if r.err != nil {
		return r.err
	}
	for {
		var hdr [12]byte
		if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
			if err == io.EOF {
				r.err = io.EOF
				return io.EOF
			}
			r.err = fmt.Errorf("%w: short header: %v", ErrTruncatedBlock, err)
			return r.err
		}
		if hdr[0] != 0x1f || hdr[1] != 0x8b || hdr[2] != 8 {
			r.err = ErrBadMagic
			return r.err
		}
		if hdr[3]&0x04 == 0 {
			r.err = fmt.Errorf("%w: missing FEXTRA", ErrBadMagic)
			return r.err
		}
		xlen := int(hdr[10]) | int(hdr[11])<<8
		extra := make([]byte, xlen)
		if _, err := io.ReadFull(r.r, extra); err != nil {
			r.err = fmt.Errorf("%w: short extra field: %v", ErrTruncatedBlock, err)
			return r.err
		}
		bsize, err := findBSize(extra)
		if err != nil {
			r.err = err
			return err
		}

		// Compressed payload plus footer; 12-byte header and XLEN bytes
		// of extra fields already consumed.
		rest := bsize + 1 - 12 - xlen
		if rest < footerLen {
			r.err = fmt.Errorf("%w: block size %d", ErrTruncatedBlock, bsize+1)
			return r.err
		}
		if cap(r.scratch) < rest {
			r.scratch = make([]byte, rest)
		}
		buf := r.scratch[:rest]
		if _, err := io.ReadFull(r.r, buf); err != nil {
			r.err = fmt.Errorf("%w: short block body: %v", ErrTruncatedBlock, err)
			return r.err
		}
		cdata := buf[:rest-footerLen]
		footer := buf[rest-footerLen:]
		wantCRC := le32(footer[0:4])
		isize := int(le32(footer[4:8]))

		block, err := r.inflateBlock(cdata, isize)
		if err != nil {
			r.err = err
			return err
		}
		if crc32.ChecksumIEEE(block) != wantCRC {
			r.err = fmt.Errorf("%w at offset %d", ErrBadCRC, r.next)
			return r.err
		}

		r.coffset = r.next
		r.next += int64(bsize + 1)
		r.block = block
		r.blockOff = 0
		if len(block) == 0 {
			// Empty block: EOF marker or flush point, keep going.
			continue
		}
		return nil
	}
}

func (r *Reader) inflateBlock(cdata []byte, isize int) ([]byte, error) {
	if isize < 0 || isize > BlockMax {
		return nil, fmt.Errorf("%w: ISIZE %d", ErrTruncatedBlock, isize)
	}
	if r.inflate == nil {
		r.inflate = flate.NewReader(bytes.NewReader(cdata))
	} else {
		if err := r.inflate.(flate.Resetter).Reset(bytes.NewReader(cdata), nil); err != nil {
			return nil, fmt.Errorf("bgzf: inflate reset: %w", err)
		}
	}
	block := make([]byte, isize)
	if _, err := io.ReadFull(r.inflate, block); err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrTruncatedBlock, err)
	}
	return block, nil
}

// findBSize scans the gzip extra area for the BC subfield and returns
// BSIZE (total block size minus one).
func findBSize(extra []byte) (int, error) {
	for len(extra) >= 4 {
		slen := int(extra[2]) | int(extra[3])<<8
		if extra[0] == 'B' && extra[1] == 'C' && slen == 2 && len(extra) >= 6 {
			return int(extra[4]) | int(extra[5])<<8, nil
		}
		if len(extra) < 4+slen {
			break
		}
		extra = extra[4+slen:]
	}
	return 0, fmt.Errorf("%w: missing BC subfield", ErrBadMagic)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
