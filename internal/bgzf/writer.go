package bgzf

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"
)

// Writer produces a BGZF stream. Incoming bytes are cut into blocks of at
// most blockPayload uncompressed bytes; blocks are compressed by a fixed
// worker pool and written strictly in submission order. Close appends the
// EOF marker. Writer is not safe for concurrent use.
type Writer struct {
	w io.Writer

	buf     []byte
	jobs    chan *block
	pending chan *block
	g       *errgroup.Group

	mu     sync.Mutex
	index  []IndexEntry
	werr   error
	closed bool

	coffset int64 // compressed bytes written so far
	uoffset int64 // uncompressed bytes consumed into finished blocks
}

type block struct {
	data []byte
	out  []byte
	err  error
	done chan struct{}
}

// IndexEntry records one block boundary for the .gzi companion index.
type IndexEntry struct {
	Compressed   int64
	Uncompressed int64
}

// NewWriter returns a Writer compressing with the given worker count.
// workers < 1 is treated as 1.
func NewWriter(w io.Writer, workers int) *Writer {
	if workers < 1 {
		workers = 1
	}
	bw := &Writer{
		w:       w,
		jobs:    make(chan *block, workers*2),
		pending: make(chan *block, workers*2),
	}
	bw.g = &errgroup.Group{}
	for i := 0; i < workers; i++ {
		bw.g.Go(func() error {
			for b := range bw.jobs {
				b.out, b.err = deflateBlock(b.data)
				close(b.done)
			}
			return nil
		})
	}
	bw.g.Go(bw.emit)
	return bw
}

// emit writes finished blocks in submission order and keeps the block
// index current.
func (w *Writer) emit() error {
	for b := range w.pending {
		<-b.done
		w.mu.Lock()
		if w.werr == nil && b.err != nil {
			w.werr = b.err
		}
		if w.werr != nil {
			w.mu.Unlock()
			continue
		}
		w.mu.Unlock()

		if _, err := w.w.Write(b.out); err != nil {
			w.mu.Lock()
			w.werr = fmt.Errorf("bgzf: write block: %w", err)
			w.mu.Unlock()
			continue
		}
		w.coffset += int64(len(b.out))
		w.uoffset += int64(len(b.data))
		w.index = append(w.index, IndexEntry{
			Compressed:   w.coffset,
			Uncompressed: w.uoffset,
		})
	}
	return nil
}

// Write buffers p and submits full blocks to the worker pool.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("bgzf: write on closed writer")
	}
	w.buf = append(w.buf, p...)
	for len(w.buf) >= blockPayload {
		w.submit(w.buf[:blockPayload])
		w.buf = w.buf[blockPayload:]
	}
	w.mu.Lock()
	err := w.werr
	w.mu.Unlock()
	return len(p), err
}

func (w *Writer) submit(data []byte) {
	b := &block{
		data: append([]byte(nil), data...),
		done: make(chan struct{}),
	}
	w.pending <- b
	w.jobs <- b
}

// Close flushes the remainder, waits for the pool and writes the EOF
// marker.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.buf) > 0 {
		w.submit(w.buf)
		w.buf = nil
	}
	close(w.jobs)
	close(w.pending)
	if err := w.g.Wait(); err != nil {
		return err
	}
	if w.werr != nil {
		return w.werr
	}
	if _, err := w.w.Write(eofMarker); err != nil {
		return fmt.Errorf("bgzf: write EOF marker: %w", err)
	}
	return nil
}

// Index returns the block boundaries recorded so far. Valid after Close.
func (w *Writer) Index() []IndexEntry { return w.index }

// deflateBlock wraps one uncompressed payload as a complete BGZF block.
func deflateBlock(data []byte) ([]byte, error) {
	if len(data) > BlockMax {
		return nil, fmt.Errorf("bgzf: payload of %d bytes exceeds block limit", len(data))
	}
	var body bytes.Buffer
	fw, err := flate.NewWriter(&body, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	total := headerLen + body.Len() + footerLen
	if total > BlockMax {
		return nil, fmt.Errorf("bgzf: incompressible block of %d bytes", total)
	}
	out := make([]byte, 0, total)
	out = append(out,
		0x1f, 0x8b, 8, 0x04, // magic, deflate, FEXTRA
		0, 0, 0, 0, // MTIME
		0, 0xff, // XFL, OS unknown
		6, 0, // XLEN
		'B', 'C', 2, 0,
		byte(total-1), byte((total-1)>>8),
	)
	out = append(out, body.Bytes()...)
	crc := crc32.ChecksumIEEE(data)
	out = append(out,
		byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24),
		byte(len(data)), byte(len(data)>>8), byte(len(data)>>16), byte(len(data)>>24),
	)
	return out, nil
}
