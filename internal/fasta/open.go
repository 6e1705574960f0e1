package fasta

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Stdin is the path literal selecting standard input.
const Stdin = "stdin"

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open returns a streaming reader over path. "stdin" selects standard
// input. Gzip (including BGZF, which is gzip-compatible when read
// sequentially) is detected by its magic bytes, not the file name.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return decompressMaybe(io.NopCloser(os.Stdin))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return decompressMaybe(f)
}

func decompressMaybe(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(rc, 64*1024)
	sig, err := br.Peek(2)
	if err != nil || len(sig) < 2 || sig[0] != 0x1f || sig[1] != 0x8b {
		return &multiReadCloser{Reader: br, closers: []io.Closer{rc}}, nil
	}
	gr, err := gzip.NewReader(br)
	if err != nil {
		rc.Close()
		return nil, err
	}
	gr.Multistream(true)
	return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, rc}}, nil
}

// OpenReader opens path and wraps it for record streaming. The returned
// closer owns the underlying file.
func OpenReader(path string) (*Reader, io.Closer, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReader(rc), rc, nil
}
