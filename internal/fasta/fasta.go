// Package fasta provides streaming FASTA input over plain, gzip and BGZF
// sources, and record output. Random access is not handled here; see
// internal/faidx for indexed extraction.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Record is one FASTA record. Name is the first whitespace-delimited
// token of the header, Desc the remainder (may be empty). Seq holds the
// concatenated sequence lines with terminators stripped; case and IUPAC
// ambiguity codes are preserved.
type Record struct {
	Name string
	Desc string
	Seq  []byte
}

// Reader streams records from a FASTA source.
type Reader struct {
	br   *bufio.Reader
	head []byte // pending header line, without '>'
	done bool
}

// NewReader wraps r for record streaming.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.head == nil {
		// Skip anything before the first header.
		for {
			line, err := r.readLine()
			if err != nil {
				r.done = true
				return nil, err
			}
			if len(line) > 0 && line[0] == '>' {
				r.head = line[1:]
				break
			}
		}
	}

	rec := &Record{}
	rec.Name, rec.Desc = splitHeader(r.head)
	r.head = nil

	var seq []byte
	for {
		line, err := r.readLine()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) > 0 && line[0] == '>' {
			r.head = line[1:]
			break
		}
		seq = append(seq, line...)
	}
	rec.Seq = seq
	return rec, nil
}

// readLine returns the next line without its terminator.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if len(line) == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

// splitHeader separates a header line into name and description.
func splitHeader(line []byte) (string, string) {
	i := bytes.IndexAny(line, " \t")
	if i < 0 {
		return string(line), ""
	}
	return string(line[:i]), string(bytes.TrimLeft(line[i:], " \t"))
}

// Header renders the record's header line content (without '>').
func (r *Record) Header() string {
	if r.Desc == "" {
		return r.Name
	}
	return r.Name + " " + r.Desc
}

// Write emits rec to w. lineWidth 0 writes the sequence on a single line;
// otherwise lines are wrapped at lineWidth bases.
func Write(w io.Writer, rec *Record, lineWidth int) error {
	if _, err := fmt.Fprintf(w, ">%s\n", rec.Header()); err != nil {
		return err
	}
	if lineWidth <= 0 {
		_, err := fmt.Fprintf(w, "%s\n", rec.Seq)
		return err
	}
	for off := 0; off < len(rec.Seq); off += lineWidth {
		end := off + lineWidth
		if end > len(rec.Seq) {
			end = len(rec.Seq)
		}
		if _, err := fmt.Fprintf(w, "%s\n", rec.Seq[off:end]); err != nil {
			return err
		}
	}
	return nil
}
