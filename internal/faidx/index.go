// Package faidx builds and consumes .loc indexes for random access into
// FASTA files, and extracts ranges through a whole-sequence LRU cache.
//
// The .loc file is a TSV with one record per line:
//
//	name <TAB> seq_length <TAB> seq_offset <TAB> line_bases <TAB> line_width
//
// preceded by a "#loc\tv1" version line. Offsets are plain byte offsets
// for uncompressed inputs and BGZF virtual offsets for .gz inputs.
package faidx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/hnsm/internal/bgzf"
)

const locVersion = "#loc\tv1"

var (
	ErrNameNotFound          = errors.New("faidx: name not found")
	ErrBadRange              = errors.New("faidx: bad range")
	ErrDuplicateName         = errors.New("faidx: duplicate record name")
	ErrInconsistentLineWidth = errors.New("faidx: inconsistent sequence line width")
)

// Entry locates one record inside the input file.
type Entry struct {
	Name      string
	SeqLength int64
	SeqOffset uint64 // byte offset, or BGZF virtual offset
	LineBases int    // bases per interior sequence line
	LineWidth int    // LineBases plus line terminator length
}

// Index maps record names to entries, preserving first-seen order.
type Index struct {
	entries []Entry
	byName  map[string]int
}

// Get returns the entry for name.
func (ix *Index) Get(name string) (Entry, bool) {
	i, ok := ix.byName[name]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Entries returns all entries in insertion order.
func (ix *Index) Entries() []Entry { return ix.entries }

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.entries) }

func (ix *Index) add(e Entry) error {
	if _, dup := ix.byName[e.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateName, e.Name)
	}
	ix.byName[e.Name] = len(ix.entries)
	ix.entries = append(ix.entries, e)
	return nil
}

// lineSource yields terminator-stripped lines plus the width each line
// occupied on disk, and reports the offset of the upcoming line. Offsets
// are byte offsets for plain inputs and virtual offsets for BGZF.
type lineSource interface {
	readLine() (line []byte, width int, err error)
	tell() uint64
}

type plainLines struct {
	br  *bufio.Reader
	off uint64
}

func (p *plainLines) tell() uint64 { return p.off }

func (p *plainLines) readLine() ([]byte, int, error) {
	line, err := p.br.ReadBytes('\n')
	if len(line) == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, 0, err
	}
	width := len(line)
	p.off += uint64(width)
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, width, nil
}

type bgzfLines struct {
	r   *bgzf.Reader
	buf []byte
}

func (b *bgzfLines) tell() uint64 { return uint64(b.r.Tell()) }

func (b *bgzfLines) readLine() ([]byte, int, error) {
	b.buf = b.buf[:0]
	for {
		c, err := b.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(b.buf) > 0 {
				break
			}
			return nil, 0, err
		}
		b.buf = append(b.buf, c)
		if c == '\n' {
			break
		}
	}
	width := len(b.buf)
	line := b.buf
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, width, nil
}

// Build scans a FASTA input once and produces its index. The source must
// be positioned at the start.
func Build(src lineSource) (*Index, error) {
	ix := &Index{byName: make(map[string]int)}

	var cur *Entry
	var sawShortLine bool
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := ix.add(*cur); err != nil {
			return err
		}
		cur = nil
		return nil
	}

	for {
		line, width, err := src.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(line) > 0 && line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			name := string(line[1:])
			if i := strings.IndexAny(name, " \t"); i >= 0 {
				name = name[:i]
			}
			cur = &Entry{Name: name, SeqOffset: src.tell()}
			sawShortLine = false
			continue
		}
		if cur == nil {
			// Junk before the first header.
			continue
		}
		if len(line) == 0 {
			// A blank line ends the sequence body; any further sequence
			// line for this record would be misaligned.
			sawShortLine = true
			continue
		}
		if sawShortLine {
			return nil, fmt.Errorf("%w: record %s", ErrInconsistentLineWidth, cur.Name)
		}
		if cur.LineBases == 0 {
			cur.LineBases = len(line)
			cur.LineWidth = width
		} else if len(line) != cur.LineBases || width != cur.LineWidth {
			// The final line may be shorter; anything after it may not.
			if len(line) > cur.LineBases {
				return nil, fmt.Errorf("%w: record %s", ErrInconsistentLineWidth, cur.Name)
			}
			sawShortLine = true
		}
		cur.SeqLength += int64(len(line))
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return ix, nil
}

// BuildFile indexes path. BGZF inputs are detected by their header and
// indexed with virtual offsets.
func BuildFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hdr [18]byte
	n, _ := io.ReadFull(f, hdr[:])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if n == len(hdr) && bgzf.IsBGZF(hdr[:]) {
		return Build(&bgzfLines{r: bgzf.NewReader(f)})
	}
	return Build(&plainLines{br: bufio.NewReaderSize(f, 64*1024)})
}

// Save writes the index as a .loc file.
func (ix *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, locVersion)
	for _, e := range ix.entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			e.Name, e.SeqLength, e.SeqOffset, e.LineBases, e.LineWidth)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a .loc file written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ix := &Index{byName: make(map[string]int)}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			if line != locVersion {
				return nil, fmt.Errorf("faidx: %s: unsupported .loc version %q", path, line)
			}
			continue
		}
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, fmt.Errorf("faidx: %s: malformed .loc line %q", path, line)
		}
		var e Entry
		e.Name = fields[0]
		if e.SeqLength, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return nil, fmt.Errorf("faidx: %s: %w", path, err)
		}
		if e.SeqOffset, err = strconv.ParseUint(fields[2], 10, 64); err != nil {
			return nil, fmt.Errorf("faidx: %s: %w", path, err)
		}
		if e.LineBases, err = strconv.Atoi(fields[3]); err != nil {
			return nil, fmt.Errorf("faidx: %s: %w", path, err)
		}
		if e.LineWidth, err = strconv.Atoi(fields[4]); err != nil {
			return nil, fmt.Errorf("faidx: %s: %w", path, err)
		}
		if err := ix.add(e); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ix, nil
}

// LocPath returns the conventional index path for an input file.
func LocPath(input string) string { return input + ".loc" }
