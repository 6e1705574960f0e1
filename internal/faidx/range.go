package faidx

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed query of the form name[(+|-)][:start-end].
// Coordinates are 1-based inclusive; Start == 0 means the whole record.
type Range struct {
	Name   string
	Strand byte // '+' or '-'
	Start  int64
	End    int64
}

// Whole reports whether the query selects the entire record.
func (r Range) Whole() bool { return r.Start == 0 }

func (r Range) String() string {
	if r.Whole() {
		if r.Strand == '-' {
			return fmt.Sprintf("%s(-)", r.Name)
		}
		return r.Name
	}
	if r.Strand == '-' {
		return fmt.Sprintf("%s(-):%d-%d", r.Name, r.Start, r.End)
	}
	return fmt.Sprintf("%s:%d-%d", r.Name, r.Start, r.End)
}

// ParseRange parses a query string. Coordinates are validated for shape
// here; bounds against the record length are checked at extraction time.
func ParseRange(s string) (Range, error) {
	rg := Range{Strand: '+'}
	head := s
	spanned := false

	// A trailing :start-end is recognized by the last colon whose suffix
	// parses as two dash-separated integers; names may contain colons.
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		if start, end, ok := parseSpan(s[i+1:]); ok {
			head = s[:i]
			rg.Start, rg.End = start, end
			spanned = true
		}
	}
	if strings.HasSuffix(head, "(+)") {
		head = head[:len(head)-3]
	} else if strings.HasSuffix(head, "(-)") {
		head = head[:len(head)-3]
		rg.Strand = '-'
	}
	if head == "" {
		return Range{}, fmt.Errorf("%w: empty name in %q", ErrBadRange, s)
	}
	rg.Name = head

	if spanned && (rg.Start < 1 || rg.Start > rg.End) {
		return Range{}, fmt.Errorf("%w: %q", ErrBadRange, s)
	}
	return rg, nil
}

func parseSpan(s string) (int64, int64, bool) {
	i := strings.IndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
