package sketch

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/seq"
)

var ntUpper = [4]byte{'A', 'C', 'G', 'T'}

// eachRun invokes fn for every maximal run of hashable bytes. For DNA a
// run is consecutive A/C/G/T (case folded, U as T) and fn receives both
// the normalized forward run and its reverse complement; any other byte
// breaks the run and restarts the window. For protein a run is
// consecutive ASCII letters and rc is nil.
func (sk *Sketcher) eachRun(s []byte, fn func(fwd, rc []byte)) {
	if sk.params.Alphabet == Protein {
		start := -1
		for i := 0; i <= len(s); i++ {
			ok := i < len(s) && isLetter(s[i])
			if ok && start < 0 {
				start = i
			}
			if !ok && start >= 0 {
				fn(s[start:i], nil)
				start = -1
			}
		}
		return
	}

	var fwd []byte
	flush := func() {
		if len(fwd) >= sk.params.K {
			rc := seq.RevComp(fwd)
			fn(fwd, rc)
		}
		fwd = fwd[:0]
	}
	for _, b := range s {
		code := seq.NtCode[b]
		if code > 3 {
			flush()
			continue
		}
		fwd = append(fwd, ntUpper[code])
	}
	flush()
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// kmerHash returns the hash of the i-th k-mer of a run: canonical
// (minimum of forward and reverse-complement hashes) for DNA, literal
// for protein.
func (sk *Sketcher) kmerHash(hf func([]byte) uint64, fwd, rc []byte, i int) uint64 {
	k := sk.params.K
	h := hf(fwd[i : i+k])
	if rc == nil {
		return h
	}
	hr := hf(rc[len(rc)-i-k : len(rc)-i])
	if hr < h {
		return hr
	}
	return h
}

// windowMinimizers emits the (w,k)-minimizers of s into bm: for every
// window of w consecutive k-mers, the smallest hash, earliest position
// winning ties. A monotonic deque keeps the scan O(L) with O(1)
// amortized work per k-mer.
func (sk *Sketcher) windowMinimizers(bm *roaring64.Bitmap, s []byte) {
	k, w := sk.params.K, sk.params.W
	hf := sk.params.Hasher.Func()

	type cand struct {
		idx int
		h   uint64
	}
	var deque []cand

	sk.eachRun(s, func(fwd, rc []byte) {
		n := len(fwd) - k + 1
		if n <= 0 {
			return
		}
		deque = deque[:0]
		for i := 0; i < n; i++ {
			h := sk.kmerHash(hf, fwd, rc, i)
			// Strict comparison keeps the earliest of equal hashes in
			// front, so ties resolve to the lowest position.
			for len(deque) > 0 && deque[len(deque)-1].h > h {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, cand{idx: i, h: h})
			if deque[0].idx <= i-w {
				deque = deque[1:]
			}
			if i >= w-1 {
				bm.Add(deque[0].h)
			}
		}
		// A run shorter than one full window still contributes its
		// overall minimum.
		if n < w {
			bm.Add(deque[0].h)
		}
	})
}

// modMinimizers emits every k-mer whose hash is divisible by w,
// producing a scaled sketch of expected size (L-k+1)/w.
func (sk *Sketcher) modMinimizers(bm *roaring64.Bitmap, s []byte) {
	k, w := sk.params.K, sk.params.W
	hf := hash.Rapid.Func()
	mod := uint64(w)

	sk.eachRun(s, func(fwd, rc []byte) {
		n := len(fwd) - k + 1
		for i := 0; i < n; i++ {
			h := sk.kmerHash(hf, fwd, rc, i)
			if h%mod == 0 {
				bm.Add(h)
			}
		}
	})
}
