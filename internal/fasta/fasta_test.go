package fasta

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnsm/internal/bgzf"
)

func readAll(t *testing.T, r *Reader) []*Record {
	t.Helper()
	var recs []*Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func TestReader(t *testing.T) {
	in := ">seq1 first record\nACGT\nacgt\n>seq2\nNNNN\n\n>seq3\n"
	recs := readAll(t, NewReader(strings.NewReader(in)))

	require.Len(t, recs, 3)
	assert.Equal(t, "seq1", recs[0].Name)
	assert.Equal(t, "first record", recs[0].Desc)
	assert.Equal(t, []byte("ACGTacgt"), recs[0].Seq)
	assert.Equal(t, "seq2", recs[1].Name)
	assert.Equal(t, []byte("NNNN"), recs[1].Seq)
	assert.Equal(t, "seq3", recs[2].Name)
	assert.Empty(t, recs[2].Seq)
}

func TestReaderCRLF(t *testing.T) {
	in := ">a\r\nACGT\r\nTT\r\n"
	recs := readAll(t, NewReader(strings.NewReader(in)))
	require.Len(t, recs, 1)
	assert.Equal(t, []byte("ACGTTT"), recs[0].Seq)
}

func TestReaderNoTrailingNewline(t *testing.T) {
	in := ">a\nACGT"
	recs := readAll(t, NewReader(strings.NewReader(in)))
	require.Len(t, recs, 1)
	assert.Equal(t, []byte("ACGT"), recs[0].Seq)
}

func TestWriteWrapped(t *testing.T) {
	rec := &Record{Name: "a", Desc: "d", Seq: []byte("ACGTACGTAC")}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec, 4))
	assert.Equal(t, ">a d\nACGT\nACGT\nAC\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, rec, 0))
	assert.Equal(t, ">a d\nACGTACGTAC\n", buf.String())
}

func TestOpenPlainAndBGZF(t *testing.T) {
	content := ">chr1\nACGTACGT\nTTTT\n>chr2\nGGGG\n"
	dir := t.TempDir()

	plain := filepath.Join(dir, "in.fa")
	require.NoError(t, os.WriteFile(plain, []byte(content), 0o644))

	zipped := filepath.Join(dir, "in.fa.gz")
	f, err := os.Create(zipped)
	require.NoError(t, err)
	zw := bgzf.NewWriter(f, 1)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, zipped} {
		r, closer, err := OpenReader(path)
		require.NoError(t, err)
		recs := readAll(t, r)
		require.NoError(t, closer.Close())

		require.Len(t, recs, 2, path)
		assert.Equal(t, []byte("ACGTACGTTTTT"), recs[0].Seq, path)
		assert.Equal(t, []byte("GGGG"), recs[1].Seq, path)
	}
}
