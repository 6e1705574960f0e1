package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/faidx"
	"github.com/hupe1980/hnsm/internal/fasta"
)

var rangeCmd = &cobra.Command{
	Use:   "range <infile> [ranges...]",
	Short: "Extract sequence regions by coordinates",
	Long: `Extract regions from an indexed FA file (plain or BGZF).

Range format: name(strand):start-end
  * strand is optional, + (default) or -
  * start-end is optional and 1-based inclusive; without it the whole
    record is returned
  * coordinates always refer to the plus strand

A .loc index is created next to the input on first use. Recently used
sequences are kept in an LRU cache, so keep intra-contig queries
adjacent for best performance.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRange,
}

func init() {
	rangeCmd.Flags().StringP("rgfile", "r", "", "File of ranges, one per line")
	rangeCmd.Flags().IntP("cache", "c", 5, "Capacity of the sequence LRU cache")
	rangeCmd.Flags().BoolP("update", "u", false, "Force update of the .loc index file")
	rangeCmd.Flags().Bool("strict", false, "Abort the batch on the first failing range")
	rangeCmd.Flags().StringP("outfile", "o", "stdout", "Output filename, stdout for screen")
	rootCmd.AddCommand(rangeCmd)
}

func runRange(cmd *cobra.Command, args []string) error {
	infile := args[0]
	ranges := args[1:]

	if rgfile, _ := cmd.Flags().GetString("rgfile"); rgfile != "" {
		fromFile, err := readRangeFile(rgfile)
		if err != nil {
			return err
		}
		ranges = append(ranges, fromFile...)
	}
	if len(ranges) == 0 {
		return fmt.Errorf("range: no ranges given")
	}

	update, _ := cmd.Flags().GetBool("update")
	strict, _ := cmd.Flags().GetBool("strict")
	cacheCap := flagInt(cmd, "cache", mustInt(cmd, "cache"))

	ix, err := openIndex(infile, update)
	if err != nil {
		return err
	}
	ex, err := faidx.NewExtractor(infile, ix, cacheCap)
	if err != nil {
		return err
	}
	defer ex.Close()

	out, flush, err := outWriter(mustString(cmd, "outfile"))
	if err != nil {
		return err
	}

	for _, q := range ranges {
		rec, err := ex.Extract(q)
		if err != nil {
			if strict {
				flush()
				return err
			}
			slog.Error("range failed", "query", q, "error", err)
			continue
		}
		if err := fasta.Write(out, rec, 0); err != nil {
			flush()
			return err
		}
	}
	return flush()
}

// openIndex loads <infile>.loc, building it first when missing or when a
// rebuild is forced.
func openIndex(infile string, update bool) (*faidx.Index, error) {
	loc := faidx.LocPath(infile)
	if _, err := os.Stat(loc); err != nil || update {
		ix, err := faidx.BuildFile(infile)
		if err != nil {
			return nil, err
		}
		if err := ix.Save(loc); err != nil {
			return nil, err
		}
		return ix, nil
	}
	return faidx.Load(loc)
}

func readRangeFile(path string) ([]string, error) {
	var rc *os.File
	if path == fasta.Stdin {
		rc = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rc = f
	}
	var out []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		// Only the first column matters, so range files can be TSVs.
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			line = line[:i]
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func mustString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(err)
	}
	return v
}
