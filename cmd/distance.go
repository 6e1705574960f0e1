package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/fasta"
	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/sketch"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <query.fa> [target.fa]",
	Short: "Estimate distances between DNA/protein sequences using minimizers",
	Long: `Estimate pairwise distances between sequences using (w,k)-minimizer
sketches.

Output columns:
    <query> <target> <mash_distance> <jaccard_index> <containment_index>
With --merge, per-file union sketches are compared instead:
    <qfile> <tfile> <|A|> <|B|> <inter> <union> <mash> <jaccard> <containment>

With one input file, sequences are compared against themselves. Sketch
files written by "hnsm sketch" (*.sk) are accepted in place of FA files.
--list reads file paths from the query input (one per line) and emits
all ordered pairs in merged mode.

Guidance: DNA works well with -k 21 -w 5, proteins with -k 7 -w 2.
--hasher mod selects scaled ModHash sketching (keep hashes divisible
by w) instead of window minimizers.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDistance,
}

func init() {
	distanceCmd.Flags().IntP("kmer", "k", 7, "K-mer size")
	distanceCmd.Flags().IntP("window", "w", 1, "Window size for minimizers, or modulus for --hasher mod")
	distanceCmd.Flags().String("hasher", "rapid", "Hash algorithm (rapid|fx|murmur|mod)")
	distanceCmd.Flags().String("alphabet", "auto", "Sequence alphabet (auto|dna|protein)")
	distanceCmd.Flags().Bool("merge", false, "Union all sequences of a file into one sketch")
	distanceCmd.Flags().Bool("list", false, "Read file paths from the query input; implies --merge")
	distanceCmd.Flags().Bool("zero", false, "Also write results with zero Jaccard index")
	distanceCmd.Flags().Bool("sim", false, "Convert distance to similarity (1 - distance)")
	distanceCmd.Flags().IntP("parallel", "p", 1, "Number of worker threads")
	distanceCmd.Flags().StringP("outfile", "o", "stdout", "Output filename, stdout for screen")
	rootCmd.AddCommand(distanceCmd)
}

func runDistance(cmd *cobra.Command, args []string) error {
	hasher, err := hash.ParseKind(mustString(cmd, "hasher"))
	if err != nil {
		return err
	}
	list, _ := cmd.Flags().GetBool("list")
	merge, _ := cmd.Flags().GetBool("merge")
	zero, _ := cmd.Flags().GetBool("zero")
	sim, _ := cmd.Flags().GetBool("sim")

	e, err := sketch.NewEngine(sketch.Options{
		K:        flagInt(cmd, "kmer", mustInt(cmd, "kmer")),
		W:        flagInt(cmd, "window", mustInt(cmd, "window")),
		Hasher:   hasher,
		Alphabet: mustString(cmd, "alphabet"),
		Merge:    merge || list,
		Zero:     zero,
		Sim:      sim,
		Workers:  flagInt(cmd, "parallel", mustInt(cmd, "parallel")),
	})
	if err != nil {
		return err
	}

	out, flush, err := outWriter(mustString(cmd, "outfile"))
	if err != nil {
		return err
	}

	if list {
		if len(args) != 1 {
			return fmt.Errorf("distance: --list takes exactly one input")
		}
		paths, err := readPathList(args[0])
		if err != nil {
			return err
		}
		if err := e.RunList(cmd.Context(), paths, out); err != nil {
			flush()
			return err
		}
		return flush()
	}

	target := ""
	if len(args) == 2 {
		target = args[1]
	}
	if err := e.Run(cmd.Context(), args[0], target, out); err != nil {
		flush()
		return err
	}
	return flush()
}

func readPathList(path string) ([]string, error) {
	var f *os.File
	if path == fasta.Stdin {
		f = os.Stdin
	} else {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		defer f.Close()
	}
	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, sc.Err()
}
