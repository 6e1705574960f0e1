package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/fasta"
	"github.com/hupe1980/hnsm/internal/vector"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity <vecs.tsv> [target.tsv]",
	Short: "Calculate similarity between feature vectors",
	Long: `Calculate pairwise similarity between labeled vectors. The input is a
TSV whose first column is a name and remaining columns the features;
all vectors must share one dimension.

Modes:
  * euclid  - 1/(1+d), or the Euclidean distance itself with --dis
  * cosine  - cosine similarity, or 1-cos with --dis
  * jaccard - weighted Jaccard, or popcount Jaccard on bits with --bin

--bin thresholds every value (non-zero becomes 1); with --mode jaccard
the vectors are bit-packed and compared by popcount.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSimilarity,
}

func init() {
	similarityCmd.Flags().String("mode", "euclid", "Mode of calculation (euclid|cosine|jaccard)")
	similarityCmd.Flags().Bool("bin", false, "Treat values as binary (0 or 1)")
	similarityCmd.Flags().Bool("dis", false, "Report distance instead of similarity")
	similarityCmd.Flags().Float64P("threshold", "t", 0, "Only emit pairs with score >= threshold")
	similarityCmd.Flags().Bool("no-self", false, "Skip pairs of identical names")
	similarityCmd.Flags().IntP("parallel", "p", 1, "Number of worker threads")
	similarityCmd.Flags().StringP("outfile", "o", "stdout", "Output filename, stdout for screen")
	rootCmd.AddCommand(similarityCmd)
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	mode, err := vector.ParseMode(mustString(cmd, "mode"))
	if err != nil {
		return err
	}
	bin, _ := cmd.Flags().GetBool("bin")
	dis, _ := cmd.Flags().GetBool("dis")
	noSelf, _ := cmd.Flags().GetBool("no-self")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	e := vector.NewEngine(vector.Options{
		Mode:         mode,
		Bin:          bin,
		Dis:          dis,
		Threshold:    threshold,
		HasThreshold: cmd.Flags().Changed("threshold"),
		NoSelf:       noSelf,
		Workers:      flagInt(cmd, "parallel", mustInt(cmd, "parallel")),
	})

	query, qclose, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer qclose()

	var target io.Reader
	if len(args) == 2 {
		t, tclose, err := openInput(args[1])
		if err != nil {
			return err
		}
		defer tclose()
		target = t
	}

	out, flush, err := outWriter(mustString(cmd, "outfile"))
	if err != nil {
		return err
	}
	if err := e.Run(cmd.Context(), query, target, out); err != nil {
		flush()
		return err
	}
	return flush()
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == fasta.Stdin {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
