package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/hash"
	"github.com/hupe1980/hnsm/internal/sketch"
)

var sketchCmd = &cobra.Command{
	Use:   "sketch <infile>",
	Short: "Write minimizer sketches to a reusable file",
	Long: `Sketch a FA file once and save the result. The output (*.sk) embeds
the sketching parameters and can replace a FA input of "hnsm distance",
skipping the sketching pass of repeated runs. Parameters of the sketch
file and the distance run must match.`,
	Args: cobra.ExactArgs(1),
	RunE: runSketch,
}

func init() {
	sketchCmd.Flags().IntP("kmer", "k", 7, "K-mer size")
	sketchCmd.Flags().IntP("window", "w", 1, "Window size for minimizers, or modulus for --hasher mod")
	sketchCmd.Flags().String("hasher", "rapid", "Hash algorithm (rapid|fx|murmur|mod)")
	sketchCmd.Flags().String("alphabet", "auto", "Sequence alphabet (auto|dna|protein)")
	sketchCmd.Flags().Bool("merge", false, "Union all sequences into one sketch")
	sketchCmd.Flags().StringP("outfile", "o", "", "Output sketch file (default: <infile>.sk)")
	rootCmd.AddCommand(sketchCmd)
}

func runSketch(cmd *cobra.Command, args []string) error {
	hasher, err := hash.ParseKind(mustString(cmd, "hasher"))
	if err != nil {
		return err
	}
	merge, _ := cmd.Flags().GetBool("merge")

	e, err := sketch.NewEngine(sketch.Options{
		K:        flagInt(cmd, "kmer", mustInt(cmd, "kmer")),
		W:        flagInt(cmd, "window", mustInt(cmd, "window")),
		Hasher:   hasher,
		Alphabet: mustString(cmd, "alphabet"),
	})
	if err != nil {
		return err
	}

	sketches, err := e.LoadFile(args[0], merge)
	if err != nil {
		return err
	}
	if len(sketches) == 0 {
		return fmt.Errorf("sketch: no records in %s", args[0])
	}

	outfile := mustString(cmd, "outfile")
	if outfile == "" {
		outfile = args[0] + ".sk"
	}
	return sketch.SaveSketchFile(outfile, sketches[0].Params, sketches)
}
