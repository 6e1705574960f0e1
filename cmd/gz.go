package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/bgzf"
	"github.com/hupe1980/hnsm/internal/fasta"
)

var gzCmd = &cobra.Command{
	Use:   "gz <infile>",
	Short: "Compress a file into BGZF with a block index",
	Long: `Compress a file using BGZF (blocked gzip), writing <infile>.gz and a
companion <infile>.gz.gzi block index for random access. "stdin" reads
standard input (then -o is required).`,
	Args: cobra.ExactArgs(1),
	RunE: runGz,
}

func init() {
	gzCmd.Flags().IntP("parallel", "p", 1, "Number of compression workers")
	gzCmd.Flags().StringP("outfile", "o", "", "Output filename (default: <infile>.gz)")
	rootCmd.AddCommand(gzCmd)
}

func runGz(cmd *cobra.Command, args []string) error {
	infile := args[0]
	workers := flagInt(cmd, "parallel", mustInt(cmd, "parallel"))

	outfile, _ := cmd.Flags().GetString("outfile")
	if outfile == "" {
		if infile == fasta.Stdin {
			return fmt.Errorf("gz: reading stdin requires -o")
		}
		outfile = infile + ".gz"
	}

	var in io.ReadCloser
	if infile == fasta.Stdin {
		in = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(infile)
		if err != nil {
			return err
		}
		in = f
	}
	defer in.Close()

	out, err := os.Create(outfile)
	if err != nil {
		return err
	}
	bw := bgzf.NewWriter(out, workers)
	if _, err := io.Copy(bw, in); err != nil {
		out.Close()
		return err
	}
	if err := bw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return bgzf.WriteGziFile(outfile+".gzi", bw.Index())
}

func mustInt(cmd *cobra.Command, name string) int {
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(err)
	}
	return v
}
