package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnsm/internal/fasta"
)

// The small reporting subcommands share one streaming pass.

var sizeCmd = &cobra.Command{
	Use:   "size <infile>",
	Short: "Print the lengths of FA records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecords(cmd, args[0], func(out io.Writer, rec *fasta.Record) error {
			_, err := fmt.Fprintf(out, "%s\t%d\n", rec.Name, len(rec.Seq))
			return err
		}, nil)
	},
}

var countCmd = &cobra.Command{
	Use:   "count <infile>",
	Short: "Count records and total bases in a FA file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var records, bases int64
		return withRecords(cmd, args[0], func(out io.Writer, rec *fasta.Record) error {
			records++
			bases += int64(len(rec.Seq))
			return nil
		}, func(out io.Writer) error {
			_, err := fmt.Fprintf(out, "%d\t%d\n", records, bases)
			return err
		})
	},
}

var n50Cmd = &cobra.Command{
	Use:   "n50 <infile>",
	Short: "Compute the N50 of a FA file (prints the N50 only, not the total bases)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lens []int
		return withRecords(cmd, args[0], func(out io.Writer, rec *fasta.Record) error {
			lens = append(lens, len(rec.Seq))
			return nil
		}, func(out io.Writer) error {
			_, err := fmt.Fprintf(out, "N50\t%d\n", n50(lens))
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{sizeCmd, countCmd, n50Cmd} {
		c.Flags().StringP("outfile", "o", "stdout", "Output filename, stdout for screen")
		rootCmd.AddCommand(c)
	}
}

// withRecords streams records of one input through fn, then runs the
// optional epilogue.
func withRecords(cmd *cobra.Command, path string, fn func(io.Writer, *fasta.Record) error, done func(io.Writer) error) error {
	r, closer, err := fasta.OpenReader(path)
	if err != nil {
		return err
	}
	defer closer.Close()

	out, flush, err := outWriter(mustString(cmd, "outfile"))
	if err != nil {
		return err
	}
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			flush()
			return err
		}
		if err := fn(out, rec); err != nil {
			flush()
			return err
		}
	}
	if done != nil {
		if err := done(out); err != nil {
			flush()
			return err
		}
	}
	return flush()
}

// n50 is the length of the shortest record in the smallest set of
// longest records covering half the total bases.
func n50(lens []int) int {
	if len(lens) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lens)))
	var total int64
	for _, l := range lens {
		total += int64(l)
	}
	var acc int64
	for _, l := range lens {
		acc += int64(l)
		if acc*2 >= total {
			return l
		}
	}
	return lens[len(lens)-1]
}
