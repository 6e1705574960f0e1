// Package cmd wires the hnsm command-line interface.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/hnsm/internal/bgzf"
	"github.com/hupe1980/hnsm/internal/faidx"
	"github.com/hupe1980/hnsm/internal/logging"
	"github.com/hupe1980/hnsm/internal/sketch"
	"github.com/hupe1980/hnsm/internal/vector"
)

var (
	logLevel string
	logJSON  bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hnsm",
	Short: "Homogeneous nucleic acid and amino acid smart matching",
	Long: `hnsm works with FA files: indexed random access (plain and BGZF),
minimizer-based sequence distances and vector similarity.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(logLevel, logJSON)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
}

// initConfig loads optional defaults from $HOME/.hnsm.yaml; flags always
// win over the config file.
func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(".hnsm")
	viper.SetEnvPrefix("hnsm")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// flagInt resolves an integer flag, falling back to the config file when
// the flag was left at its default.
func flagInt(cmd *cobra.Command, name string, val int) int {
	if !cmd.Flags().Changed(name) && viper.IsSet(name) {
		return viper.GetInt(name)
	}
	return val
}

// Execute runs the CLI and exits with 1 for user errors and 2 for I/O
// and data-integrity errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hnsm: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// userErrs exit with code 1; everything else is treated as an I/O or
// integrity failure and exits with 2.
var userErrs = []error{
	faidx.ErrBadRange,
	faidx.ErrNameNotFound,
	faidx.ErrDuplicateName,
	faidx.ErrInconsistentLineWidth,
	sketch.ErrIncompatibleAlphabet,
	vector.ErrBadDimension,
	vector.ErrNonFinite,
}

func exitCode(err error) int {
	for _, ue := range userErrs {
		if errors.Is(err, ue) {
			return 1
		}
	}
	for _, ie := range []error{
		bgzf.ErrBadMagic, bgzf.ErrTruncatedBlock, bgzf.ErrBadCRC, bgzf.ErrSeekUnsupported,
	} {
		if errors.Is(err, ie) {
			return 2
		}
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return 2
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return 2
	}
	// Remaining cases are flag and argument mistakes from cobra.
	return 1
}

// outWriter resolves an --outfile value; "stdout" selects standard
// output.
func outWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "stdout" {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
