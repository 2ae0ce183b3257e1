package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nbrun [input-file] [output-file]",
	Short: "nbrun executes a notebook's code cells and records their output",
	Long: `nbrun runs the code cells of a notebook against an interactive kernel,
in document order, and writes the notebook back with outputs and
execution counts filled in.

The input is a .ipynb file (or stdin with --stdin or "-"); the output is
a second positional file, "-" or --stdout for standard output, or the
input itself with --overwrite.`,
	Args:          cobra.MaximumNArgs(2),
	RunE:          runNotebook,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var flags struct {
	overwrite        bool
	stdin            bool
	stdout           bool
	quiet            bool
	skipExceptions   bool
	noChdir          bool
	profileDir       string
	interactivePlots bool
	kernel           string
	kernelsConfig    string
	eventTimeout     time.Duration
	startupTimeout   time.Duration
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&flags.overwrite, "overwrite", "o", false, "write notebook output back to the input file")
	f.BoolVar(&flags.stdin, "stdin", false, "read the notebook from stdin (or use - as input-file)")
	f.BoolVar(&flags.stdout, "stdout", false, "print the notebook to stdout (or use - as output-file)")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "don't print anything unless things go wrong")
	f.BoolVarP(&flags.skipExceptions, "skip-exceptions", "s", false, "if an exception occurs in a cell, continue running the subsequent cells")
	f.BoolVar(&flags.noChdir, "no-chdir", false, "do not run the kernel in the notebook's directory")
	f.StringVar(&flags.profileDir, "profile-dir", "", "set the kernel profile location directly")
	f.BoolVar(&flags.interactivePlots, "interactive-plots", false, "start the kernel with its interactive plotting preamble")
	f.StringVar(&flags.kernel, "kernel", "", "kernel name to run against (default from the kernels config)")
	f.StringVar(&flags.kernelsConfig, "kernels-config", "", "path to a kernels.yaml with kernel launch definitions")
	f.DurationVar(&flags.eventTimeout, "event-timeout", 0, "maximum wait between kernel events for one cell")
	f.DurationVar(&flags.startupTimeout, "startup-timeout", 0, "maximum wait for the kernel to become ready")
}
