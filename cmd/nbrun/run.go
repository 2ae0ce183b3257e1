package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbrun/nbrun"
	"github.com/nbrun/nbrun/internal/logging"
	"github.com/nbrun/nbrun/kernel"
	"github.com/nbrun/nbrun/kernelspec"
	"github.com/nbrun/nbrun/nbformat"
	"github.com/nbrun/nbrun/runner"
)

func runNotebook(cmd *cobra.Command, args []string) error {
	var inputPath, outputPath string
	if len(args) > 0 {
		inputPath = args[0]
	}
	if len(args) > 1 {
		outputPath = args[1]
	}

	if flags.overwrite {
		if outputPath != "" {
			return errors.New("output-file must not be provided with --overwrite")
		}
		outputPath = inputPath
	}

	useStdin := flags.stdin || inputPath == "-" || inputPath == ""
	if inputPath == "" && !flags.stdin && stdinIsTerminal() {
		return cmd.Help()
	}
	if useStdin && flags.overwrite {
		return errors.New("--overwrite requires an input file, not stdin")
	}

	logger := logging.New(flags.quiet)
	defer func() { _ = logger.Sync() }()

	nb, workingDir, err := readNotebook(useStdin, inputPath, logger)
	if err != nil {
		return err
	}
	if flags.noChdir {
		workingDir = ""
	}

	cfg := nbrun.RunConfig{
		OnFailure:   nbrun.PolicyAbort,
		WorkingDir:  workingDir,
		ProfileDir:  expandHome(flags.profileDir),
		ExtraOutput: flags.interactivePlots,
	}
	if flags.skipExceptions {
		cfg.OnFailure = nbrun.PolicyContinue
	}

	spec, err := resolveKernel()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessOpts := []kernel.SessionOption{
		kernel.WithLogger(logger),
		kernel.WithStderr(os.Stderr),
	}
	if flags.startupTimeout > 0 {
		sessOpts = append(sessOpts, kernel.WithStartupTimeout(flags.startupTimeout))
	}
	sess, err := kernel.Start(ctx, spec.CommandFor(cfg), cfg.WorkingDir, sessOpts...)
	if err != nil {
		return err
	}
	defer sess.Shutdown()

	runOpts := []runner.Option{runner.WithLogger(logger)}
	if flags.eventTimeout > 0 {
		runOpts = append(runOpts, runner.WithEventTimeout(flags.eventTimeout))
	}
	runErr := runner.New(sess, cfg, runOpts...).Run(ctx, nb)
	if runErr != nil {
		if index, ok := nbrun.FailedCell(runErr); ok {
			logger.Warn("run aborted", zap.Int("cell", index))
		}
	}

	if err := writeNotebook(nb, outputPath, logger); err != nil {
		return err
	}
	return runErr
}

// readNotebook loads the document and derives the kernel working
// directory from the input file's location.
func readNotebook(useStdin bool, inputPath string, logger *zap.Logger) (*nbrun.Notebook, string, error) {
	if useStdin {
		logger.Info("reading notebook from stdin")
		nb, err := nbformat.Read(os.Stdin)
		return nb, "", err
	}

	logger.Info("reading notebook", zap.String("path", inputPath))
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	nb, err := nbformat.Read(f)
	if err != nil {
		return nil, "", err
	}
	return nb, filepath.Dir(inputPath), nil
}

// writeNotebook serializes the mutated document to the requested sink:
// a file, stdout with --stdout or "-", or nowhere.
func writeNotebook(nb *nbrun.Notebook, outputPath string, logger *zap.Logger) error {
	if outputPath != "" && outputPath != "-" {
		logger.Info("saving notebook", zap.String("path", outputPath))
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		if err := nbformat.Write(f, nb); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if flags.stdout || outputPath == "-" {
		if err := nbformat.Write(os.Stdout, nb); err != nil {
			return err
		}
	}
	return nil
}

// resolveKernel picks the launch definition: an explicit kernels config
// file when given, the built-in python3 definition otherwise.
func resolveKernel() (kernelspec.Spec, error) {
	config := kernelspec.DefaultConfig()
	if flags.kernelsConfig != "" {
		loaded, err := kernelspec.Load(flags.kernelsConfig)
		if err != nil {
			return kernelspec.Spec{}, err
		}
		config = loaded
	}
	return config.Lookup(flags.kernel)
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// expandHome resolves a leading ~/ the way runners are usually invoked
// from shells that did not expand it.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
