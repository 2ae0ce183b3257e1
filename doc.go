// Package nbrun provides the shared vocabulary for executing notebooks
// against an interactive compute kernel.
//
// nbrun drives the code cells of a notebook document, in document order,
// through a long-lived kernel subprocess and records the kernel's output
// back into the document.
//
// # Core Types
//
//   - [Notebook] / [Cell] — the in-memory document model, mutated in place
//   - [Output] — tagged variant for recorded cell outputs
//   - [RunConfig] — per-run configuration (failure policy, working dir)
//   - [NotebookError] / [KernelStartupError] — the two errors that cross
//     the engine boundary
//
// # Vocabulary
//
// The root package defines data and errors only — no goroutines, no I/O.
// The engine lives in subpackages:
//
//   - kernel — kernel process lifecycle and the correlated event channel
//   - runner — per-cell orchestration and failure policy
//   - nbformat — ipynb reading and writing
//   - kernelspec — named kernel launch definitions
//
// # Quick Start
//
//	nb, err := nbformat.Read(f)
//	if err != nil { log.Fatal(err) }
//	sess, err := kernel.Start(ctx, kernelspec.Default(), cfg)
//	if err != nil { log.Fatal(err) }
//	defer sess.Shutdown()
//	err = runner.New(sess, cfg).Run(ctx, nb)
package nbrun

// Version is the nbrun release version.
const Version = "0.4.0"
