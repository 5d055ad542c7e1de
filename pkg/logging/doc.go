// Package logging provides subsystem-tagged structured logging for toolshed.
//
// The package is a thin layer over the standard slog package. Every entry
// carries a subsystem attribute so that output from the store, the mutation
// pipeline and the lifecycle orchestrator can be told apart:
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Pipeline", "Wrote %s", path)
//	logging.Warn("Inventory", "Skipping unreadable store %s", path)
//	logging.Error("Lifecycle", err, "Move of %s failed", id)
//
// Command output goes to stdout; logs always go to the writer passed to
// Init (stderr in the CLI) so that piping `toolshed list -o json`
// stays machine-readable.
//
// Before initialization, Debug and Info are dropped and Warn/Error fall back
// to a plain line on stderr.
package logging
