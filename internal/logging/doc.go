// Package logging assembles structured slog loggers and formatting helpers used
// across diarize.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with the run identifier and phase. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
