// Package history stores one summary row per diarization run in SQLite.
//
// Summaries carry counts, timings, and per-speaker totals only. Speaker
// centroids are never written, so identities cannot be carried across runs.
// Writers take an advisory file lock next to the database so concurrent CLI
// invocations serialize their inserts.
package history
