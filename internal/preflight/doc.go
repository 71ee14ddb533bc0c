// Package preflight checks that the directories, model files, and model
// worker toolchain a run depends on are usable before any audio is processed.
//
// The CLI "diarize preflight" command prints every Result and fails when any
// check fails. "diarize run" calls RunAll first and prints failures as
// warnings, then continues in degraded mode. CheckModelWorker starts the
// worker for real, so it only runs with --load-models.
package preflight
