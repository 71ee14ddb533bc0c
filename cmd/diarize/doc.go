// Command diarize splits a mono recording into speaker turns.
//
// The run subcommand loads a WAV or raw 16-bit PCM file, starts the ONNX
// model worker, and prints a JSON, YAML, or table report. The config,
// history, and preflight subcommands manage configuration, past run
// summaries, and environment checks.
package main
