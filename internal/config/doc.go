// Package config loads, normalizes, and validates diarize configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// model locations (DIARIZE_SEGMENTATION_MODEL, DIARIZE_EMBEDDING_MODEL). The
// similarity threshold is clamped into its supported range here so the
// pipeline never sees an out-of-range value.
package config
