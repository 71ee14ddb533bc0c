// Package services defines shared utilities consumed by the diarization
// pipeline and its external model integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and pipeline phase names for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is.
//
// Model worker clients live in subpackages (see services/onnx).
package services
