// Package audio holds the in-memory sample buffer used by a diarization run
// and the helpers that shape samples before they reach a model.
//
// Buffers are mono float32 at a declared sample rate. Windows are fixed-length
// views over a buffer, zero-padded at the tail, and every slice handed to a
// model is peak-normalized so no sample exceeds unit magnitude.
//
// Load reads WAV (via go-wav) and raw little-endian 16-bit PCM. It never
// resamples: a file whose rate differs from the requested rate is rejected.
package audio
