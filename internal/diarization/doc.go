// Package diarization runs the full pipeline over one recording: windowed
// segmentation, change point detection, segmentation into turns, and online
// speaker clustering of per-segment embeddings.
//
// Engine owns the per-run speaker state. Each Run starts from an empty state,
// so identical input produces identical output on a fresh Engine.
package diarization
