package diarization

import "context"

// SegmentationModel scores one fixed-size window. The result has one row per
// time step and one column per class.
type SegmentationModel interface {
	Ready() bool
	Classify(ctx context.Context, window []float32) ([][]float32, error)
}

// EmbeddingModel maps prepared segment samples to a raw speaker embedding.
type EmbeddingModel interface {
	Ready() bool
	Embed(ctx context.Context, samples []float32) ([]float32, error)
}

const (
	modelSegmentation = "segmentation"
	modelEmbedding    = "embedding"
)
