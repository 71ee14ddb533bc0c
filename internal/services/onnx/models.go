package onnx

import (
	"context"
	"fmt"

	"diarize/internal/services"
)

const (
	modelSegmentation = "segmentation"
	modelEmbedding    = "embedding"
)

// SegmentationModel classifies a fixed-size window into per-step class scores.
type SegmentationModel struct {
	worker *Worker
}

// Segmentation returns the segmentation adapter for w.
func (w *Worker) Segmentation() SegmentationModel { return SegmentationModel{worker: w} }

func (m SegmentationModel) Ready() bool {
	return m.worker != nil && m.worker.Loaded(modelSegmentation)
}

// Classify returns one score row per time step.
func (m SegmentationModel) Classify(ctx context.Context, window []float32) ([][]float32, error) {
	if !m.Ready() {
		return nil, services.Wrap(services.ErrModelUnavailable, "onnx", opClassify, "segmentation model not loaded", nil)
	}
	shape, values, err := m.worker.call(ctx, opClassify, window)
	if err != nil {
		return nil, err
	}
	rows, err := reshape2D(values, shape)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "onnx", opClassify, "unexpected output", err)
	}
	return rows, nil
}

// EmbeddingModel maps a fixed-length sample vector to a speaker embedding.
type EmbeddingModel struct {
	worker *Worker
}

// Embedding returns the embedding adapter for w.
func (w *Worker) Embedding() EmbeddingModel { return EmbeddingModel{worker: w} }

func (m EmbeddingModel) Ready() bool {
	return m.worker != nil && m.worker.Loaded(modelEmbedding)
}

func (m EmbeddingModel) Embed(ctx context.Context, samples []float32) ([]float32, error) {
	if !m.Ready() {
		return nil, services.Wrap(services.ErrModelUnavailable, "onnx", opEmbed, "embedding model not loaded", nil)
	}
	shape, values, err := m.worker.call(ctx, opEmbed, samples)
	if err != nil {
		return nil, err
	}
	dim := 1
	for _, d := range shape {
		dim *= d
	}
	if len(values) == 0 || dim != len(values) {
		return nil, services.Wrap(services.ErrExternalTool, "onnx", opEmbed, "unexpected output", fmt.Errorf("shape %v with %d values", shape, len(values)))
	}
	return values, nil
}
