// Package onnx runs the segmentation and embedding ONNX models in a
// long-lived Python worker launched through uvx.
//
// The worker speaks line-delimited JSON over stdin/stdout. Sample and tensor
// payloads travel as base64-encoded little-endian float32 arrays. One Worker
// serves both models; SegmentationModel and EmbeddingModel adapt it to the
// diarization model interfaces.
package onnx
