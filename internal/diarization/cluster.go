package diarization

import (
	"context"
	"time"

	"diarize/internal/audio"
	"diarize/internal/logging"
	"diarize/internal/segment"
	"diarize/internal/services"
	"diarize/internal/speaker"
)

// fallbackConfidence labels segments whose speaker could not be computed.
const fallbackConfidence = 0.5

// outcome is the result of processing one segment against the current state.
type outcome struct {
	state      speaker.State
	assignment speaker.Assignment
	err        error
}

// clusterPhase folds segments in start order through the speaker state. A
// failing segment is labeled index mod MaxSpeakers and the fold continues.
func (e *Engine) clusterPhase(ctx context.Context, segments []segment.Segment, result *Result) ([]segment.Segment, error) {
	logger := logging.WithContext(ctx, e.logger)
	if e.embedding == nil || !e.embedding.Ready() {
		result.warn(logger, "embedding model unavailable", "embedding_unavailable",
			"no speaker labels produced",
			logging.Int("segments_dropped", len(segments)),
		)
		return nil, nil
	}

	started := time.Now()
	params := speaker.Params{Threshold: e.opts.AssignmentThreshold(), MaxSpeakers: e.opts.MaxSpeakers}
	length := e.opts.embeddingLength(result.SampleRate)
	state := e.state
	labeled := make([]segment.Segment, 0, len(segments))

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := e.processSegment(ctx, state, seg, length, params)
		if out.err != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result.Fallbacks++
			seg.SpeakerID = i % params.MaxSpeakers
			seg.Confidence = fallbackConfidence
			logging.WarnWithContext(logger, "segment fallback", "segment_fallback",
				logging.Int("segment", i),
				logging.Float64("start", seg.Start),
				logging.Int("speaker_id", seg.SpeakerID),
				logging.Error(out.err),
				logging.String(logging.FieldImpact, "speaker label guessed from segment index"),
			)
			labeled = append(labeled, seg)
			continue
		}
		state = out.state
		seg.SpeakerID = out.assignment.SpeakerID
		seg.Confidence = out.assignment.Confidence
		if out.assignment.Created {
			logger.Debug("speaker created",
				logging.Int("speaker_id", seg.SpeakerID),
				logging.Float64("start", seg.Start),
			)
		}
		labeled = append(labeled, seg)
	}

	e.state = state
	e.metrics.RecordPhase(ctx, phaseClustering, time.Since(started).Seconds())
	logger.Info("speakers assigned",
		logging.Int("segments", len(labeled)),
		logging.Int("speaker_profiles", state.Len()),
		logging.Int("fallbacks", result.Fallbacks),
	)
	return labeled, nil
}

func (e *Engine) processSegment(ctx context.Context, state speaker.State, seg segment.Segment, length int, params speaker.Params) outcome {
	if len(seg.Samples) == 0 {
		return outcome{err: services.Wrap(services.ErrSegmentFailure, "diarizer", "embed", "segment has no samples", nil)}
	}
	input := audio.PrepareEmbeddingInput(seg.Samples, length)

	started := time.Now()
	raw, err := e.embedding.Embed(ctx, input)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordModelCall(ctx, modelEmbedding, status, time.Since(started).Seconds())
	if err != nil {
		return outcome{err: err}
	}
	if len(raw) == 0 {
		return outcome{err: services.Wrap(services.ErrSegmentFailure, "diarizer", "embed", "empty embedding", nil)}
	}

	next, assignment, err := state.Assign(speaker.FromFloat32(raw).Normalize(), params)
	if err != nil {
		return outcome{err: services.Wrap(services.ErrSegmentFailure, "diarizer", "assign", "", err)}
	}
	return outcome{state: next, assignment: assignment}
}
