package report

import (
	"time"

	"diarize/internal/diarization"
)

// Report is the serialized form of one run.
type Report struct {
	RunID         string         `json:"run_id" yaml:"run_id"`
	Segments      []SegmentEntry `json:"segments" yaml:"segments"`
	TotalSpeakers int            `json:"total_speakers" yaml:"total_speakers"`
	TotalDuration float64        `json:"total_duration" yaml:"total_duration"`
	AudioPath     string         `json:"audio_path" yaml:"audio_path"`
	AudioDuration float64        `json:"audio_duration" yaml:"audio_duration"`
	CreatedAt     string         `json:"created_at" yaml:"created_at"`
	ModelInfo     ModelInfo      `json:"model_info" yaml:"model_info"`
	Speakers      []SpeakerEntry `json:"speakers" yaml:"speakers"`
	ChangePoints  []float64      `json:"change_points,omitempty" yaml:"change_points,omitempty"`
	Fallbacks     int            `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type SegmentEntry struct {
	StartTime  float64 `json:"start_time" yaml:"start_time"`
	EndTime    float64 `json:"end_time" yaml:"end_time"`
	SpeakerID  int     `json:"speaker_id" yaml:"speaker_id"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Duration   float64 `json:"duration" yaml:"duration"`
	Text       string  `json:"text,omitempty" yaml:"text,omitempty"`
}

type ModelInfo struct {
	SegmentModel   string  `json:"segment_model" yaml:"segment_model"`
	EmbeddingModel string  `json:"embedding_model" yaml:"embedding_model"`
	MaxSpeakers    int     `json:"max_speakers" yaml:"max_speakers"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
}

type SpeakerEntry struct {
	SpeakerID         int     `json:"speaker_id" yaml:"speaker_id"`
	SegmentCount      int     `json:"segment_count" yaml:"segment_count"`
	TotalDuration     float64 `json:"total_duration" yaml:"total_duration"`
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
}

// Source describes the inputs of a run that the Result does not carry.
type Source struct {
	AudioPath      string
	SegmentModel   string
	EmbeddingModel string
	MaxSpeakers    int
	Threshold      float64
	CreatedAt      time.Time
}

// Build converts a run result into a Report. TotalDuration is the end of the
// last segment, or zero when there are none.
func Build(result diarization.Result, src Source) Report {
	created := src.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	r := Report{
		RunID:         result.RunID,
		Segments:      make([]SegmentEntry, 0, len(result.Segments)),
		TotalSpeakers: len(result.Speakers),
		AudioPath:     src.AudioPath,
		AudioDuration: result.Duration,
		CreatedAt:     created.UTC().Format(time.RFC3339Nano),
		ModelInfo: ModelInfo{
			SegmentModel:   src.SegmentModel,
			EmbeddingModel: src.EmbeddingModel,
			MaxSpeakers:    src.MaxSpeakers,
			Threshold:      src.Threshold,
		},
		Speakers:     make([]SpeakerEntry, 0, len(result.Speakers)),
		ChangePoints: result.ChangePoints,
		Fallbacks:    result.Fallbacks,
		Warnings:     result.Warnings,
	}
	for _, seg := range result.Segments {
		r.Segments = append(r.Segments, SegmentEntry{
			StartTime:  seg.Start,
			EndTime:    seg.End,
			SpeakerID:  seg.SpeakerID,
			Confidence: seg.Confidence,
			Duration:   seg.Duration(),
			Text:       seg.Text,
		})
	}
	if n := len(result.Segments); n > 0 {
		r.TotalDuration = result.Segments[n-1].End
	}
	for _, st := range result.Speakers {
		r.Speakers = append(r.Speakers, SpeakerEntry{
			SpeakerID:         st.ID,
			SegmentCount:      st.SegmentCount,
			TotalDuration:     st.TotalDuration,
			AverageConfidence: st.AverageConfidence,
		})
	}
	return r
}
