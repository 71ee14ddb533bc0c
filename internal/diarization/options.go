package diarization

import (
	"log/slog"
	"math"

	"diarize/internal/audio"
	"diarize/internal/config"
	"diarize/internal/observe"
)

// Options are the pipeline tuning knobs for one Engine.
type Options struct {
	// SampleRate is the rate the models expect; zero accepts any rate.
	SampleRate              int
	SimilarityThreshold     float64
	MaxSpeakers             int
	TargetEmbeddingDuration float64
	PreEmphasis             float64
	DetectionWorkers        int
	DetectionMin            float64
	DetectionScale          float64
	AssignmentMin           float64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(nil)
}

// OptionsFromConfig extracts engine options from the diarization section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	d := cfg.Diarization
	return Options{
		SampleRate:              d.SampleRate,
		SimilarityThreshold:     d.SimilarityThreshold,
		MaxSpeakers:             d.MaxSpeakers,
		TargetEmbeddingDuration: d.TargetEmbeddingDuration,
		PreEmphasis:             d.PreEmphasis,
		DetectionWorkers:        d.DetectionWorkers,
		DetectionMin:            d.DetectionMin,
		DetectionScale:          d.DetectionScale,
		AssignmentMin:           d.AssignmentMin,
	}
}

// DetectionThreshold is the threshold handed to the change point detector.
func (o Options) DetectionThreshold() float64 {
	return math.Max(o.DetectionMin, o.SimilarityThreshold*o.DetectionScale)
}

// AssignmentThreshold is the cosine similarity a segment must exceed to join
// an existing speaker.
func (o Options) AssignmentThreshold() float64 {
	return math.Max(o.AssignmentMin, o.SimilarityThreshold)
}

func (o Options) embeddingLength(sampleRate int) int {
	return int(o.TargetEmbeddingDuration * float64(sampleRate))
}

func (o Options) windowPlan() audio.WindowPlan {
	plan := audio.DefaultWindowPlan()
	plan.PreEmphasis = o.PreEmphasis
	return plan
}

func (o Options) workers() int {
	if o.DetectionWorkers < 1 {
		return 1
	}
	return o.DetectionWorkers
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger routes engine logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records run metrics on m instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}
