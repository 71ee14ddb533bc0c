package diarization

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"diarize/internal/audio"
	"diarize/internal/changepoint"
	"diarize/internal/logging"
	"diarize/internal/observe"
	"diarize/internal/segment"
	"diarize/internal/services"
	"diarize/internal/speaker"
)

const (
	phaseDetection  = "detection"
	phaseSegmenting = "segmenting"
	phaseClustering = "clustering"
)

// Result is the outcome of one Run.
type Result struct {
	RunID        string
	Duration     float64
	SampleRate   int
	Segments     []segment.Segment
	Speakers     []SpeakerStats
	ChangePoints []float64
	// Windows counts scanned windows; FailedWindows those that contributed no frames.
	Windows       int
	FailedWindows int
	// DetectionFallback is set when change points were synthesized.
	DetectionFallback bool
	// Fallbacks counts segments labeled by index because embedding or assignment failed.
	Fallbacks int
	Warnings  []string
	Elapsed   time.Duration
}

// Engine orchestrates one diarization run at a time.
type Engine struct {
	segmentation SegmentationModel
	embedding    EmbeddingModel
	opts         Options
	detector     changepoint.Detector
	logger       *slog.Logger
	metrics      *observe.Metrics

	mu    sync.Mutex
	state speaker.State
}

// NewEngine wires the models and options into an Engine. Either model may be
// nil; a missing model is treated as not ready.
func NewEngine(seg SegmentationModel, emb EmbeddingModel, opts Options, options ...Option) *Engine {
	e := &Engine{
		segmentation: seg,
		embedding:    emb,
		opts:         opts,
		logger:       logging.NewNop(),
		metrics:      observe.DefaultMetrics(),
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "diarizer")
	return e
}

// Reset discards all speaker profiles.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.state = speaker.State{}
	e.mu.Unlock()
}

// Speakers reports how many speaker profiles the last run created.
func (e *Engine) Speakers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Len()
}

// Profiles returns a copy of the speaker profiles from the last run.
func (e *Engine) Profiles() []speaker.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Profiles()
}

// Run diarizes buf. Model failures degrade the result rather than failing the
// run; invalid input and context cancellation return an error.
func (e *Engine) Run(ctx context.Context, buf audio.Buffer) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := e.validate(buf); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = speaker.State{}

	started := time.Now()
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	result := Result{RunID: runID, Duration: buf.Duration(), SampleRate: buf.SampleRate}
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("diarization started",
		logging.Float64("duration_seconds", result.Duration),
		logging.Int("sample_rate", buf.SampleRate),
		logging.Float64("threshold", e.opts.SimilarityThreshold),
		logging.Int("max_speakers", e.opts.MaxSpeakers),
	)

	points, err := e.detectPhase(services.WithPhase(ctx, phaseDetection), buf, &result)
	if err != nil {
		return Result{}, err
	}
	result.ChangePoints = points

	phaseStart := time.Now()
	segments := segment.Build(points, buf)
	e.metrics.RecordPhase(ctx, phaseSegmenting, time.Since(phaseStart).Seconds())
	logging.WithContext(services.WithPhase(ctx, phaseSegmenting), e.logger).Info("segments built",
		logging.Int("change_points", len(points)),
		logging.Int("segments", len(segments)),
	)

	labeled, err := e.clusterPhase(services.WithPhase(ctx, phaseClustering), segments, &result)
	if err != nil {
		return Result{}, err
	}
	result.Segments = labeled
	result.Speakers = speakerStats(labeled)
	result.Elapsed = time.Since(started)

	e.metrics.RecordRun(ctx, result.Elapsed.Seconds(), result.Windows, len(result.ChangePoints),
		len(result.Segments), result.Fallbacks, len(result.Speakers))
	logger.Info("diarization completed",
		logging.Int("segments", len(result.Segments)),
		logging.Int("speakers", len(result.Speakers)),
		logging.Int("fallbacks", result.Fallbacks),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (e *Engine) validate(buf audio.Buffer) error {
	if err := buf.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "diarizer", "validate", "invalid audio buffer", err)
	}
	if e.opts.SampleRate > 0 && buf.SampleRate != e.opts.SampleRate {
		return services.Wrap(services.ErrValidation, "diarizer", "validate",
			fmt.Sprintf("sample rate %d does not match model rate %d", buf.SampleRate, e.opts.SampleRate), nil)
	}
	if e.opts.MaxSpeakers < 1 {
		return services.Wrap(services.ErrConfiguration, "diarizer", "validate",
			fmt.Sprintf("max_speakers must be at least 1, got %d", e.opts.MaxSpeakers), nil)
	}
	return nil
}

func (r *Result) warn(logger *slog.Logger, msg, eventType, impact string, attrs ...logging.Attr) {
	r.Warnings = append(r.Warnings, msg)
	attrs = append(attrs, logging.String(logging.FieldImpact, impact))
	logging.WarnWithContext(logger, msg, eventType, attrs...)
}
