// Package observe records diarization metrics through the OpenTelemetry
// Metrics API.
//
// Each CLI run installs a [Recorder] backed by a manual reader so the run's
// counters and histograms can be summarized once the pipeline finishes.
// Library code takes a [*Metrics] and falls back to [DefaultMetrics], which
// uses the global meter provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "diarize"

// Metric names.
const (
	MetricRunDuration     = "diarize.run.duration"
	MetricPhaseDuration   = "diarize.phase.duration"
	MetricModelCalls      = "diarize.model.calls"
	MetricModelDuration   = "diarize.model.duration"
	MetricWindows         = "diarize.windows"
	MetricChangePoints    = "diarize.change_points"
	MetricSegments        = "diarize.segments"
	MetricSegmentFallback = "diarize.segment.fallbacks"
	MetricSpeakers        = "diarize.speakers"
)

// Metrics holds the instruments recorded by the pipeline.
type Metrics struct {
	RunDuration     metric.Float64Histogram
	PhaseDuration   metric.Float64Histogram
	ModelDuration   metric.Float64Histogram
	ModelCalls      metric.Int64Counter
	Windows         metric.Int64Counter
	ChangePoints    metric.Int64Counter
	Segments        metric.Int64Counter
	SegmentFallback metric.Int64Counter
	Speakers        metric.Int64Histogram
}

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

// NewMetrics creates every instrument using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RunDuration, err = m.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Wall time of one diarization run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhaseDuration, err = m.Float64Histogram(MetricPhaseDuration,
		metric.WithDescription("Wall time of a pipeline phase by phase name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelDuration, err = m.Float64Histogram(MetricModelDuration,
		metric.WithDescription("Latency of a single model call by model kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelCalls, err = m.Int64Counter(MetricModelCalls,
		metric.WithDescription("Model calls by model kind and status."),
	); err != nil {
		return nil, err
	}
	if met.Windows, err = m.Int64Counter(MetricWindows,
		metric.WithDescription("Segmentation windows scanned."),
	); err != nil {
		return nil, err
	}
	if met.ChangePoints, err = m.Int64Counter(MetricChangePoints,
		metric.WithDescription("Change points produced, including synthesized ones."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter(MetricSegments,
		metric.WithDescription("Segments labeled."),
	); err != nil {
		return nil, err
	}
	if met.SegmentFallback, err = m.Int64Counter(MetricSegmentFallback,
		metric.WithDescription("Segments that received the fallback speaker assignment."),
	); err != nil {
		return nil, err
	}
	if met.Speakers, err = m.Int64Histogram(MetricSpeakers,
		metric.WithDescription("Distinct speakers found per run."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance bound to the global meter
// provider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordModelCall counts one model call and its latency.
func (m *Metrics) RecordModelCall(ctx context.Context, model, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("status", status))
	m.ModelCalls.Add(ctx, 1, attrs)
	m.ModelDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("model", model)))
}

// RecordPhase records the duration of one pipeline phase.
func (m *Metrics) RecordPhase(ctx context.Context, phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordRun records the totals of a finished run.
func (m *Metrics) RecordRun(ctx context.Context, seconds float64, windows, changePoints, segments, fallbacks, speakers int) {
	if m == nil {
		return
	}
	m.RunDuration.Record(ctx, seconds)
	m.Windows.Add(ctx, int64(windows))
	m.ChangePoints.Add(ctx, int64(changePoints))
	m.Segments.Add(ctx, int64(segments))
	m.SegmentFallback.Add(ctx, int64(fallbacks))
	m.Speakers.Record(ctx, int64(speakers))
}
