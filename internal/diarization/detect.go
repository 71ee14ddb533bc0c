package diarization

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"diarize/internal/audio"
	"diarize/internal/changepoint"
	"diarize/internal/logging"
)

type windowFrames struct {
	frames []changepoint.Frame
	failed bool
}

// detectPhase classifies every window and returns the change points. When the
// segmentation model is unavailable no points are returned and the segmenter
// falls back to fixed-length segments.
func (e *Engine) detectPhase(ctx context.Context, buf audio.Buffer, result *Result) ([]float64, error) {
	logger := logging.WithContext(ctx, e.logger)
	if e.segmentation == nil || !e.segmentation.Ready() {
		result.warn(logger, "segmentation model unavailable", "segmentation_unavailable",
			"using fixed-length segments")
		return nil, nil
	}

	started := time.Now()
	perWindow, err := e.scanWindows(ctx, buf)
	if err != nil {
		return nil, err
	}

	threshold := e.opts.DetectionThreshold()
	var frames []changepoint.Frame
	for i, w := range perWindow {
		result.Windows++
		if w.failed {
			result.FailedWindows++
			continue
		}
		frames = append(frames, w.frames...)
		if logger.Enabled(ctx, slog.LevelDebug) {
			local := changepoint.LocalPeaks(changepoint.Score(w.frames), threshold)
			logger.Debug("window scored",
				logging.Int("window", i),
				logging.Int("frames", len(w.frames)),
				logging.Int("local_peaks", len(local)),
			)
		}
	}

	detection := e.detector.Analyze(frames, threshold, buf.Duration())
	result.DetectionFallback = detection.Fallback
	e.metrics.RecordPhase(ctx, phaseDetection, time.Since(started).Seconds())

	if result.FailedWindows > 0 {
		result.warn(logger, "some windows could not be classified", "window_failure",
			"change points may be missed",
			logging.Int("failed_windows", result.FailedWindows),
			logging.Int("windows", result.Windows),
		)
	}
	if detection.Fallback {
		logger.Info("no change peaks found; using periodic change points",
			logging.Int("change_points", len(detection.Points)))
	}
	logger.Info("change detection completed",
		logging.Int("windows", result.Windows),
		logging.Int("frames", len(frames)),
		logging.Float64("adaptive_threshold", detection.Threshold),
		logging.Int("change_points", len(detection.Points)),
	)
	return detection.Points, nil
}

// scanWindows classifies windows with up to DetectionWorkers concurrent model
// calls. Results are indexed by window so frame order never depends on
// scheduling. Only context cancellation aborts the scan.
func (e *Engine) scanWindows(ctx context.Context, buf audio.Buffer) ([]windowFrames, error) {
	plan := e.opts.windowPlan()
	windows := plan.Windows(buf)
	out := make([]windowFrames, len(windows))
	logger := logging.WithContext(ctx, e.logger)

	var (
		progressMu sync.Mutex
		completed  int
		sampler    = logging.NewProgressSampler(10)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers())
	for _, w := range windows {
		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			scores, err := e.segmentation.Classify(gctx, w.Samples)
			status := "ok"
			if err != nil {
				status = "error"
			}
			e.metrics.RecordModelCall(gctx, modelSegmentation, status, time.Since(started).Seconds())
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				out[w.Index] = windowFrames{failed: true}
				logger.Warn("window classification failed",
					logging.Int("window", w.Index),
					logging.Error(err),
				)
				return nil
			}

			frames := make([]changepoint.Frame, 0, len(scores))
			for step, row := range scores {
				frames = append(frames, changepoint.Frame{
					Window: w.Index,
					Time:   plan.StepTime(w.Offset, step, len(scores), buf.SampleRate),
					Scores: row,
				})
			}
			out[w.Index] = windowFrames{frames: frames}

			progressMu.Lock()
			completed++
			percent := float64(completed) * 100 / float64(len(windows))
			if sampler.ShouldLog(percent, phaseDetection) {
				logger.Info("window scan progress",
					logging.Int("completed", completed),
					logging.Int("windows", len(windows)),
				)
			}
			progressMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
