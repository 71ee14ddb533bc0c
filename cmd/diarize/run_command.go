package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"diarize/internal/audio"
	"diarize/internal/config"
	"diarize/internal/diarization"
	"diarize/internal/history"
	"diarize/internal/logging"
	"diarize/internal/preflight"
	"diarize/internal/report"
	"diarize/internal/services"
	"diarize/internal/services/onnx"
)

// newModels starts the inference backends for a run. The returned closer
// releases them. Tests replace it with in-process fakes.
var newModels = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (diarization.SegmentationModel, diarization.EmbeddingModel, func(), error) {
	worker := onnx.NewWorker(preflight.WorkerConfig(cfg), logger)
	if err := worker.Start(ctx); err != nil {
		return nil, nil, func() {}, err
	}
	return worker.Segmentation(), worker.Embedding(), func() { _ = worker.Close() }, nil
}

type runOptions struct {
	audioPath     string
	threshold     float64
	maxSpeakers   int
	format        string
	outputPath    string
	verbose       bool
	skipPreflight bool
	noHistory     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Diarize an audio file",
		Long: `Diarize a mono recording and print the speaker segments.

Accepts 16-bit WAV files or raw 16-bit little-endian PCM at the configured
sample rate. Reports go to stdout (or --output); logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				clamped, changed := config.ClampThreshold(opts.threshold)
				if changed {
					warnf(cmd.ErrOrStderr(), "Threshold", "%.4f clamped to %.4f", opts.threshold, clamped)
				}
				cfg.Diarization.SimilarityThreshold = clamped
			}
			if flags.Changed("max-speakers") {
				if opts.maxSpeakers < 1 {
					return services.Wrap(services.ErrValidation, "cli", "parse flags", "--max-speakers must be at least 1", nil)
				}
				cfg.Diarization.MaxSpeakers = opts.maxSpeakers
			}
			if !flags.Changed("format") {
				opts.format = cfg.Output.Format
			}
			opts.verbose = opts.verbose || cfg.Output.SpeakerSummary
			return executeRun(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.audioPath, "audio", "a", "", "Audio file to diarize (WAV or raw 16-bit PCM)")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "Similarity threshold, clamped to [0.01, 0.8]")
	cmd.Flags().IntVarP(&opts.maxSpeakers, "max-speakers", "m", 0, "Maximum number of speakers")
	cmd.Flags().StringVarP(&opts.format, "format", "f", report.FormatTable, "Output format (table, json, yaml)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print a per-speaker summary to stderr")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip environment checks before running")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history database")
	_ = cmd.MarkFlagRequired("audio")

	return cmd
}

func executeRun(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()

	switch strings.ToLower(strings.TrimSpace(opts.format)) {
	case report.FormatJSON, report.FormatYAML, report.FormatTable:
	default:
		return services.Wrap(services.ErrValidation, "cli", "parse flags",
			fmt.Sprintf("unsupported format %q (want table, json, or yaml)", opts.format), nil)
	}

	audioPath, err := config.ExpandPath(opts.audioPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "resolve audio path", "", err)
	}
	for _, notice := range cfg.Notices() {
		warnf(stderr, "Config", "%s", notice)
	}

	if !opts.skipPreflight {
		for _, result := range preflight.RunAll(ctx, cfg) {
			if !result.Passed {
				warnf(stderr, result.Name, "%s", result.Detail)
			}
		}
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logger)

	buf, err := audio.Load(audioPath, cfg.Diarization.SampleRate)
	if err != nil {
		return err
	}
	logger.Info("audio loaded",
		logging.String("audio_path", audioPath),
		logging.Float64("duration_seconds", buf.Duration()),
		logging.Int("sample_rate", buf.SampleRate),
	)

	seg, emb, closeModels, err := newModels(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		warnf(stderr, "Model worker", "%v", err)
		logging.WarnWithContext(logger, "model worker unavailable; running degraded", "model_worker_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "change detection and speaker assignment fall back to defaults"),
		)
	}
	if closeModels != nil {
		defer closeModels()
	}

	engine := diarization.NewEngine(seg, emb, diarization.OptionsFromConfig(cfg), diarization.WithLogger(logger))
	result, runErr := engine.Run(ctx, buf)

	store := openHistory(cfg, opts, logger)
	if store != nil {
		defer store.Close()
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "diarization failed", "run_failed", logging.Error(runErr))
		recordRun(ctx, store, logger, history.NewFailedRun(runID, audioPath, cfg.Diarization.SimilarityThreshold, cfg.Diarization.MaxSpeakers, runErr))
		return runErr
	}
	recordRun(ctx, store, logger, history.NewRun(result, audioPath, cfg.Diarization.SimilarityThreshold, cfg.Diarization.MaxSpeakers))

	for _, warning := range result.Warnings {
		warnf(stderr, "Diarization", "%s", warning)
	}
	if len(result.Segments) == 0 {
		return services.Wrap(services.ErrSegmentFailure, "diarizer", "run", "no speaker segments produced", nil)
	}

	rep := report.Build(result, report.Source{
		AudioPath:      audioPath,
		SegmentModel:   filepath.Base(cfg.Models.Segmentation),
		EmbeddingModel: filepath.Base(cfg.Models.Embedding),
		MaxSpeakers:    cfg.Diarization.MaxSpeakers,
		Threshold:      cfg.Diarization.SimilarityThreshold,
		CreatedAt:      time.Now(),
	})
	if err := writeReport(cmd.OutOrStdout(), opts, rep); err != nil {
		return err
	}
	if opts.verbose {
		if err := report.WriteSummary(stderr, rep); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(stdout io.Writer, opts runOptions, rep report.Report) error {
	if strings.TrimSpace(opts.outputPath) == "" {
		return report.Write(stdout, opts.format, rep)
	}
	path, err := config.ExpandPath(opts.outputPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "resolve output path", "", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := report.Write(file, opts.format, rep); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", path)
	return nil
}

func openHistory(cfg *config.Config, opts runOptions, logger *slog.Logger) *history.Store {
	if opts.noHistory || !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
		)
		return nil
	}
	return store
}

func recordRun(ctx context.Context, store *history.Store, logger *slog.Logger, run history.Run) {
	if store == nil {
		return
	}
	// Record on a fresh context so a cancelled run is still persisted.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := store.Record(recordCtx, run); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String("run_id", run.ID),
		)
	}
}
