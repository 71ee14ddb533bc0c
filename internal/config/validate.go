package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDiarization() error {
	d := c.Diarization
	if d.MaxSpeakers < 1 {
		return errors.New("diarization.max_speakers must be at least 1")
	}
	if d.SimilarityThreshold < MinSimilarityThreshold || d.SimilarityThreshold > MaxSimilarityThreshold {
		return fmt.Errorf("diarization.similarity_threshold must be between %.2f and %.2f", MinSimilarityThreshold, MaxSimilarityThreshold)
	}
	if d.PreEmphasis < 0 || d.PreEmphasis >= 1 {
		return errors.New("diarization.pre_emphasis must be in [0, 1)")
	}
	if d.DetectionMin < 0 {
		return errors.New("diarization.detection_min must be non-negative")
	}
	if d.AssignmentMin < -1 || d.AssignmentMin > 1 {
		return errors.New("diarization.assignment_min must be between -1 and 1")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("output.format must be one of table, json, yaml (got %q)", c.Output.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}

// ValidateModels reports whether both model paths are configured. Model
// presence is only required for commands that run the pipeline.
func (c *Config) ValidateModels() error {
	if c.Models.Segmentation == "" {
		return errors.New("models.segmentation is required. Set DIARIZE_SEGMENTATION_MODEL or edit the config (create with 'diarize config init')")
	}
	if c.Models.Embedding == "" {
		return errors.New("models.embedding is required. Set DIARIZE_EMBEDDING_MODEL or edit the config (create with 'diarize config init')")
	}
	return nil
}
