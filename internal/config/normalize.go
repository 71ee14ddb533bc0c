package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeModels(); err != nil {
		return err
	}
	c.normalizeDiarization()
	c.normalizeOutput()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeModels() error {
	c.Models.Segmentation = strings.TrimSpace(c.Models.Segmentation)
	if c.Models.Segmentation == "" {
		if value, ok := os.LookupEnv("DIARIZE_SEGMENTATION_MODEL"); ok {
			c.Models.Segmentation = strings.TrimSpace(value)
		}
	}
	c.Models.Embedding = strings.TrimSpace(c.Models.Embedding)
	if c.Models.Embedding == "" {
		if value, ok := os.LookupEnv("DIARIZE_EMBEDDING_MODEL"); ok {
			c.Models.Embedding = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Models.Segmentation, err = expandPath(c.Models.Segmentation); err != nil {
		return fmt.Errorf("models.segmentation: %w", err)
	}
	if c.Models.Embedding, err = expandPath(c.Models.Embedding); err != nil {
		return fmt.Errorf("models.embedding: %w", err)
	}
	c.Models.UVXCommand = strings.TrimSpace(c.Models.UVXCommand)
	if c.Models.UVXCommand == "" {
		c.Models.UVXCommand = defaultUVXCommand
	}
	packages := c.Models.Packages[:0]
	for _, pkg := range c.Models.Packages {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			packages = append(packages, pkg)
		}
	}
	if len(packages) == 0 {
		packages = append([]string(nil), DefaultPackages...)
	}
	c.Models.Packages = packages
	if c.Models.StartupTimeout <= 0 {
		c.Models.StartupTimeout = defaultStartupTimeout
	}
	return nil
}

func (c *Config) normalizeDiarization() {
	d := &c.Diarization
	if d.SampleRate <= 0 {
		d.SampleRate = defaultSampleRate
	}
	if clamped, changed := ClampThreshold(d.SimilarityThreshold); changed {
		c.notices = append(c.notices, fmt.Sprintf("diarization.similarity_threshold %.4g clamped to %.4g", d.SimilarityThreshold, clamped))
		d.SimilarityThreshold = clamped
	}
	if d.TargetEmbeddingDuration <= 0 {
		d.TargetEmbeddingDuration = defaultTargetEmbeddingDuration
	}
	if d.DetectionWorkers <= 0 {
		d.DetectionWorkers = defaultDetectionWorkers
	}
	if d.DetectionScale <= 0 {
		d.DetectionScale = defaultDetectionScale
	}
}

// ClampThreshold bounds a similarity threshold to [0.01, 0.8] and reports
// whether the value changed.
func ClampThreshold(value float64) (float64, bool) {
	switch {
	case value < MinSimilarityThreshold:
		return MinSimilarityThreshold, true
	case value > MaxSimilarityThreshold:
		return MaxSimilarityThreshold, true
	default:
		return value, false
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
