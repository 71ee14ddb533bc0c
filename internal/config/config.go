package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Models locates the segmentation and embedding models and the worker used to
// run them.
type Models struct {
	Segmentation string   `toml:"segmentation"`
	Embedding    string   `toml:"embedding"`
	UVXCommand   string   `toml:"uvx_command"`
	Packages     []string `toml:"packages"`
	// StartupTimeout bounds how long the model worker may take to load, in seconds.
	StartupTimeout int `toml:"startup_timeout"`
}

// Diarization contains the pipeline tuning knobs.
type Diarization struct {
	SampleRate int `toml:"sample_rate"`
	// SimilarityThreshold is clamped to [0.01, 0.8] during normalization.
	SimilarityThreshold     float64 `toml:"similarity_threshold"`
	MaxSpeakers             int     `toml:"max_speakers"`
	TargetEmbeddingDuration float64 `toml:"target_embedding_duration"`
	PreEmphasis             float64 `toml:"pre_emphasis"`
	DetectionWorkers        int     `toml:"detection_workers"`
	DetectionMin            float64 `toml:"detection_min"`
	DetectionScale          float64 `toml:"detection_scale"`
	AssignmentMin           float64 `toml:"assignment_min"`
}

// Output controls how results are rendered.
type Output struct {
	Format         string `toml:"format"`
	SpeakerSummary bool   `toml:"speaker_summary"`
}

// History controls the run summary database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File enables a JSON log file under paths.log_dir in addition to console output.
	File bool `toml:"file"`
}

// Config encapsulates all configuration values for diarize.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and worker scratch directories
//   - Models: model files and the uvx worker command
//   - Diarization: thresholds, speaker cap, and window scan settings
//   - Output: report format
//   - History: SQLite run summaries
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Models      Models      `toml:"models"`
	Diarization Diarization `toml:"diarization"`
	Output      Output      `toml:"output"`
	History     History     `toml:"history"`
	Logging     Logging     `toml:"logging"`

	notices []string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("diarize.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Notices returns adjustments made while normalizing, such as clamped thresholds.
func (c *Config) Notices() []string {
	return append([]string(nil), c.notices...)
}

// EnsureDirectories creates the state, log, and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && c.History.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
