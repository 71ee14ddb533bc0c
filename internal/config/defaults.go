package config

const (
	defaultConfigPath              = "~/.config/diarize/config.toml"
	defaultStateDir                = "~/.local/share/diarize"
	defaultLogDir                  = "~/.local/share/diarize/logs"
	defaultWorkDir                 = "~/.cache/diarize"
	defaultHistoryFile             = "history.db"
	defaultUVXCommand              = "uvx"
	defaultStartupTimeout          = 120
	defaultSampleRate              = 16000
	defaultSimilarityThreshold     = 0.01
	defaultMaxSpeakers             = 10
	defaultTargetEmbeddingDuration = 3.0
	defaultPreEmphasis             = 0.97
	defaultDetectionWorkers        = 1
	defaultDetectionMin            = 0.001
	defaultDetectionScale          = 0.1
	defaultAssignmentMin           = 0.3
	defaultOutputFormat            = "table"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"

	// MinSimilarityThreshold and MaxSimilarityThreshold bound the user-facing threshold.
	MinSimilarityThreshold = 0.01
	MaxSimilarityThreshold = 0.8
)

// DefaultPackages are the Python packages the model worker needs.
var DefaultPackages = []string{"onnxruntime", "numpy"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
		},
		Models: Models{
			UVXCommand:     defaultUVXCommand,
			Packages:       append([]string(nil), DefaultPackages...),
			StartupTimeout: defaultStartupTimeout,
		},
		Diarization: Diarization{
			SampleRate:              defaultSampleRate,
			SimilarityThreshold:     defaultSimilarityThreshold,
			MaxSpeakers:             defaultMaxSpeakers,
			TargetEmbeddingDuration: defaultTargetEmbeddingDuration,
			PreEmphasis:             defaultPreEmphasis,
			DetectionWorkers:        defaultDetectionWorkers,
			DetectionMin:            defaultDetectionMin,
			DetectionScale:          defaultDetectionScale,
			AssignmentMin:           defaultAssignmentMin,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
