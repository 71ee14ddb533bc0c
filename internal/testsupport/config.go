package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"diarize/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose directories live under a unique temp dir.
// The directories are created so preflight checks pass.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	for _, dir := range []string{cfgVal.Paths.StateDir, cfgVal.Paths.LogDir, cfgVal.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithModelFiles writes placeholder model files and points the config at them.
func WithModelFiles() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "models")
		b.cfg.Models.Segmentation = filepath.Join(dir, "segmentation.onnx")
		b.cfg.Models.Embedding = filepath.Join(dir, "embedding.onnx")
		WriteFile(b.t, b.cfg.Models.Segmentation, 64)
		WriteFile(b.t, b.cfg.Models.Embedding, 64)
	}
}

// WithStubbedUVX writes a stub uvx executable running body and configures it
// as the model worker command.
func WithStubbedUVX(body string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		if body == "" {
			body = `echo "uvx 0.0.0-test"`
		}
		target := filepath.Join(binDir, "uvx")
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			b.t.Fatalf("write uvx stub: %v", err)
		}
		b.cfg.Models.UVXCommand = target
	}
}

// WithHistoryDisabled turns off run history.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
