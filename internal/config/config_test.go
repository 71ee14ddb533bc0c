package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"diarize/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DIARIZE_SEGMENTATION_MODEL", "~/models/seg.onnx")
	t.Setenv("DIARIZE_EMBEDDING_MODEL", "")
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "diarize")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.History.Path != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Models.Segmentation != filepath.Join(tempHome, "models", "seg.onnx") {
		t.Fatalf("expected segmentation model from env, got %q", cfg.Models.Segmentation)
	}
	if cfg.Models.Embedding != "" {
		t.Fatalf("expected empty embedding model, got %q", cfg.Models.Embedding)
	}
	if cfg.Diarization.SampleRate != 16000 || cfg.Diarization.MaxSpeakers != 10 {
		t.Fatalf("unexpected diarization defaults: %+v", cfg.Diarization)
	}
	if cfg.Diarization.SimilarityThreshold != 0.01 {
		t.Fatalf("unexpected default threshold %v", cfg.Diarization.SimilarityThreshold)
	}
	if len(cfg.Notices()) != 0 {
		t.Fatalf("expected no notices for defaults, got %v", cfg.Notices())
	}
	if err := cfg.ValidateModels(); err == nil {
		t.Fatal("expected missing embedding model to fail ValidateModels")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "diarize.toml")

	type payload struct {
		Models struct {
			Segmentation string `toml:"segmentation"`
			Embedding    string `toml:"embedding"`
		} `toml:"models"`
		Diarization struct {
			MaxSpeakers         int     `toml:"max_speakers"`
			SimilarityThreshold float64 `toml:"similarity_threshold"`
		} `toml:"diarization"`
		Output struct {
			Format string `toml:"format"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Models.Segmentation = filepath.Join(tempDir, "seg.onnx")
	custom.Models.Embedding = filepath.Join(tempDir, "emb.onnx")
	custom.Diarization.MaxSpeakers = 4
	custom.Diarization.SimilarityThreshold = 0.95
	custom.Output.Format = " JSON "

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Diarization.MaxSpeakers != 4 {
		t.Fatalf("unexpected max speakers %d", cfg.Diarization.MaxSpeakers)
	}
	if cfg.Diarization.SimilarityThreshold != config.MaxSimilarityThreshold {
		t.Fatalf("expected threshold clamped to %v, got %v", config.MaxSimilarityThreshold, cfg.Diarization.SimilarityThreshold)
	}
	if notices := cfg.Notices(); len(notices) != 1 || !strings.Contains(notices[0], "similarity_threshold") {
		t.Fatalf("expected clamp notice, got %v", notices)
	}
	if cfg.Output.Format != "json" {
		t.Fatalf("expected normalized format, got %q", cfg.Output.Format)
	}
	if err := cfg.ValidateModels(); err != nil {
		t.Fatalf("ValidateModels: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"max speakers": "[diarization]\nmax_speakers = 0\n",
		"format":       "[output]\nformat = \"xml\"\n",
		"log level":    "[logging]\nlevel = \"loud\"\n",
		"pre-emphasis": "[diarization]\npre_emphasis = 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "diarize.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestClampThreshold(t *testing.T) {
	cases := []struct {
		in      float64
		want    float64
		changed bool
	}{
		{0.001, 0.01, true},
		{0.01, 0.01, false},
		{0.5, 0.5, false},
		{0.8, 0.8, false},
		{0.9, 0.8, true},
	}
	for _, tc := range cases {
		got, changed := config.ClampThreshold(tc.in)
		if got != tc.want || changed != tc.changed {
			t.Fatalf("ClampThreshold(%v) = %v,%v want %v,%v", tc.in, got, changed, tc.want, tc.changed)
		}
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Models.Embedding != filepath.Join(tempHome, "models", "embedding.onnx") {
		t.Fatalf("unexpected embedding path %q", cfg.Models.Embedding)
	}
	if cfg.Diarization.PreEmphasis != 0.97 {
		t.Fatalf("unexpected pre-emphasis %v", cfg.Diarization.PreEmphasis)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "max_speakers = 10") {
		t.Fatalf("expected encoded max_speakers, got:\n%s", data)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
