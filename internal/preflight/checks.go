package preflight

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"diarize/internal/config"
	"diarize/internal/services/onnx"
)

var commandContext = exec.CommandContext

const versionTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelFile verifies that a model path points at a readable, non-empty file.
func CheckModelFile(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: file is empty)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (%s)", path, humanize.IBytes(uint64(info.Size())))
	if !strings.EqualFold(filepath.Ext(path), ".onnx") {
		detail += " (warning: expected .onnx extension)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCommand verifies that command resolves on PATH and answers --version.
func CheckCommand(ctx context.Context, name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	var out bytes.Buffer
	cmd := commandContext(checkCtx, resolved, "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s --version failed (%v)", resolved, err)}
	}
	version := firstLine(out.String())
	if version == "" {
		version = resolved
	}
	return Result{Name: name, Passed: true, Detail: version}
}

// CheckModelWorker starts the model worker and reports whether each model
// loads. It can take as long as the configured startup timeout.
func CheckModelWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}
	worker := onnx.NewWorker(WorkerConfig(cfg), logger)
	defer func() { _ = worker.Close() }()

	if err := worker.Start(ctx); err != nil {
		return []Result{{Name: "Model worker", Detail: err.Error()}}
	}
	loadErrors := worker.LoadErrors()
	results := []Result{{Name: "Model worker", Passed: true, Detail: "started"}}
	for _, model := range []struct {
		name, key string
		ready     bool
	}{
		{"Segmentation model load", "segmentation", worker.Segmentation().Ready()},
		{"Embedding model load", "embedding", worker.Embedding().Ready()},
	} {
		if model.ready {
			results = append(results, Result{Name: model.name, Passed: true, Detail: "loaded"})
			continue
		}
		detail := loadErrors[model.key]
		if detail == "" {
			detail = "not loaded"
		}
		results = append(results, Result{Name: model.name, Detail: detail})
	}
	return results
}

// WorkerConfig maps the models section onto the worker's launch settings.
func WorkerConfig(cfg *config.Config) onnx.Config {
	return onnx.Config{
		UVXCommand:        cfg.Models.UVXCommand,
		Packages:          cfg.Models.Packages,
		SegmentationModel: cfg.Models.Segmentation,
		EmbeddingModel:    cfg.Models.Embedding,
		WorkDir:           cfg.Paths.WorkDir,
		StartupTimeout:    time.Duration(cfg.Models.StartupTimeout) * time.Second,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

