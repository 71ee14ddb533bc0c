package onnx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"diarize/internal/services"
)

func stubWorkerProcess(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string{name}, args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "ONNX_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func newTestWorker(t *testing.T, timeout time.Duration) *Worker {
	t.Helper()
	w := NewWorker(Config{
		Packages:          []string{"onnxruntime", "numpy"},
		SegmentationModel: "/models/seg.onnx",
		EmbeddingModel:    "/models/emb.onnx",
		WorkDir:           t.TempDir(),
		StartupTimeout:    timeout,
	}, nil)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWorkerStartPassesModelsAndPackages(t *testing.T) {
	var captured []string
	stubWorkerProcess(t, "ok", &captured)
	w := newTestWorker(t, 5*time.Second)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	joined := strings.Join(captured, " ")
	for _, fragment := range []string{"uvx --quiet", "--with onnxruntime", "--with numpy", "--segmentation /models/seg.onnx", "--embedding /models/emb.onnx"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in args %q", fragment, joined)
		}
	}
	script := filepath.Join(w.cfg.WorkDir, workerScriptName)
	if !slices.Contains(captured, script) {
		t.Fatalf("expected script path %s in args %v", script, captured)
	}
	content, err := os.ReadFile(script)
	if err != nil || !strings.Contains(string(content), "onnxruntime") {
		t.Fatalf("worker script not written: %v", err)
	}
	if !w.Segmentation().Ready() || !w.Embedding().Ready() {
		t.Fatal("expected both models ready")
	}
}

func TestWorkerClassifyAndEmbed(t *testing.T) {
	stubWorkerProcess(t, "ok", nil)
	w := newTestWorker(t, 5*time.Second)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	rows, err := w.Segmentation().Classify(context.Background(), []float32{10, 0, 0})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if len(rows) != 2 || len(rows[0]) != 3 {
		t.Fatalf("unexpected shape %dx%d", len(rows), len(rows[0]))
	}
	if rows[1][2] != 15 {
		t.Fatalf("rows[1][2] = %v, want 15", rows[1][2])
	}

	emb, err := w.Embedding().Embed(context.Background(), make([]float32, 7))
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if want := []float32{7, 1, 2, 3}; !slices.Equal(emb, want) {
		t.Fatalf("embedding = %v, want %v", emb, want)
	}
}

func TestWorkerInferenceErrorKeepsWorkerAlive(t *testing.T) {
	stubWorkerProcess(t, "ok", nil)
	w := newTestWorker(t, 5*time.Second)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := w.Embedding().Embed(context.Background(), []float32{-1})
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := w.Embedding().Embed(context.Background(), []float32{1}); err != nil {
		t.Fatalf("worker should survive a failed request: %v", err)
	}
}

func TestWorkerReportsUnloadedModel(t *testing.T) {
	stubWorkerProcess(t, "noembed", nil)
	w := newTestWorker(t, 5*time.Second)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !w.Segmentation().Ready() {
		t.Fatal("segmentation should be ready")
	}
	if w.Embedding().Ready() {
		t.Fatal("embedding should not be ready")
	}
	if msg := w.LoadErrors()["embedding"]; msg != "missing file" {
		t.Fatalf("unexpected load error %q", msg)
	}
	_, err := w.Embedding().Embed(context.Background(), []float32{1})
	if !errors.Is(err, services.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestWorkerStartFailureIncludesStderr(t *testing.T) {
	stubWorkerProcess(t, "crash", nil)
	w := newTestWorker(t, 5*time.Second)
	err := w.Start(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "No module named") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	if w.Segmentation().Ready() {
		t.Fatal("models must not be ready after failed start")
	}
}

func TestWorkerStartTimeout(t *testing.T) {
	stubWorkerProcess(t, "hang", nil)
	w := newTestWorker(t, 200*time.Millisecond)
	err := w.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected startup timeout, got %v", err)
	}
}

func TestWorkerCancelledCallKillsWorker(t *testing.T) {
	stubWorkerProcess(t, "stall", nil)
	w := newTestWorker(t, 5*time.Second)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := w.Segmentation().Classify(ctx, []float32{1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if w.Segmentation().Ready() {
		t.Fatal("worker should be unusable after cancellation")
	}
}

func TestWorkerCallBeforeStart(t *testing.T) {
	w := NewWorker(Config{}, nil)
	if _, _, err := w.call(context.Background(), opEmbed, []float32{1}); !errors.Is(err, services.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if w.cfg.UVXCommand != "uvx" || w.cfg.StartupTimeout != defaultStartupTimeout {
		t.Fatalf("unexpected defaults %+v", w.cfg)
	}
}

func TestFloatCodecAndReshape(t *testing.T) {
	values := []float32{0, -1.5, 3.25, 1e-7}
	decoded, err := decodeFloats(encodeFloats(values))
	if err != nil || !slices.Equal(decoded, values) {
		t.Fatalf("decoded %v (%v), want %v", decoded, err, values)
	}
	if _, err := decodeFloats("AAA="); err == nil {
		t.Fatal("expected error for truncated payload")
	}
	if _, err := reshape2D(values, []int{3, 2}); err == nil {
		t.Fatal("expected shape mismatch error")
	}
	if _, err := reshape2D(values, []int{4}); err == nil {
		t.Fatal("expected rank error")
	}
	rows, err := reshape2D(values, []int{2, 2})
	if err != nil || rows[1][0] != 3.25 {
		t.Fatalf("unexpected rows %v (%v)", rows, err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	mode := os.Getenv("ONNX_HELPER_MODE")
	emit := func(v any) {
		data, _ := json.Marshal(v)
		fmt.Println(string(data))
	}
	switch mode {
	case "crash":
		fmt.Fprintln(os.Stderr, "ModuleNotFoundError: No module named 'onnxruntime'")
		os.Exit(1)
	case "hang":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	case "noembed":
		fmt.Println("Installed 2 packages in 12ms")
		emit(readyMessage{Event: "ready", Segmentation: true, Errors: map[string]string{"embedding": "missing file"}})
	default:
		fmt.Println("Installed 2 packages in 12ms")
		emit(readyMessage{Event: "ready", Segmentation: true, Embedding: true})
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			os.Exit(2)
		}
		if mode == "stall" {
			time.Sleep(30 * time.Second)
			continue
		}
		samples, _ := decodeFloats(req.Data)
		if len(samples) > 0 && samples[0] == -1 {
			emit(response{ID: req.ID, Error: "boom"})
			continue
		}
		switch req.Op {
		case opClassify:
			out := make([]float32, 6)
			for i := range out {
				out[i] = samples[0] + float32(i)
			}
			emit(response{ID: req.ID, Shape: []int{2, 3}, Data: encodeFloats(out)})
		case opEmbed:
			out := []float32{float32(len(samples)), 1, 2, 3}
			emit(response{ID: req.ID, Shape: []int{4}, Data: encodeFloats(out)})
		default:
			emit(response{ID: req.ID, Error: "unknown op"})
		}
	}
	os.Exit(0)
}
