package onnx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"diarize/internal/logging"
	"diarize/internal/services"
)

var commandContext = exec.CommandContext

var errClosed = errors.New("worker closed")

const (
	defaultStartupTimeout = 120 * time.Second
	maxLineBytes          = 64 << 20
	stderrTailBytes       = 4096
)

// Config describes how to launch the worker.
type Config struct {
	UVXCommand        string
	Packages          []string
	SegmentationModel string
	EmbeddingModel    string
	WorkDir           string
	StartupTimeout    time.Duration
}

// Worker owns the Python subprocess. Requests are serialized; the worker
// process handles one tensor at a time.
type Worker struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	stdin    io.WriteCloser
	scanner  *bufio.Scanner
	stderr   *tailBuffer
	ready    readyMessage
	nextID   int64
	broken   error
	started  bool
	closedCh chan struct{}
}

// NewWorker returns an unstarted worker.
func NewWorker(cfg Config, logger *slog.Logger) *Worker {
	if strings.TrimSpace(cfg.UVXCommand) == "" {
		cfg.UVXCommand = "uvx"
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{cfg: cfg, logger: logging.NewComponentLogger(logger, "onnx-worker")}
}

// Start launches the subprocess and waits for it to report which models loaded.
// A model that fails to load is reported through Ready rather than as an error;
// Start fails only when the worker itself cannot run.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	scriptPath, err := w.writeScript()
	if err != nil {
		return err
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := commandContext(procCtx, w.cfg.UVXCommand, w.args(scriptPath)...)
	cmd.Env = append(cmd.Environ(), "PYTHONUNBUFFERED=1", "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	cmd.WaitDelay = 2 * time.Second
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return services.Wrap(services.ErrExternalTool, "onnx", "start", "open stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return services.Wrap(services.ErrExternalTool, "onnx", "start", "open stdout", err)
	}
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return services.Wrap(services.ErrExternalTool, "onnx", "start", fmt.Sprintf("launch %s", w.cfg.UVXCommand), err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	w.cmd, w.cancel, w.stdin, w.scanner, w.stderr = cmd, cancel, stdin, scanner, stderr
	w.closedCh = make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(w.closedCh)
	}()

	ready, err := w.awaitReady(ctx)
	if err != nil {
		w.killLocked()
		return err
	}
	w.ready = ready
	w.started = true

	attrs := []logging.Attr{
		logging.Bool("segmentation_loaded", ready.Segmentation),
		logging.Bool("embedding_loaded", ready.Embedding),
	}
	for name, msg := range ready.Errors {
		attrs = append(attrs, logging.String(name+"_error", msg))
	}
	w.logger.Info("model worker ready", logging.Args(attrs...)...)
	return nil
}

func (w *Worker) args(scriptPath string) []string {
	args := []string{"--quiet"}
	for _, pkg := range w.cfg.Packages {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			args = append(args, "--with", pkg)
		}
	}
	args = append(args, "python", scriptPath)
	if w.cfg.SegmentationModel != "" {
		args = append(args, "--segmentation", w.cfg.SegmentationModel)
	}
	if w.cfg.EmbeddingModel != "" {
		args = append(args, "--embedding", w.cfg.EmbeddingModel)
	}
	return args
}

func (w *Worker) writeScript() (string, error) {
	dir := w.cfg.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "onnx", "start", "create work dir", err)
	}
	path := filepath.Join(dir, workerScriptName)
	if err := os.WriteFile(path, []byte(workerScript), 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "onnx", "start", "write worker script", err)
	}
	return path, nil
}

func (w *Worker) awaitReady(ctx context.Context) (readyMessage, error) {
	type result struct {
		msg readyMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		line, err := w.readLine()
		if err != nil {
			done <- result{err: err}
			return
		}
		var msg readyMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			done <- result{err: fmt.Errorf("parse ready message: %w", err)}
			return
		}
		if msg.Event != "ready" {
			done <- result{err: fmt.Errorf("unexpected first message %q", msg.Event)}
			return
		}
		done <- result{msg: msg}
	}()

	timer := time.NewTimer(w.cfg.StartupTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err != nil {
			w.waitExit()
			return readyMessage{}, services.Wrap(services.ErrExternalTool, "onnx", "start", w.failureDetail("worker exited before ready"), r.err)
		}
		return r.msg, nil
	case <-timer.C:
		return readyMessage{}, services.Wrap(services.ErrExternalTool, "onnx", "start", fmt.Sprintf("worker not ready after %s", w.cfg.StartupTimeout), nil)
	case <-ctx.Done():
		return readyMessage{}, ctx.Err()
	}
}

func (w *Worker) readLine() ([]byte, error) {
	for w.scanner.Scan() {
		line := strings.TrimSpace(w.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		return []byte(line), nil
	}
	if err := w.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (w *Worker) failureDetail(msg string) string {
	if w.stderr == nil {
		return msg
	}
	if tail := strings.TrimSpace(w.stderr.String()); tail != "" {
		return fmt.Sprintf("%s (stderr: %s)", msg, tail)
	}
	return msg
}

// Loaded reports whether the named model ("segmentation" or "embedding")
// loaded in a healthy worker.
func (w *Worker) Loaded(model string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.broken != nil {
		return false
	}
	switch model {
	case modelSegmentation:
		return w.ready.Segmentation
	case modelEmbedding:
		return w.ready.Embedding
	default:
		return false
	}
}

// LoadErrors returns per-model load failures reported by the worker.
func (w *Worker) LoadErrors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.ready.Errors))
	for k, v := range w.ready.Errors {
		out[k] = v
	}
	return out
}

// call sends one tensor to the worker and returns the output tensor.
// Cancelling ctx kills the worker; later calls fail fast.
func (w *Worker) call(ctx context.Context, op string, samples []float32) ([]int, []float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return nil, nil, services.Wrap(services.ErrModelUnavailable, "onnx", op, "worker not started", nil)
	}
	if w.broken != nil {
		return nil, nil, services.Wrap(services.ErrModelUnavailable, "onnx", op, "worker unavailable", w.broken)
	}

	w.nextID++
	req := request{ID: w.nextID, Op: op, Data: encodeFloats(samples)}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "onnx", op, "encode request", err)
	}

	type result struct {
		resp response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if _, err := w.stdin.Write(append(payload, '\n')); err != nil {
			done <- result{err: fmt.Errorf("write request: %w", err)}
			return
		}
		line, err := w.readLine()
		if err != nil {
			done <- result{err: fmt.Errorf("read response: %w", err)}
			return
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			done <- result{err: fmt.Errorf("parse response: %w", err)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case <-ctx.Done():
		w.broken = ctx.Err()
		w.killLocked()
		return nil, nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			w.broken = r.err
			w.waitExit()
			w.killLocked()
			return nil, nil, services.Wrap(services.ErrExternalTool, "onnx", op, w.failureDetail("worker failed"), r.err)
		}
		resp := r.resp
		if resp.ID != req.ID {
			w.broken = fmt.Errorf("response id %d does not match request %d", resp.ID, req.ID)
			w.killLocked()
			return nil, nil, services.Wrap(services.ErrExternalTool, "onnx", op, "protocol desync", w.broken)
		}
		if resp.Error != "" {
			return nil, nil, services.Wrap(services.ErrExternalTool, "onnx", op, "inference failed", errors.New(resp.Error))
		}
		values, err := decodeFloats(resp.Data)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrExternalTool, "onnx", op, "decode output", err)
		}
		return resp.Shape, values, nil
	}
}

// Close stops the worker. It is safe to call more than once.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd == nil {
		return nil
	}
	if w.stdin != nil {
		_ = w.stdin.Close()
	}
	select {
	case <-w.closedCh:
	case <-time.After(2 * time.Second):
		w.logger.Debug("model worker did not exit after stdin close; killing")
	}
	w.killLocked()
	w.broken = errClosed
	return nil
}

// waitExit gives an exiting process a moment to flush stderr.
func (w *Worker) waitExit() {
	if w.closedCh == nil {
		return
	}
	select {
	case <-w.closedCh:
	case <-time.After(time.Second):
	}
}

func (w *Worker) killLocked() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.closedCh != nil {
		<-w.closedCh
	}
	w.cmd = nil
	w.cancel = nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append([]byte(nil), b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
