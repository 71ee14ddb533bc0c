package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/youpy/go-wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteWAV writes 16-bit PCM samples as a RIFF/WAVE file. Interleaved
// samples are expected when channels is 2.
func WriteWAV(t testing.TB, path string, samples []int16, sampleRate, channels int) {
	t.Helper()

	if channels <= 0 {
		channels = 1
	}
	if channels > 2 {
		t.Fatalf("WriteWAV supports mono or stereo, got %d channels", channels)
	}
	frames := make([]wav.Sample, len(samples)/channels)
	for i := range frames {
		for c := 0; c < channels; c++ {
			frames[i].Values[c] = int(samples[i*channels+c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	writer := wav.NewWriter(file, uint32(len(frames)), uint16(channels), uint32(sampleRate), 16)
	if err := writer.WriteSamples(frames); err != nil {
		_ = file.Close()
		t.Fatalf("write samples to %s: %v", path, err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}
