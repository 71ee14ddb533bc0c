package audio

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSampleRate is the rate the bundled models expect.
const DefaultSampleRate = 16000

// Buffer is a mono recording held fully in memory.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Validate reports whether the buffer can be processed.
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	if len(b.Samples) == 0 {
		return errors.New("audio buffer is empty")
	}
	for i, s := range b.Samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return fmt.Errorf("sample %d is not finite", i)
		}
	}
	return nil
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// SampleIndex converts a timestamp to a sample offset clamped to the buffer.
func (b Buffer) SampleIndex(seconds float64) int {
	idx := int(seconds * float64(b.SampleRate))
	if idx < 0 {
		return 0
	}
	if idx > len(b.Samples) {
		return len(b.Samples)
	}
	return idx
}

// Slice returns a copy of the samples in [start, end) seconds.
func (b Buffer) Slice(start, end float64) []float32 {
	from := b.SampleIndex(start)
	to := b.SampleIndex(end)
	if to <= from {
		return nil
	}
	out := make([]float32, to-from)
	copy(out, b.Samples[from:to])
	return out
}
