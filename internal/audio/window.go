package audio

const (
	// WindowSize is the segmentation model input length in samples (3.2 s at 16 kHz).
	WindowSize = 51200
	// HopSize advances each window by half its length.
	HopSize = 25600
)

// Window is a fixed-length view over a buffer starting at Offset.
type Window struct {
	Index   int
	Offset  int
	Samples []float32
}

// WindowPlan describes how a buffer is cut into windows.
type WindowPlan struct {
	Size        int
	Hop         int
	PreEmphasis float64
}

// DefaultWindowPlan matches the bundled segmentation model.
func DefaultWindowPlan() WindowPlan {
	return WindowPlan{Size: WindowSize, Hop: HopSize, PreEmphasis: 0.97}
}

// Offsets lists window start offsets in increasing order. Windows cover the
// whole buffer; the last one may extend past the end and is zero-padded.
func (p WindowPlan) Offsets(total int) []int {
	if total <= 0 || p.Size <= 0 {
		return nil
	}
	hop := p.Hop
	if hop <= 0 || hop > p.Size {
		hop = p.Size
	}
	var offsets []int
	for offset := 0; offset < total; offset += hop {
		offsets = append(offsets, offset)
		if offset+p.Size >= total {
			break
		}
	}
	return offsets
}

// Windows materializes every window of buf, ready for the segmentation model:
// zero-padded to Size, pre-emphasized, then peak-normalized.
func (p WindowPlan) Windows(buf Buffer) []Window {
	offsets := p.Offsets(len(buf.Samples))
	out := make([]Window, 0, len(offsets))
	for i, offset := range offsets {
		end := offset + p.Size
		if end > len(buf.Samples) {
			end = len(buf.Samples)
		}
		samples := FitLength(buf.Samples[offset:end], p.Size)
		PreEmphasis(samples, p.PreEmphasis)
		PeakNormalize(samples)
		out = append(out, Window{Index: i, Offset: offset, Samples: samples})
	}
	return out
}

// StepTime returns the absolute timestamp in seconds of one model output step
// inside a window. Steps are spread evenly over the window using an integer
// number of samples per step.
func (p WindowPlan) StepTime(offset, step, steps, sampleRate int) float64 {
	if steps <= 0 || sampleRate <= 0 {
		return 0
	}
	perStep := p.Size / steps
	return float64(offset+step*perStep) / float64(sampleRate)
}
