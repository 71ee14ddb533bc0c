// Package segment cuts a recording into intervals at change points.
package segment

import "diarize/internal/audio"

const (
	// MinDuration is the shortest interval kept between change points.
	MinDuration = 2.0
	// fixedLength is the segment length used when no change points exist.
	fixedLength = 25.0
	// fixedMinDuration is the shortest recording split into fixed-length segments.
	fixedMinDuration = 30.0
	// fixedTailMargin stops fixed segmentation this close to the end.
	fixedTailMargin = 5.0
)

// Segment is one contiguous interval attributed to a single speaker.
type Segment struct {
	Start      float64
	End        float64
	Samples    []float32
	SpeakerID  int
	Confidence float64
	Text       string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Interval is a [Start, End) span in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Intervals returns the spans implied by sorted change points over a
// recording of the given duration. Spans shorter than MinDuration between
// change points are dropped, so their audio is not covered by any span.
func Intervals(points []float64, duration float64) []Interval {
	if duration <= 0 {
		return nil
	}
	if len(points) == 0 {
		if duration <= fixedMinDuration {
			return []Interval{{Start: 0, End: duration}}
		}
		var out []Interval
		for start := 0.0; start < duration-fixedTailMargin; start += fixedLength {
			end := start + fixedLength
			if end > duration {
				end = duration
			}
			out = append(out, Interval{Start: start, End: end})
		}
		return out
	}

	bounds := make([]float64, 0, len(points)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, points...)
	bounds = append(bounds, duration)

	var out []Interval
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		if end-start >= MinDuration {
			out = append(out, Interval{Start: start, End: end})
		}
	}
	return out
}

// Build materializes segments with their samples. Intervals that map to no
// samples are skipped.
func Build(points []float64, buf audio.Buffer) []Segment {
	intervals := Intervals(points, buf.Duration())
	out := make([]Segment, 0, len(intervals))
	for _, iv := range intervals {
		samples := buf.Slice(iv.Start, iv.End)
		if len(samples) == 0 {
			continue
		}
		out = append(out, Segment{Start: iv.Start, End: iv.End, Samples: samples})
	}
	return out
}
