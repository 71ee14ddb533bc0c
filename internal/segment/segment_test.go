package segment

import (
	"reflect"
	"testing"

	"diarize/internal/audio"
)

func buffer(seconds float64, rate int) audio.Buffer {
	return audio.Buffer{Samples: make([]float32, int(seconds*float64(rate))), SampleRate: rate}
}

func TestIntervals(t *testing.T) {
	cases := []struct {
		name     string
		points   []float64
		duration float64
		want     []Interval
	}{
		{"empty recording", nil, 0, nil},
		{"short single segment", nil, 12, []Interval{{0, 12}}},
		{"exactly thirty seconds", nil, 30, []Interval{{0, 30}}},
		{"forty second fallback", nil, 40, []Interval{{0, 25}, {25, 40}}},
		{"tail margin", nil, 54, []Interval{{0, 25}, {25, 50}}},
		{"single change", []float64{12.3}, 20, []Interval{{0, 12.3}, {12.3, 20}}},
		{"short gap dropped", []float64{5, 6.5, 12}, 20, []Interval{{0, 5}, {6.5, 12}, {12, 20}}},
		{"short tail dropped", []float64{9}, 10, []Interval{{0, 9}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Intervals(tc.points, tc.duration)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Intervals = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntervalsRespectMinimumDuration(t *testing.T) {
	points := []float64{1.5, 3, 4.2, 7, 8.9, 11, 15}
	for _, iv := range Intervals(points, 16) {
		if iv.End-iv.Start < MinDuration {
			t.Fatalf("interval %v shorter than %v", iv, MinDuration)
		}
	}
}

func TestShortGapsLoseCoverage(t *testing.T) {
	intervals := Intervals([]float64{5, 6.5}, 10)
	var covered float64
	for _, iv := range intervals {
		covered += iv.End - iv.Start
	}
	if covered != 8.5 {
		t.Fatalf("expected 1.5 s of uncovered audio, covered %v of 10", covered)
	}
}

func TestBuildSlicesSamples(t *testing.T) {
	buf := buffer(40, 100)
	segments := Build(nil, buf)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if got := len(segments[0].Samples); got != 2500 {
		t.Fatalf("first segment samples = %d, want 2500", got)
	}
	if got := len(segments[1].Samples); got != 1500 {
		t.Fatalf("second segment samples = %d, want 1500", got)
	}
	if segments[1].Duration() != 15 {
		t.Fatalf("second segment duration = %v", segments[1].Duration())
	}
}

func TestBuildSingleChange(t *testing.T) {
	segments := Build([]float64{12.3}, buffer(20, 16000))
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 12.3 || segments[1].Start != 12.3 || segments[1].End != 20 {
		t.Fatalf("unexpected segments %+v %+v", segments[0].Start, segments[1].End)
	}
}

func TestBuildEmptyBuffer(t *testing.T) {
	if got := Build(nil, audio.Buffer{SampleRate: 16000}); len(got) != 0 {
		t.Fatalf("expected no segments, got %d", len(got))
	}
}
