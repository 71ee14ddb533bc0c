package peaks

import (
	"reflect"
	"testing"
)

func TestFind(t *testing.T) {
	cases := []struct {
		name        string
		scores      []float64
		threshold   float64
		minDistance int
		want        []int
	}{
		{"empty", nil, 0, 1, nil},
		{"too short", []float64{0, 1}, 0, 1, nil},
		{"single peak", []float64{0, 0.5, 0}, 0.1, 1, []int{1}},
		{"below threshold", []float64{0, 0.5, 0}, 0.5, 1, nil},
		{"tie disqualifies", []float64{0, 0.5, 0.5, 0}, 0.1, 1, nil},
		{"two peaks", []float64{0, 0.9, 0.1, 0.8, 0}, 0.2, 1, []int{1, 3}},
		{"wider spacing suppresses neighbour", []float64{0, 0.9, 0.1, 0.8, 0, 0}, 0.2, 2, []int{}},
		{"edges never qualify", []float64{1, 0, 0, 0, 1}, 0, 1, nil},
		{"zero distance acts as one", []float64{0, 0.7, 0}, 0.1, 0, []int{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Find(tc.scores, tc.threshold, tc.minDistance)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Find = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindWideWindowKeepsDominantPeak(t *testing.T) {
	scores := []float64{0, 0.2, 0.3, 0.9, 0.3, 0.2, 0.1, 0}
	got := Find(scores, 0.1, 2)
	if !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("expected only index 3, got %v", got)
	}
}
