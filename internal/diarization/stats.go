package diarization

import (
	"sort"

	"diarize/internal/segment"
)

// SpeakerStats aggregates the segments attributed to one speaker.
type SpeakerStats struct {
	ID                int
	SegmentCount      int
	TotalDuration     float64
	AverageConfidence float64
}

func speakerStats(segments []segment.Segment) []SpeakerStats {
	byID := make(map[int]*SpeakerStats)
	confidence := make(map[int]float64)
	for _, seg := range segments {
		st, ok := byID[seg.SpeakerID]
		if !ok {
			st = &SpeakerStats{ID: seg.SpeakerID}
			byID[seg.SpeakerID] = st
		}
		st.SegmentCount++
		st.TotalDuration += seg.Duration()
		confidence[seg.SpeakerID] += seg.Confidence
	}
	out := make([]SpeakerStats, 0, len(byID))
	for id, st := range byID {
		st.AverageConfidence = confidence[id] / float64(st.SegmentCount)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
