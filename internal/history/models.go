package history

import (
	"time"

	"diarize/internal/diarization"
)

// Status values for a recorded run.
const (
	StatusCompleted = "completed"
	// StatusDegraded marks runs that finished with warnings or fallbacks.
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// SpeakerSummary is the per-speaker total kept for a run.
type SpeakerSummary struct {
	ID                int     `json:"id"`
	Segments          int     `json:"segments"`
	TotalDuration     float64 `json:"total_duration"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Run is one stored run summary.
type Run struct {
	ID            string
	AudioPath     string
	Status        string
	ErrorMessage  string
	CreatedAt     time.Time
	AudioDuration float64
	Elapsed       time.Duration
	Threshold     float64
	MaxSpeakers   int
	Windows       int
	ChangePoints  int
	Segments      int
	Fallbacks     int
	Speakers      []SpeakerSummary
}

// NewRun summarizes a finished run.
func NewRun(result diarization.Result, audioPath string, threshold float64, maxSpeakers int) Run {
	status := StatusCompleted
	if len(result.Warnings) > 0 || result.Fallbacks > 0 {
		status = StatusDegraded
	}
	run := Run{
		ID:            result.RunID,
		AudioPath:     audioPath,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
		AudioDuration: result.Duration,
		Elapsed:       result.Elapsed,
		Threshold:     threshold,
		MaxSpeakers:   maxSpeakers,
		Windows:       result.Windows,
		ChangePoints:  len(result.ChangePoints),
		Segments:      len(result.Segments),
		Fallbacks:     result.Fallbacks,
	}
	for _, st := range result.Speakers {
		run.Speakers = append(run.Speakers, SpeakerSummary{
			ID:                st.ID,
			Segments:          st.SegmentCount,
			TotalDuration:     st.TotalDuration,
			AverageConfidence: st.AverageConfidence,
		})
	}
	return run
}

// NewFailedRun records a run that returned an error.
func NewFailedRun(runID, audioPath string, threshold float64, maxSpeakers int, err error) Run {
	run := Run{
		ID:          runID,
		AudioPath:   audioPath,
		Status:      StatusFailed,
		CreatedAt:   time.Now().UTC(),
		Threshold:   threshold,
		MaxSpeakers: maxSpeakers,
	}
	if err != nil {
		run.ErrorMessage = err.Error()
	}
	return run
}
