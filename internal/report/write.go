package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Write renders r to w in the requested format.
func Write(w io.Writer, format string, r Report) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		_, err := io.WriteString(w, renderReportTables(r))
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// FormatTime renders seconds as HH:MM:SS.mmm.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	h := millis / 3_600_000
	m := (millis / 60_000) % 60
	s := (millis / 1000) % 60
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func renderReportTables(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	if r.AudioPath != "" {
		fmt.Fprintf(&b, "Audio: %s (%s)\n", r.AudioPath, FormatTime(r.AudioDuration))
	}
	fmt.Fprintf(&b, "Speakers: %d  Segments: %d\n\n", r.TotalSpeakers, len(r.Segments))

	rows := make([][]string, 0, len(r.Segments))
	for i, seg := range r.Segments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			FormatTime(seg.StartTime),
			FormatTime(seg.EndTime),
			strconv.FormatFloat(seg.Duration, 'f', 2, 64),
			strconv.Itoa(seg.SpeakerID),
			strconv.FormatFloat(seg.Confidence, 'f', 3, 64),
		})
	}
	b.WriteString(RenderTable(
		[]string{"#", Header("start"), Header("end"), Header("duration"), Header("speaker_id"), Header("confidence")},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight},
	))
	b.WriteString("\n")

	if len(r.Speakers) > 0 {
		speakerRows := make([][]string, 0, len(r.Speakers))
		for _, sp := range r.Speakers {
			speakerRows = append(speakerRows, []string{
				strconv.Itoa(sp.SpeakerID),
				strconv.Itoa(sp.SegmentCount),
				strconv.FormatFloat(sp.TotalDuration, 'f', 1, 64),
				strconv.FormatFloat(sp.AverageConfidence, 'f', 3, 64),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(
			[]string{Header("speaker_id"), Header("segment_count"), Header("total_duration"), Header("average_confidence")},
			speakerRows,
			[]Alignment{AlignRight, AlignRight, AlignRight, AlignRight},
		))
		b.WriteString("\n")
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", warning)
	}
	return b.String()
}

// summaryIntervals is how many intervals the speaker summary lists per speaker.
const summaryIntervals = 3

// WriteSummary prints a per-speaker overview listing the first few intervals
// of each speaker.
func WriteSummary(w io.Writer, r Report) error {
	byID := make(map[int][]SegmentEntry)
	for _, seg := range r.Segments {
		byID[seg.SpeakerID] = append(byID[seg.SpeakerID], seg)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Detected %d speakers:\n", len(r.Speakers))
	for _, sp := range r.Speakers {
		segs := byID[sp.SpeakerID]
		fmt.Fprintf(&b, "  Speaker %d: %d segments, %.1fs total\n", sp.SpeakerID, len(segs), sp.TotalDuration)
		for i := 0; i < len(segs) && i < summaryIntervals; i++ {
			fmt.Fprintf(&b, "    %s - %s\n", FormatTime(segs[i].StartTime), FormatTime(segs[i].EndTime))
		}
		if extra := len(segs) - summaryIntervals; extra > 0 {
			fmt.Fprintf(&b, "    ... and %d more segments\n", extra)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
