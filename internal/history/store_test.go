package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"diarize/internal/diarization"
	"diarize/internal/segment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRun(id string, created time.Time) Run {
	return Run{
		ID:            id,
		AudioPath:     "/audio/" + id + ".wav",
		Status:        StatusCompleted,
		CreatedAt:     created,
		AudioDuration: 40,
		Elapsed:       1500 * time.Millisecond,
		Threshold:     0.3,
		MaxSpeakers:   10,
		Windows:       24,
		ChangePoints:  1,
		Segments:      2,
		Speakers: []SpeakerSummary{
			{ID: 0, Segments: 1, TotalDuration: 25, AverageConfidence: 0.9},
			{ID: 1, Segments: 1, TotalDuration: 15, AverageConfidence: 0.8},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Record(ctx, testRun("abc123", created)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "abc123")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.AudioPath != "/audio/abc123.wav" || got.Elapsed != 1500*time.Millisecond || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.Speakers) != 2 || got.Speakers[1].TotalDuration != 15 {
		t.Fatalf("unexpected speakers %+v", got.Speakers)
	}

	if missing, err := store.Get(ctx, "zzz"); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown id, got %v %v", missing, err)
	}
}

func TestGetByPrefix(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"aa11", "aa22", "bb33"} {
		if err := store.Record(ctx, testRun(id, now)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.Get(ctx, "bb")
	if err != nil || got == nil || got.ID != "bb33" {
		t.Fatalf("prefix lookup = %v, %v", got, err)
	}
	if _, err := store.Get(ctx, "aa"); !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID, got %v", err)
	}
}

func TestRecordReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	run := testRun("r1", time.Now())
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Status = StatusFailed
	run.ErrorMessage = "boom"
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != StatusFailed || runs[0].ErrorMessage != "boom" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestListNewestFirstAndPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := store.Record(ctx, testRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Fatalf("unexpected order %+v", runs)
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil || removed != 2 {
		t.Fatalf("Prune removed %d (%v), want 2", removed, err)
	}
	runs, _ = store.List(ctx, 0)
	if len(runs) != 1 || runs[0].ID != "r3" {
		t.Fatalf("expected only newest run, got %+v", runs)
	}
}

func TestRecordRejectsEmptyID(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Run{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := OpenPath(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestNewRunStatus(t *testing.T) {
	result := diarization.Result{
		RunID:    "r1",
		Duration: 20,
		Segments: []segment.Segment{{Start: 0, End: 20}},
		Speakers: []diarization.SpeakerStats{{ID: 0, SegmentCount: 1, TotalDuration: 20, AverageConfidence: 1}},
	}
	run := NewRun(result, "a.wav", 0.3, 10)
	if run.Status != StatusCompleted || run.Segments != 1 || len(run.Speakers) != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
	result.Fallbacks = 1
	if NewRun(result, "a.wav", 0.3, 10).Status != StatusDegraded {
		t.Fatal("fallbacks should mark the run degraded")
	}
	failed := NewFailedRun("r2", "b.wav", 0.3, 10, errors.New("bad input"))
	if failed.Status != StatusFailed || failed.ErrorMessage != "bad input" {
		t.Fatalf("unexpected failed run %+v", failed)
	}
}
