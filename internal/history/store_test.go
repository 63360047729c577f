package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"av1clip/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := history.Run{
		RunID:       "run-1",
		SourcePath:  "/media/a.mkv",
		SourceRange: "1.00-1.30",
		Fingerprint: "abc",
		OutputPath:  "/media/a AV1 1.00-1.30.webm",
		State:       "succeeded",
		Stages: []history.StageRecord{
			{Name: "frames", DurationMS: 900},
			{Name: "encode", DurationMS: 950},
			{Name: "mux", DurationMS: 1000},
		},
		StartedAt:  base,
		FinishedAt: base.Add(3 * time.Second),
	}
	second := history.Run{
		RunID:        "run-2",
		SourcePath:   "/media/a.mkv",
		Fingerprint:  "abc",
		State:        "failed",
		CacheHit:     true,
		ErrorMessage: "encode: exit status 1",
		Stages:       []history.StageRecord{{Name: "encode", Code: 1}, {Name: "frames", Hung: true, Killed: true}},
		StartedAt:    base.Add(time.Minute),
		FinishedAt:   base.Add(time.Minute + time.Second),
	}
	for _, run := range []history.Run{first, second} {
		if id, err := store.Record(ctx, run); err != nil || id == 0 {
			t.Fatalf("Record(%s) = %d, %v", run.RunID, id, err)
		}
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	got := runs[0]
	if !got.CacheHit || got.ErrorMessage == "" || len(got.Stages) != 2 || !got.Stages[1].Killed {
		t.Fatalf("unexpected decoded run %+v", got)
	}
	if runs[1].Duration() != 3*time.Second || runs[1].SourceRange != "1.00-1.30" {
		t.Fatalf("unexpected first run %+v", runs[1])
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d runs, %v", len(limited), err)
	}

	byFP, err := store.ForFingerprint(ctx, "abc")
	if err != nil || len(byFP) != 2 {
		t.Fatalf("ForFingerprint = %d runs, %v", len(byFP), err)
	}

	if _, err := store.Record(ctx, first); err == nil {
		t.Fatal("expected duplicate run id to be rejected")
	}
	if _, err := store.Record(ctx, history.Run{}); err == nil {
		t.Fatal("expected missing run id to be rejected")
	}

	cleared, err := store.Clear(ctx)
	if err != nil || cleared != 2 {
		t.Fatalf("Clear = %d, %v", cleared, err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Run{RunID: "r", SourcePath: "s", Fingerprint: "f", State: "succeeded", StartedAt: time.Now(), FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d, %v", len(runs), err)
	}
}
