package runlog

import (
	"context"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := RunRecord{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Command:   "run-qaqc",
			Root:      "/data",
			Total:     10,
			Succeeded: 9,
			Failed:    1,
			Output:    "/data/qaqc.csv",
			Duration:  1500 * time.Millisecond,
		}
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Newest first.
	if !records[0].StartedAt.After(records[1].StartedAt) {
		t.Errorf("expected newest first, got %v then %v", records[0].StartedAt, records[1].StartedAt)
	}
	r := records[0]
	if r.Command != "run-qaqc" || r.Root != "/data" || r.Total != 10 || r.Succeeded != 9 || r.Failed != 1 {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Duration != 1500*time.Millisecond {
		t.Errorf("expected 1.5s duration, got %v", r.Duration)
	}
}

func TestRecentEmpty(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
