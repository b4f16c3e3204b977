package sessionlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleEntry(patient string) *Entry {
	return &Entry{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local),
		PatientID: patient,
		CaseID:    5,
		CaseTitle: "CASE 5: Cardiac Arrest",
		Topic:     "/icu/bed5/cardiac",
		HeartRate: 28,
		Oxygen:    76,
		Glucose:   114,
		RiskLabel: "Moderate",
	}
}

func TestCSVRepo_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icu_data.csv")
	repo := NewCSVRepo(path)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Append(ctx, sampleEntry("PT-1001")); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if got := strings.Count(string(raw), "Heart Rate"); got != 1 {
		t.Errorf("expected header once, found %d times", got)
	}
	if !strings.HasPrefix(lines[0], "ID,Timestamp,Patient ID") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestCSVRepo_AppendAssignsID(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "log.csv"))
	e := sampleEntry("PT-1002")
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected an id to be assigned")
	}
}

func TestCSVRepo_ListPaginates(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "log.csv"))
	ctx := context.Background()
	for _, p := range []string{"A", "B", "C", "D", "E"} {
		if err := repo.Append(ctx, sampleEntry(p)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	items, total, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(items) != 2 || items[0].PatientID != "B" || items[1].PatientID != "C" {
		t.Errorf("unexpected page %+v", items)
	}
	if items[0].CaseID != 5 || items[0].HeartRate != 28 || items[0].Topic != "/icu/bed5/cardiac" || items[0].RiskLabel != "Moderate" {
		t.Errorf("row did not round-trip: %+v", items[0])
	}
	if !items[0].Timestamp.Equal(sampleEntry("").Timestamp) {
		t.Errorf("timestamp did not round-trip: %v", items[0].Timestamp)
	}

	items, _, err = repo.List(ctx, 10, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(items))
	}
}

func TestCSVRepo_ListMissingFile(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "absent.csv"))
	items, total, err := repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected empty log, got %d/%d", len(items), total)
	}
}

func TestCSVRepo_ConcurrentAppends(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "log.csv"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Append(ctx, sampleEntry("PT-1003")); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	_, total, err := repo.List(ctx, 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 20 {
		t.Errorf("expected 20 rows, got %d", total)
	}
}

func TestCSVRepo_UnwritablePath(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "missing-dir", "log.csv"))
	if err := repo.Append(context.Background(), sampleEntry("PT-1001")); err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}
