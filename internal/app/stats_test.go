package app

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStats(t *testing.T) (*StatsManager, string) {
	t.Helper()
	statsFile := filepath.Join(t.TempDir(), "stats.json")
	return NewStatsManager(statsFile), statsFile
}

func TestRecordBatchAccumulates(t *testing.T) {
	sm, _ := newTestStats(t)

	sm.RecordBatch(100, 5)
	sm.RecordBatch(50, 0)
	sm.RecordRun()

	stats := sm.GetCurrentStats()
	if got := stats["total_records_written"].(int64); got != 150 {
		t.Errorf("expected 150 records written, got %d", got)
	}
	if got := stats["total_failed_documents"].(int64); got != 5 {
		t.Errorf("expected 5 failed documents, got %d", got)
	}
	if got := stats["total_batches_written"].(int64); got != 2 {
		t.Errorf("expected 2 batches written, got %d", got)
	}
	if got := stats["total_conversion_runs"].(int64); got != 1 {
		t.Errorf("expected 1 conversion run, got %d", got)
	}
}

func TestEmptyGroupCountsFailuresOnly(t *testing.T) {
	sm, _ := newTestStats(t)

	sm.RecordBatch(0, 4)

	stats := sm.GetCurrentStats()
	if got := stats["total_batches_written"].(int64); got != 0 {
		t.Errorf("expected no batches for an empty group, got %d", got)
	}
	if got := stats["total_failed_documents"].(int64); got != 4 {
		t.Errorf("expected 4 failed documents, got %d", got)
	}
}

func TestStatsSurviveReload(t *testing.T) {
	sm, statsFile := newTestStats(t)

	sm.RecordBatch(2000, 17)
	sm.RecordRun()
	if err := sm.Save(); err != nil {
		t.Fatalf("failed to save stats: %v", err)
	}

	reloaded := NewStatsManager(statsFile)
	stats := reloaded.GetCurrentStats()
	if got := stats["total_records_written"].(int64); got != 2000 {
		t.Errorf("expected 2000 records after reload, got %d", got)
	}
	if got := stats["total_failed_documents"].(int64); got != 17 {
		t.Errorf("expected 17 failures after reload, got %d", got)
	}
	if got := stats["total_conversion_runs"].(int64); got != 1 {
		t.Errorf("expected 1 run after reload, got %d", got)
	}
}

func TestCorruptStatsFileStartsFresh(t *testing.T) {
	statsFile := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(statsFile, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt stats: %v", err)
	}

	sm := NewStatsManager(statsFile)
	stats := sm.GetCurrentStats()
	if got := stats["total_records_written"].(int64); got != 0 {
		t.Errorf("expected fresh stats after corrupt file, got %d records", got)
	}
}
