package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// PersistentStats tracks conversion statistics across runs
type PersistentStats struct {
	TotalRecordsWritten  int64  `json:"total_records_written"`
	TotalFailedDocuments int64  `json:"total_failed_documents"`
	TotalBatchesWritten  int64  `json:"total_batches_written"`
	TotalConversionRuns  int64  `json:"total_conversion_runs"`
	DailyRecordsWritten  int64  `json:"daily_records_written"`
	DailyFailedDocuments int64  `json:"daily_failed_documents"`
	DailyBatchesWritten  int64  `json:"daily_batches_written"`
	LastResetDate        string `json:"last_reset_date"`
	LastUpdated          string `json:"last_updated"`
}

// StatsManager handles persistent statistics with thread safety
type StatsManager struct {
	mu        sync.RWMutex
	stats     PersistentStats
	statsFile string
}

// NewStatsManager creates a new stats manager and loads existing stats
func NewStatsManager(statsFile string) *StatsManager {
	sm := &StatsManager{
		statsFile: statsFile,
	}
	sm.loadStats()
	sm.checkAndResetDaily()
	return sm
}

// loadStats loads statistics from the stats file
func (sm *StatsManager) loadStats() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := os.ReadFile(sm.statsFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Could not read stats file: %v", err)
		}
		sm.stats = PersistentStats{
			LastResetDate: time.Now().Format("2006-01-02"),
		}
		return
	}

	if err := json.Unmarshal(data, &sm.stats); err != nil {
		log.Printf("⚠️ Could not parse stats file, starting fresh: %v", err)
		sm.stats = PersistentStats{
			LastResetDate: time.Now().Format("2006-01-02"),
		}
	}
}

// saveStats saves statistics to the stats file
func (sm *StatsManager) saveStats() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(sm.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := os.WriteFile(sm.statsFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}

	return nil
}

// checkAndResetDaily resets daily counters if the date has changed
func (sm *StatsManager) checkAndResetDaily() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if sm.stats.LastResetDate != today {
		log.Printf("📅 New day detected, resetting daily counters (last reset: %s)", sm.stats.LastResetDate)
		sm.stats.DailyRecordsWritten = 0
		sm.stats.DailyFailedDocuments = 0
		sm.stats.DailyBatchesWritten = 0
		sm.stats.LastResetDate = today
	}
}

// RecordBatch adds one processed group to the counters. Groups where
// every document failed produce no batch file, so they only count
// toward the failure totals.
func (sm *StatsManager) RecordBatch(records, failures int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats.TotalRecordsWritten += int64(records)
	sm.stats.TotalFailedDocuments += int64(failures)
	sm.stats.DailyRecordsWritten += int64(records)
	sm.stats.DailyFailedDocuments += int64(failures)
	if records > 0 {
		sm.stats.TotalBatchesWritten++
		sm.stats.DailyBatchesWritten++
	}
}

// RecordRun counts one completed conversion run
func (sm *StatsManager) RecordRun() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats.TotalConversionRuns++
}

// GetCurrentStats returns a snapshot of current statistics
func (sm *StatsManager) GetCurrentStats() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return map[string]interface{}{
		"total_records_written":  sm.stats.TotalRecordsWritten,
		"total_failed_documents": sm.stats.TotalFailedDocuments,
		"total_batches_written":  sm.stats.TotalBatchesWritten,
		"total_conversion_runs":  sm.stats.TotalConversionRuns,
		"daily_records_written":  sm.stats.DailyRecordsWritten,
		"daily_failed_documents": sm.stats.DailyFailedDocuments,
		"daily_batches_written":  sm.stats.DailyBatchesWritten,
		"last_reset_date":        sm.stats.LastResetDate,
	}
}

// PrintInitialStatus prints statistics at startup
func (sm *StatsManager) PrintInitialStatus() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	fmt.Println("📊 Conversion Statistics:")
	fmt.Printf("  📝 Total records written: %d\n", sm.stats.TotalRecordsWritten)
	fmt.Printf("  📦 Total batches written: %d\n", sm.stats.TotalBatchesWritten)
	fmt.Printf("  ⚠️  Total failed documents: %d\n", sm.stats.TotalFailedDocuments)
	fmt.Printf("  🔄 Conversion runs: %d\n", sm.stats.TotalConversionRuns)
	fmt.Printf("  📅 Today: %d records, %d batches, %d failures\n",
		sm.stats.DailyRecordsWritten, sm.stats.DailyBatchesWritten, sm.stats.DailyFailedDocuments)
}

// PrintFinalStatistics prints the session totals after a completed run
func (sm *StatsManager) PrintFinalStatistics() {
	stats := sm.GetCurrentStats()

	fmt.Printf("\n🎯 Final Statistics:\n")
	fmt.Printf("===================\n")
	fmt.Printf("📝 Daily Records Written: %d\n", stats["daily_records_written"])
	fmt.Printf("📦 Daily Batches Written: %d\n", stats["daily_batches_written"])
	fmt.Printf("⚠️  Daily Failed Documents: %d\n", stats["daily_failed_documents"])
	fmt.Printf("🔄 Total Conversion Runs: %d\n", stats["total_conversion_runs"])
}

// Save persists the current statistics to disk
func (sm *StatsManager) Save() error {
	return sm.saveStats()
}

// Close saves stats one final time
func (sm *StatsManager) Close() error {
	log.Println("💾 Saving final statistics...")
	return sm.saveStats()
}
