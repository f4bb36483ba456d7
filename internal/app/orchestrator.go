package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vision-encoder/internal/checkpoint"
)

// Orchestrator coordinates the conversion run and its shutdown
type Orchestrator struct {
	config       *Config
	checkpointer *checkpoint.Checkpointer
	statsManager *StatsManager
}

// NewOrchestrator creates an orchestrator and opens its persistent state
func NewOrchestrator(config *Config) (*Orchestrator, error) {
	if err := CreateDirectories(config); err != nil {
		return nil, err
	}

	checkpointer, err := checkpoint.NewCheckpointer(config.CheckpointDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	statsFile := filepath.Join(filepath.Dir(config.CheckpointDB), "conversion_stats.json")
	statsManager := NewStatsManager(statsFile)

	return &Orchestrator{
		config:       config,
		checkpointer: checkpointer,
		statsManager: statsManager,
	}, nil
}

// Close releases the orchestrator's persistent state
func (o *Orchestrator) Close() {
	if err := o.statsManager.Close(); err != nil {
		log.Printf("⚠️ Failed to save stats: %v", err)
	}
	if err := o.checkpointer.Close(); err != nil {
		log.Printf("⚠️ Failed to close checkpoint database: %v", err)
	}
}

// Run executes the conversion until done or interrupted
func (o *Orchestrator) Run() error {
	o.statsManager.PrintInitialStatus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- RunConversion(ctx, o.config, o.checkpointer, o.statsManager)
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Printf("🛑 Received signal %v, shutting down...", sig)
		if err := o.statsManager.Save(); err != nil {
			log.Printf("⚠️ Failed to save stats: %v", err)
		}
		cancel()

		select {
		case <-errChan:
			log.Println("✅ Workers stopped cleanly")
		case <-time.After(30 * time.Second):
			log.Println("⚠️ Timed out waiting for workers to stop")
		}
	}

	return nil
}
