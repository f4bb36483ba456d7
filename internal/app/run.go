package app

import (
	"fmt"

	"vision-encoder/internal/checkpoint"
)

// RunApplication is the main entry point for the conversion pipeline
func RunApplication(config *Config) error {
	if err := ValidateConfiguration(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	PrintConfiguration(config)

	if config.DryRun {
		return DryRunScan(config)
	}

	orchestrator, err := NewOrchestrator(config)
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	fmt.Println("🚀 Starting vector-to-raster conversion...")
	return orchestrator.Run()
}

// DryRunScan reports what a real run would convert without converting
func DryRunScan(config *Config) error {
	if err := CreateDirectories(config); err != nil {
		return err
	}

	checkpointer, err := checkpoint.NewCheckpointer(config.CheckpointDB)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	defer checkpointer.Close()

	total := 0
	for _, dataset := range config.Datasets {
		documents, err := ScanForDocuments(config, dataset, checkpointer)
		if err != nil {
			return err
		}
		batches := (len(documents) + config.BatchSize - 1) / config.BatchSize
		fmt.Printf("  📄 %s: %d pending documents (%d batches)\n", dataset, len(documents), batches)
		total += len(documents)
	}

	fmt.Printf("🔍 Dry run completed - %d documents pending, nothing written\n", total)
	return nil
}
