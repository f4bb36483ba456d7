package app

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from .env file
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

// ParseFlags parses command line flags and returns configuration
func ParseFlags() *Config {
	LoadEnv()

	config := &Config{
		InputDir:     ".",
		OutputDir:    "vision_data",
		Datasets:     []string{"mathwriting", "quickdraw", "tldraw"},
		Format:       FormatParquet,
		NumWorkers:   DefaultNumWorkers,
		BatchSize:    DefaultBatchSize,
		CheckpointDB: filepath.Join("vision_data", "checkpoints.db"),
	}

	// Environment overrides for the directory defaults
	if v := os.Getenv("VISION_DATA_DIR"); v != "" {
		config.InputDir = v
	}
	if v := os.Getenv("VISION_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
		config.CheckpointDB = filepath.Join(v, "checkpoints.db")
	}

	datasetsStr := strings.Join(config.Datasets, ",")
	if v := os.Getenv("VISION_DATASETS"); v != "" {
		datasetsStr = v
	}

	// Define flags
	flag.StringVar(&config.InputDir, "input", config.InputDir, "Root directory containing <dataset>_data/svgs trees")
	flag.StringVar(&config.OutputDir, "output", config.OutputDir, "Output directory for batch files")
	flag.StringVar(&datasetsStr, "datasets", datasetsStr, "Comma-separated list of datasets to convert")
	flag.StringVar(&config.Format, "format", config.Format, "Batch file format (parquet or arrow)")
	flag.IntVar(&config.NumWorkers, "workers", config.NumWorkers, "Number of concurrent conversion workers")
	flag.IntVar(&config.BatchSize, "batch-size", config.BatchSize, "Documents per batch file")
	flag.StringVar(&config.CheckpointDB, "checkpoint", config.CheckpointDB, "Checkpoint database file")
	flag.BoolVar(&config.DryRun, "dry-run", config.DryRun, "Show configuration and scan counts without converting")

	flag.Parse()

	// Parse datasets string
	config.Datasets = SplitDatasets(datasetsStr)

	return config
}

// SplitDatasets parses a comma-separated dataset list, dropping empty entries
func SplitDatasets(s string) []string {
	var datasets []string
	for _, d := range strings.Split(s, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			datasets = append(datasets, d)
		}
	}
	return datasets
}

// DatasetInputDir returns the directory scanned for a dataset's documents
func (c *Config) DatasetInputDir(dataset string) string {
	return filepath.Join(c.InputDir, dataset+"_data", "svgs")
}

// DatasetOutputDir returns the directory a dataset's batch files are written to
func (c *Config) DatasetOutputDir(dataset string) string {
	return filepath.Join(c.OutputDir, dataset+"_tldraw")
}

// BatchFileName returns the file name for a 1-based batch number
func (c *Config) BatchFileName(n int) string {
	return fmt.Sprintf("vision_data_%d.%s", n, c.Format)
}

// ValidateConfiguration checks if the configuration is valid
func ValidateConfiguration(config *Config) error {
	if config.InputDir == "" {
		return fmt.Errorf("input directory cannot be empty")
	}

	if config.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if len(config.Datasets) == 0 {
		return fmt.Errorf("dataset list cannot be empty")
	}

	if config.Format != FormatParquet && config.Format != FormatArrow {
		return fmt.Errorf("unsupported format: %s (want parquet or arrow)", config.Format)
	}

	if config.NumWorkers <= 0 {
		return fmt.Errorf("number of workers must be positive")
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	return nil
}

// PrintConfiguration prints the current configuration in a readable format
func PrintConfiguration(config *Config) {
	fmt.Println("📋 Configuration:")
	fmt.Printf("  📂 Input Directory: %s\n", config.InputDir)
	fmt.Printf("  📄 Output Directory: %s\n", config.OutputDir)
	fmt.Printf("  🏷️  Datasets: %v\n", config.Datasets)
	fmt.Printf("  📦 Format: %s\n", config.Format)
	fmt.Printf("  🔧 Workers: %d\n", config.NumWorkers)
	fmt.Printf("  📝 Batch Size: %d documents\n", config.BatchSize)
	fmt.Printf("  💾 Checkpoint DB: %s\n", config.CheckpointDB)

	if config.DryRun {
		fmt.Printf("\n  🔍 Dry Run: Enabled\n")
	}
}
