package app

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"vision-encoder/internal/checkpoint"
	"vision-encoder/internal/svg"
)

var batchFileRe = regexp.MustCompile(`^vision_data_(\d+)\.(parquet|arrow)$`)

// convertResult carries one document's outcome back to the collector.
// A failed document still produces a result so the collector can count
// it and checkpoint the path.
type convertResult struct {
	path   string
	record SketchRecord
	err    error
}

// CreateDirectories creates necessary directories if they don't exist
func CreateDirectories(config *Config) error {
	dirs := []string{config.OutputDir, filepath.Dir(config.CheckpointDB)}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ScanForDocuments finds unconverted vector documents for a dataset
func ScanForDocuments(config *Config, dataset string, checkpointer *checkpoint.Checkpointer) ([]string, error) {
	inputDir := config.DatasetInputDir(dataset)

	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		log.Printf("⚠️ No input directory for %s (looked in %s), skipping", dataset, inputDir)
		return nil, nil
	}

	log.Printf("🔍 Scanning %s for vector documents...", inputDir)

	var documents []string
	skipped := 0

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".svg") {
			return nil
		}
		if checkpointer.IsConverted(path) {
			skipped++
			return nil
		}
		documents = append(documents, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", inputDir, err)
	}

	log.Printf("📊 Found %d pending documents for %s (%d already converted)", len(documents), dataset, skipped)
	return documents, nil
}

// NextBatchIndex returns the 1-based index the next batch file should use,
// continuing after the highest-numbered batch already in the directory.
func NextBatchIndex(outputDir string) (int, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to list output directory: %w", err)
	}

	next := 1
	for _, entry := range entries {
		m := batchFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}

	return next, nil
}

// RunConversion converts every configured dataset
func RunConversion(ctx context.Context, config *Config, checkpointer *checkpoint.Checkpointer, statsManager *StatsManager) error {
	if err := CreateDirectories(config); err != nil {
		return err
	}

	for _, dataset := range config.Datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("🚀 Converting dataset: %s", dataset)
		if err := ConvertDataset(ctx, config, dataset, checkpointer, statsManager); err != nil {
			return fmt.Errorf("dataset %s: %w", dataset, err)
		}
	}

	statsManager.RecordRun()
	if err := statsManager.Save(); err != nil {
		log.Printf("⚠️ Failed to save stats: %v", err)
	}
	statsManager.PrintFinalStatistics()

	log.Println("🎉 All datasets converted")
	return nil
}

// ConvertDataset converts one dataset's pending documents into batch files
func ConvertDataset(ctx context.Context, config *Config, dataset string, checkpointer *checkpoint.Checkpointer, statsManager *StatsManager) error {
	paths, err := ScanForDocuments(config, dataset, checkpointer)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Printf("✅ Nothing to convert for %s", dataset)
		return nil
	}

	outputDir := config.DatasetOutputDir(dataset)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	batchIndex, err := NextBatchIndex(outputDir)
	if err != nil {
		return err
	}

	numBatches := (len(paths) + config.BatchSize - 1) / config.BatchSize
	log.Printf("📦 Converting %d documents into %d batches for %s", len(paths), numBatches, dataset)

	for g := 0; g < numBatches; g++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := g * config.BatchSize
		end := start + config.BatchSize
		if end > len(paths) {
			end = len(paths)
		}

		records, processed, failures := convertGroup(ctx, config, batchIndex, paths[start:end])
		if err := ctx.Err(); err != nil {
			// Partial group: leave its documents unmarked so the next
			// run redoes the whole group.
			return err
		}

		if len(records) == 0 {
			log.Printf("⚠️ Batch %d for %s produced no records, skipping file", batchIndex, dataset)
		} else {
			fileName := config.BatchFileName(batchIndex)
			outputPath := filepath.Join(outputDir, fileName)
			if err := writeBatch(config, outputPath, records); err != nil {
				return fmt.Errorf("failed to write batch %s: %w", fileName, err)
			}

			var fileSize int64
			if info, err := os.Stat(outputPath); err == nil {
				fileSize = info.Size()
			}

			metadata := checkpoint.BatchMetadata{
				FileName:  fileName,
				Dataset:   dataset,
				Format:    config.Format,
				Records:   len(records),
				Failures:  failures,
				WrittenAt: time.Now(),
				FileSize:  fileSize,
			}
			if err := checkpointer.AddBatch(metadata); err != nil {
				log.Printf("⚠️ Failed to record batch metadata for %s: %v", fileName, err)
			}

			log.Printf("💾 Wrote %s (%d records, %d failures)", outputPath, len(records), failures)
			batchIndex++
		}

		for _, path := range processed {
			if err := checkpointer.MarkConverted(path); err != nil {
				log.Printf("⚠️ Failed to checkpoint %s: %v", path, err)
			}
		}

		statsManager.RecordBatch(len(records), failures)
	}

	return nil
}

// convertGroup runs one group of documents through the worker pool and
// collects the surviving records
func convertGroup(ctx context.Context, config *Config, batchIndex int, paths []string) ([]SketchRecord, []string, int) {
	jobs := make(chan string, config.NumWorkers*2)
	results := make(chan convertResult, config.NumWorkers*2)

	p := mpb.New(mpb.WithWidth(80))
	bar := p.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("📊 Batch %d: ", batchIndex)),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
		),
	)

	var wg sync.WaitGroup
	for w := 1; w <= config.NumWorkers; w++ {
		wg.Add(1)
		go convertWorker(w, jobs, results, &wg, bar)
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var records []SketchRecord
	var processed []string
	failures := 0

	for result := range results {
		processed = append(processed, result.path)
		if result.err != nil {
			failures++
			continue
		}
		records = append(records, result.record)
	}

	if len(processed) < len(paths) {
		bar.Abort(false)
	}
	p.Wait()

	return records, processed, failures
}

// convertWorker converts documents from the jobs channel
func convertWorker(id int, jobs <-chan string, results chan<- convertResult, wg *sync.WaitGroup, bar *mpb.Bar) {
	defer wg.Done()

	for path := range jobs {
		result := convertDocument(path)
		if result.err != nil {
			log.Printf("⚠️ Worker %d: skipping %s: %v", id, filepath.Base(path), result.err)
		}
		results <- result
		bar.Increment()
	}
}

// convertDocument turns one vector document file into a dataset record
func convertDocument(path string) convertResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return convertResult{path: path, err: fmt.Errorf("failed to read document: %w", err)}
	}

	encoded, label, err := svg.Convert(string(data))
	if err != nil {
		return convertResult{path: path, err: err}
	}

	return convertResult{path: path, record: NewSketchRecord(encoded, label)}
}

// writeBatch writes records in the configured columnar format
func writeBatch(config *Config, outputPath string, records []SketchRecord) error {
	switch config.Format {
	case FormatArrow:
		return WriteArrowBatch(outputPath, records)
	default:
		return WriteParquetBatch(outputPath, records, config.NumWorkers)
	}
}
