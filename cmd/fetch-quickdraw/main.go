package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"vision-encoder/internal/app"
	"vision-encoder/internal/checkpoint"
	"vision-encoder/internal/fetch"
)

func main() {
	app.LoadEnv()

	destDefault := filepath.Join("quickdraw_data", "ndjsons")
	if v := os.Getenv("VISION_DATA_DIR"); v != "" {
		destDefault = filepath.Join(v, "quickdraw_data", "ndjsons")
	}

	dest := flag.String("dest", destDefault, "Directory to download sketch files into")
	workers := flag.Int("workers", 10, "Number of concurrent downloads")
	lines := flag.Int("lines", 100, "Lines to keep per downloaded file")
	maxFiles := flag.Int("max-files", 0, "Maximum files to download (0 = all)")
	checkpointDB := flag.String("checkpoint", filepath.Join("vision_data", "checkpoints.db"), "Checkpoint database file")
	flag.Parse()

	var checkpointer *checkpoint.Checkpointer
	if err := os.MkdirAll(filepath.Dir(*checkpointDB), 0755); err == nil {
		checkpointer, err = checkpoint.NewCheckpointer(*checkpointDB)
		if err != nil {
			log.Printf("⚠️ Running without checkpointing: %v", err)
			checkpointer = nil
		}
	} else {
		log.Printf("⚠️ Running without checkpointing: %v", err)
	}

	fetcher := fetch.NewQuickdrawFetcher(*dest, checkpointer)
	fetcher.NumWorkers = *workers
	fetcher.TruncateLines = *lines
	fetcher.MaxFiles = *maxFiles

	err := fetcher.Fetch(context.Background())
	if checkpointer != nil {
		checkpointer.Close()
	}
	if err != nil {
		log.Fatalf("❌ Fetch failed: %v", err)
	}
}
