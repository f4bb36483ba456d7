package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"vision-encoder/internal/app"
	"vision-encoder/internal/fetch"
)

func main() {
	app.LoadEnv()

	destDefault := "mathwriting_data"
	if v := os.Getenv("VISION_DATA_DIR"); v != "" {
		destDefault = filepath.Join(v, "mathwriting_data")
	}

	url := flag.String("url", fetch.MathwritingURL, "Archive URL to download")
	dest := flag.String("dest", destDefault, "Directory to extract the dataset into")
	flag.Parse()

	downloader := fetch.NewArchiveDownloader()
	if err := downloader.Fetch(*url, *dest); err != nil {
		log.Fatalf("❌ Fetch failed: %v", err)
	}
}
