package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"vision-encoder/internal/app"
	"vision-encoder/internal/svg"
)

// thumbSize is the cell size of the contact sheet written next to the
// full-size samples.
const thumbSize = 96

func main() {
	batchFile := flag.String("file", "", "Batch file to inspect (.parquet or .arrow)")
	samples := flag.Int("samples", 3, "Number of images to decode for eyeballing")
	flag.Parse()

	if *batchFile == "" && flag.NArg() > 0 {
		*batchFile = flag.Arg(0)
	}
	if *batchFile == "" {
		fmt.Println("Usage: diagnose [-samples N] <batch file>")
		os.Exit(1)
	}

	records, err := readBatch(*batchFile)
	if err != nil {
		fmt.Printf("Failed to read batch: %v\n", err)
		os.Exit(1)
	}

	printSummary(*batchFile, records)

	if err := dumpSamples(*batchFile, records, *samples); err != nil {
		fmt.Printf("Failed to dump samples: %v\n", err)
		os.Exit(1)
	}
}

func readBatch(path string) ([]app.SketchRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow":
		return app.ReadArrowBatch(path)
	default:
		return app.ReadParquetBatch(path)
	}
}

func printSummary(path string, records []app.SketchRecord) {
	fmt.Printf("Batch file: %s\n", path)
	fmt.Printf("Rows: %d\n", len(records))

	minLabel, maxLabel, totalLabel := len(records[0].Label), 0, 0
	minImage, maxImage, totalImage := len(records[0].Image), 0, 0
	problems := make(map[string]bool)
	confidences := make(map[int32]bool)

	for _, record := range records {
		if n := len(record.Label); true {
			if n < minLabel {
				minLabel = n
			}
			if n > maxLabel {
				maxLabel = n
			}
			totalLabel += n
		}
		if n := len(record.Image); true {
			if n < minImage {
				minImage = n
			}
			if n > maxImage {
				maxImage = n
			}
			totalImage += n
		}
		problems[record.Problem] = true
		confidences[record.Confidence] = true
	}

	fmt.Printf("Columns:\n")
	fmt.Printf("  image: base64 PNG, %d-%d chars (avg %d)\n", minImage, maxImage, totalImage/len(records))

	if len(problems) == 1 {
		fmt.Printf("  problem: constant %q\n", records[0].Problem)
	} else {
		fmt.Printf("  problem: %d distinct values (expected constant)\n", len(problems))
	}

	fmt.Printf("  label: %d-%d chars (avg %d)\n", minLabel, maxLabel, totalLabel/len(records))

	if len(confidences) == 1 {
		grade := records[0].Confidence
		fmt.Printf("  confidence: constant %d - %s\n", grade, app.ConfidenceExplanations[grade])
	} else {
		fmt.Printf("  confidence: %d distinct values (expected constant)\n", len(confidences))
	}
}

func dumpSamples(batchPath string, records []app.SketchRecord, n int) error {
	if n > len(records) {
		n = len(records)
	}
	if n <= 0 {
		return nil
	}

	outDir := filepath.Dir(batchPath)
	base := strings.TrimSuffix(filepath.Base(batchPath), filepath.Ext(batchPath))

	sheet := image.NewRGBA(image.Rect(0, 0, thumbSize*n, thumbSize))
	draw.Draw(sheet, sheet.Bounds(), image.White, image.Point{}, draw.Src)

	fmt.Printf("Samples:\n")
	for i := 0; i < n; i++ {
		record := records[i]

		img, err := svg.DecodeImage(record.Image)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		// Re-encoding the decoded bitmap must reproduce the stored
		// payload exactly.
		reencoded, err := svg.EncodeImage(img)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		roundTrip := "ok"
		if reencoded != record.Image {
			roundTrip = "MISMATCH"
		}

		raw, err := base64.StdEncoding.DecodeString(record.Image)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		samplePath := filepath.Join(outDir, fmt.Sprintf("%s_sample_%d.png", base, i+1))
		if err := os.WriteFile(samplePath, raw, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", samplePath, err)
		}

		addThumbnail(sheet, img, i)

		bounds := img.Bounds()
		fmt.Printf("  sample %d: %dx%d px, round-trip %s -> %s\n",
			i+1, bounds.Dx(), bounds.Dy(), roundTrip, samplePath)
	}

	sheetPath := filepath.Join(outDir, base+"_contact.png")
	f, err := os.Create(sheetPath)
	if err != nil {
		return fmt.Errorf("failed to create contact sheet: %w", err)
	}
	if err := png.Encode(f, sheet); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode contact sheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write contact sheet: %w", err)
	}
	fmt.Printf("  contact sheet: %s\n", sheetPath)

	return nil
}

// addThumbnail scales img into cell i of the contact sheet, preserving
// its aspect ratio inside the square cell.
func addThumbnail(sheet *image.RGBA, img image.Image, i int) {
	b := img.Bounds()
	tw, th := thumbSize, thumbSize
	if b.Dx() > b.Dy() {
		th = b.Dy() * thumbSize / b.Dx()
	} else {
		tw = b.Dx() * thumbSize / b.Dy()
	}

	x0 := i*thumbSize + (thumbSize-tw)/2
	y0 := (thumbSize - th) / 2
	cell := image.Rect(x0, y0, x0+tw, y0+th)
	draw.ApproxBiLinear.Scale(sheet, cell, img, b, draw.Src, nil)
}
