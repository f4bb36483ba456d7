package fetch

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// MathwritingURL is the public archive of the handwritten math dataset
const MathwritingURL = "https://storage.googleapis.com/mathwriting_data/mathwriting-2024.tgz"

// ArchiveDownloader handles downloading and extracting dataset archives
type ArchiveDownloader struct {
	HTTPClient *http.Client
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

// NewArchiveDownloader creates a new archive downloader
func NewArchiveDownloader() *ArchiveDownloader {
	return &ArchiveDownloader{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		UserAgent:  "Vision-Encoder/1.0 (Dataset Downloader)",
	}
}

// Fetch downloads the archive, extracts it into dataDir and removes the
// archive afterwards
func (d *ArchiveDownloader) Fetch(url, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	archivePath := filepath.Join(filepath.Dir(filepath.Clean(dataDir)), filepath.Base(url))

	log.Printf("📥 Downloading %s...", url)
	if err := d.DownloadArchive(url, archivePath); err != nil {
		return err
	}

	log.Printf("📦 Extracting %s into %s...", archivePath, dataDir)
	if err := ExtractArchive(archivePath, dataDir); err != nil {
		return err
	}

	if err := os.Remove(archivePath); err != nil {
		log.Printf("⚠️ Failed to remove archive: %v", err)
	}

	log.Println("🎉 Download and extraction complete!")
	return nil
}

// DownloadArchive downloads a file from the given URL with retries
func (d *ArchiveDownloader) DownloadArchive(url, destPath string) error {
	// Check if file already exists
	if _, err := os.Stat(destPath); err == nil {
		log.Printf("✅ Archive already downloaded: %s", destPath)
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < d.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.RetryDelay * time.Duration(attempt))
		}

		err := d.downloadWithProgress(url, destPath)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("⚠️ Download attempt %d failed: %v", attempt+1, err)
	}

	return fmt.Errorf("failed to download archive after %d attempts: %w", d.MaxRetries, lastErr)
}

// downloadWithProgress performs the actual download with a progress bar
func (d *ArchiveDownloader) downloadWithProgress(url, destPath string) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var src io.Reader = resp.Body
	var p *mpb.Progress
	var bar *mpb.Bar
	if resp.ContentLength > 0 {
		p = mpb.New(mpb.WithWidth(80))
		bar = p.AddBar(resp.ContentLength,
			mpb.PrependDecorators(
				decor.Name("📥 "+filepath.Base(destPath)+": "),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
			),
		)
		proxy := bar.ProxyReader(resp.Body)
		defer proxy.Close()
		src = proxy
	}

	_, copyErr := io.Copy(file, src)
	if p != nil {
		if copyErr != nil {
			bar.Abort(true)
		}
		p.Wait()
	}
	if copyErr != nil {
		os.Remove(destPath) // Clean up partial file
		return fmt.Errorf("failed to write file: %w", copyErr)
	}

	return nil
}

// ExtractArchive extracts a tar.gz archive into extractDir
func ExtractArchive(archivePath, extractDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		target, err := securePath(extractDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			out, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				os.Remove(target)
				return fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
			out.Close()
		default:
			log.Printf("⚠️ Skipping unsupported archive entry: %s", header.Name)
		}
	}

	return nil
}

// securePath joins an archive entry name onto the extraction root and
// rejects entries that would land outside it
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, name)
	cleanRoot := filepath.Clean(root)
	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes extraction directory: %s", name)
	}
	return target, nil
}
