package fetch

import (
	"archive/tar"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestDownloader() *ArchiveDownloader {
	d := NewArchiveDownloader()
	d.RetryDelay = time.Millisecond
	return d
}

func TestDownloadArchiveRetries(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("archive-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "archive.tgz")
	if err := newTestDownloader().DownloadArchive(server.URL, dest); err != nil {
		t.Fatalf("expected download to succeed after retries: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(data) != "archive-bytes" {
		t.Errorf("expected archive-bytes, got %q", data)
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}

func TestDownloadArchiveGivesUp(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "archive.tgz")
	if err := newTestDownloader().DownloadArchive(server.URL, dest); err == nil {
		t.Fatal("expected download to fail")
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("expected no file after failed download")
	}
}

func TestDownloadArchiveSkipsExisting(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "archive.tgz")
	if err := os.WriteFile(dest, []byte("already here"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	if err := newTestDownloader().DownloadArchive(server.URL, dest); err != nil {
		t.Fatalf("expected existing file to short-circuit: %v", err)
	}
	if hits != 0 {
		t.Errorf("expected no requests for an existing file, got %d", hits)
	}
}

func TestDownloadArchiveCleansPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more bytes than we send so the client sees a
		// truncated body.
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("short"))
	}))
	defer server.Close()

	d := newTestDownloader()
	d.MaxRetries = 1

	dest := filepath.Join(t.TempDir(), "archive.tgz")
	if err := d.DownloadArchive(server.URL, dest); err == nil {
		t.Fatal("expected truncated download to fail")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("expected partial file to be removed")
	}
}

func writeFixtureArchive(t *testing.T, archivePath string, headers []tar.Header, contents map[string]string) {
	t.Helper()

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for i := range headers {
		header := headers[i]
		content := contents[header.Name]
		header.Size = int64(len(content))
		if err := tw.WriteHeader(&header); err != nil {
			t.Fatalf("failed to write header %s: %v", header.Name, err)
		}
		if content != "" {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("failed to write entry %s: %v", header.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "fixture.tgz")

	writeFixtureArchive(t, archivePath,
		[]tar.Header{
			{Name: "train/", Mode: 0755, Typeflag: tar.TypeDir},
			{Name: "train/sample.inkml", Mode: 0644, Typeflag: tar.TypeReg},
			{Name: "valid/other.inkml", Mode: 0644, Typeflag: tar.TypeReg},
		},
		map[string]string{
			"train/sample.inkml": "<ink>trace one</ink>",
			"valid/other.inkml":  "<ink>trace two</ink>",
		})

	extractDir := filepath.Join(dir, "out")
	if err := ExtractArchive(archivePath, extractDir); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(extractDir, "train", "sample.inkml"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(data) != "<ink>trace one</ink>" {
		t.Errorf("unexpected extracted content: %q", data)
	}

	// Parent directories are created even without an explicit dir entry
	if _, err := os.Stat(filepath.Join(extractDir, "valid", "other.inkml")); err != nil {
		t.Errorf("expected nested file to be extracted: %v", err)
	}
}

func TestExtractArchiveRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tgz")

	writeFixtureArchive(t, archivePath,
		[]tar.Header{
			{Name: "../escape.txt", Mode: 0644, Typeflag: tar.TypeReg},
		},
		map[string]string{
			"../escape.txt": "should never land",
		})

	extractDir := filepath.Join(dir, "out")
	err := ExtractArchive(archivePath, extractDir)
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("expected traversal rejection, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Errorf("traversal entry was written outside the extraction dir")
	}
}
