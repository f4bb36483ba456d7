package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/api/option"

	"vision-encoder/internal/checkpoint"
)

func TestWriteTruncated(t *testing.T) {
	t.Run("long input cut to limit", func(t *testing.T) {
		var sb strings.Builder
		for i := 1; i <= 250; i++ {
			fmt.Fprintf(&sb, "sketch %d\n", i)
		}

		dest := filepath.Join(t.TempDir(), "cat.ndjson")
		if err := writeTruncated(strings.NewReader(sb.String()), dest, 100); err != nil {
			t.Fatalf("writeTruncated failed: %v", err)
		}

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		if len(lines) != 100 {
			t.Errorf("expected 100 lines, got %d", len(lines))
		}
		if lines[0] != "sketch 1" || lines[99] != "sketch 100" {
			t.Errorf("unexpected boundary lines: %q ... %q", lines[0], lines[99])
		}
	})

	t.Run("short input unchanged", func(t *testing.T) {
		input := "one\ntwo\nthree\n"
		dest := filepath.Join(t.TempDir(), "dog.ndjson")
		if err := writeTruncated(strings.NewReader(input), dest, 100); err != nil {
			t.Fatalf("writeTruncated failed: %v", err)
		}

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if string(data) != input {
			t.Errorf("expected input to pass through unchanged, got %q", data)
		}
	})
}

// fakeBucket serves a two-page object listing and raw object bodies the
// way the JSON storage API does.
func fakeBucket(t *testing.T, catBody, dogBody string, bodyHits *int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/b/quickdraw_dataset/o" && r.URL.Query().Get("pageToken") == "":
			fmt.Fprint(w, `{"items":[{"name":"full/raw/cat.ndjson"},{"name":"full/raw/readme.txt"}],"nextPageToken":"page-2"}`)
		case r.URL.Path == "/b/quickdraw_dataset/o":
			fmt.Fprint(w, `{"items":[{"name":"full/raw/dog.ndjson"}]}`)
		case r.URL.Path == "/b/quickdraw_dataset/o/full/raw/cat.ndjson":
			atomic.AddInt64(bodyHits, 1)
			fmt.Fprint(w, catBody)
		case r.URL.Path == "/b/quickdraw_dataset/o/full/raw/dog.ndjson":
			atomic.AddInt64(bodyHits, 1)
			fmt.Fprint(w, dogBody)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestQuickdrawFetch(t *testing.T) {
	var catLines strings.Builder
	for i := 1; i <= 150; i++ {
		fmt.Fprintf(&catLines, `{"word":"cat","sketch":%d}`+"\n", i)
	}
	dogBody := `{"word":"dog","sketch":1}` + "\n" + `{"word":"dog","sketch":2}` + "\n"

	var bodyHits int64
	server := fakeBucket(t, catLines.String(), dogBody, &bodyHits)
	defer server.Close()

	destDir := t.TempDir()
	checkpointer, err := checkpoint.NewCheckpointer(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("failed to open checkpointer: %v", err)
	}
	t.Cleanup(func() { checkpointer.Close() })

	fetcher := NewQuickdrawFetcher(destDir, checkpointer)
	fetcher.ClientOptions = []option.ClientOption{option.WithEndpoint(server.URL + "/")}

	if err := fetcher.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	// cat.ndjson is truncated to the first 100 lines
	catData, err := os.ReadFile(filepath.Join(destDir, "cat.ndjson"))
	if err != nil {
		t.Fatalf("failed to read cat.ndjson: %v", err)
	}
	if got := strings.Count(string(catData), "\n"); got != 100 {
		t.Errorf("expected 100 lines in cat.ndjson, got %d", got)
	}
	if !strings.HasPrefix(string(catData), `{"word":"cat","sketch":1}`) {
		t.Errorf("unexpected first line: %q", strings.SplitN(string(catData), "\n", 2)[0])
	}

	// dog.ndjson is short enough to pass through unchanged
	dogData, err := os.ReadFile(filepath.Join(destDir, "dog.ndjson"))
	if err != nil {
		t.Fatalf("failed to read dog.ndjson: %v", err)
	}
	if string(dogData) != dogBody {
		t.Errorf("expected dog.ndjson unchanged, got %q", dogData)
	}

	// the non-ndjson object is ignored
	if _, err := os.Stat(filepath.Join(destDir, "readme.txt")); !os.IsNotExist(err) {
		t.Errorf("expected readme.txt to be skipped")
	}

	if !checkpointer.IsFetched("cat.ndjson") || !checkpointer.IsFetched("dog.ndjson") {
		t.Errorf("expected downloaded files to be checkpointed")
	}
	if got := atomic.LoadInt64(&bodyHits); got != 2 {
		t.Errorf("expected 2 object downloads, got %d", got)
	}

	// A rerun sees the checkpoint marks and downloads nothing
	if err := fetcher.Fetch(context.Background()); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if got := atomic.LoadInt64(&bodyHits); got != 2 {
		t.Errorf("expected rerun to skip downloads, got %d total", got)
	}
}

func TestQuickdrawFetchMaxFiles(t *testing.T) {
	var bodyHits int64
	server := fakeBucket(t, "cat\n", "dog\n", &bodyHits)
	defer server.Close()

	destDir := t.TempDir()
	fetcher := NewQuickdrawFetcher(destDir, nil)
	fetcher.MaxFiles = 1
	fetcher.ClientOptions = []option.ClientOption{option.WithEndpoint(server.URL + "/")}

	if err := fetcher.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if got := atomic.LoadInt64(&bodyHits); got != 1 {
		t.Errorf("expected 1 download with max-files=1, got %d", got)
	}
}
