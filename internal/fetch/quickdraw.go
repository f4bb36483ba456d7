package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"vision-encoder/internal/checkpoint"
)

// Quickdraw bucket layout. The dataset is public, so listing and
// downloads run without credentials.
const (
	QuickdrawBucket = "quickdraw_dataset"
	QuickdrawPrefix = "full/raw/"
)

// QuickdrawFetcher downloads truncated sketch files from the public bucket
type QuickdrawFetcher struct {
	Bucket        string
	Prefix        string
	DestDir       string
	NumWorkers    int
	TruncateLines int
	MaxFiles      int
	Limiter       *rate.Limiter
	Checkpointer  *checkpoint.Checkpointer
	ClientOptions []option.ClientOption
}

// NewQuickdrawFetcher creates a fetcher with the dataset's defaults
func NewQuickdrawFetcher(destDir string, checkpointer *checkpoint.Checkpointer) *QuickdrawFetcher {
	return &QuickdrawFetcher{
		Bucket:        QuickdrawBucket,
		Prefix:        QuickdrawPrefix,
		DestDir:       destDir,
		NumWorkers:    10,
		TruncateLines: 100,
		Limiter:       rate.NewLimiter(rate.Limit(10), 10),
		Checkpointer:  checkpointer,
	}
}

// Fetch lists the bucket and downloads every pending sketch file
func (f *QuickdrawFetcher) Fetch(ctx context.Context) error {
	if err := os.MkdirAll(f.DestDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	opts := append([]option.ClientOption{option.WithoutAuthentication()}, f.ClientOptions...)
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Println("🔍 Fetching file list...")
	objects, err := f.listObjects(ctx, svc)
	if err != nil {
		return err
	}

	if f.MaxFiles > 0 && len(objects) > f.MaxFiles {
		objects = objects[:f.MaxFiles]
	}

	log.Printf("📊 Found %d .ndjson files to process", len(objects))
	if len(objects) == 0 {
		return nil
	}

	jobs := make(chan *storage.Object, f.NumWorkers*2)
	results := make(chan error, f.NumWorkers*2)

	p := mpb.New(mpb.WithWidth(80))
	bar := p.AddBar(int64(len(objects)),
		mpb.PrependDecorators(
			decor.Name("📥 Downloading: "),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
		),
	)

	var wg sync.WaitGroup
	for w := 1; w <= f.NumWorkers; w++ {
		wg.Add(1)
		go f.downloadWorker(ctx, w, svc, jobs, results, &wg, bar)
	}

	go func() {
		defer close(jobs)
		for _, obj := range objects {
			select {
			case jobs <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	downloaded := 0
	failed := 0
	for err := range results {
		if err != nil {
			failed++
			continue
		}
		downloaded++
	}

	if downloaded+failed < len(objects) {
		bar.Abort(false)
	}
	p.Wait()

	log.Printf("🎉 Downloaded %d files (%d failed)", downloaded, failed)
	return ctx.Err()
}

// listObjects pages through the bucket listing, keeping .ndjson objects
func (f *QuickdrawFetcher) listObjects(ctx context.Context, svc *storage.Service) ([]*storage.Object, error) {
	var objects []*storage.Object
	pageToken := ""

	for {
		call := svc.Objects.List(f.Bucket).Prefix(f.Prefix).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", f.Bucket, err)
		}

		for _, obj := range page.Items {
			if strings.HasSuffix(obj.Name, ".ndjson") {
				objects = append(objects, obj)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return objects, nil
}

// downloadWorker downloads objects from the jobs channel
func (f *QuickdrawFetcher) downloadWorker(ctx context.Context, id int, svc *storage.Service, jobs <-chan *storage.Object, results chan<- error, wg *sync.WaitGroup, bar *mpb.Bar) {
	defer wg.Done()

	for obj := range jobs {
		err := f.downloadObject(ctx, svc, obj)
		if err != nil {
			log.Printf("⚠️ Worker %d: %s: %v", id, path.Base(obj.Name), err)
		}
		results <- err
		bar.Increment()
	}
}

// downloadObject fetches one object and keeps only its first lines
func (f *QuickdrawFetcher) downloadObject(ctx context.Context, svc *storage.Service, obj *storage.Object) error {
	fileName := path.Base(obj.Name)
	destPath := filepath.Join(f.DestDir, fileName)

	// A file is only skipped when both the checkpoint mark and the file
	// exist; a partial file without its mark gets re-downloaded.
	if f.Checkpointer != nil && f.Checkpointer.IsFetched(fileName) {
		if _, err := os.Stat(destPath); err == nil {
			return nil
		}
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	resp, err := svc.Objects.Get(f.Bucket, obj.Name).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", obj.Name, err)
	}
	defer resp.Body.Close()

	if err := writeTruncated(resp.Body, destPath, f.TruncateLines); err != nil {
		return err
	}

	if f.Checkpointer != nil {
		if err := f.Checkpointer.MarkFetched(fileName); err != nil {
			log.Printf("⚠️ Failed to checkpoint %s: %v", fileName, err)
		}
	}

	return nil
}

// writeTruncated copies at most maxLines lines from r into destPath. The
// rest of the stream is left unread, so multi-gigabyte source files cost
// only their first lines.
func writeTruncated(r io.Reader, destPath string, maxLines int) error {
	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	scanner := bufio.NewScanner(r)
	// Raw sketch lines carry full stroke traces and can run long
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	w := bufio.NewWriter(file)
	lines := 0
	for lines < maxLines && scanner.Scan() {
		w.WriteString(scanner.Text())
		w.WriteByte('\n')
		lines++
	}

	if err := scanner.Err(); err != nil {
		file.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to read object stream: %w", err)
	}

	if err := w.Flush(); err != nil {
		file.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}
