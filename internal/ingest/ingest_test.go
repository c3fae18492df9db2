package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

type fakeCorpus struct {
	paths []string
	err   error
}

func (f *fakeCorpus) Ingest(_ context.Context, paths []string) (int, error) {
	f.paths = append(f.paths, paths...)
	return len(paths) * 2, f.err
}

type fakeDataset struct {
	paths []string
	err   error
}

func (f *fakeDataset) IngestCSV(_ context.Context, path string) (int, error) {
	f.paths = append(f.paths, path)
	return 10, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_SortsFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"handbook.txt", "guide.TXT", "social.csv", "notes.md", "image.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	corpus := &fakeCorpus{}
	dataset := &fakeDataset{}
	report, err := NewRunner(corpus, dataset, dir, discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	sort.Strings(corpus.paths)
	if len(corpus.paths) != 2 {
		t.Fatalf("expected 2 txt files, got %v", corpus.paths)
	}
	if filepath.Base(corpus.paths[0]) != "guide.TXT" || filepath.Base(corpus.paths[1]) != "handbook.txt" {
		t.Errorf("unexpected corpus paths: %v", corpus.paths)
	}
	if len(dataset.paths) != 1 || filepath.Base(dataset.paths[0]) != "social.csv" {
		t.Errorf("unexpected dataset paths: %v", dataset.paths)
	}
	if report.DocumentChunks != 4 || report.DatasetRows != 10 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestRun_MissingDirIsNotAnError(t *testing.T) {
	runner := NewRunner(&fakeCorpus{}, &fakeDataset{}, "/nonexistent/omni-data", discard())
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for missing dir, got %v", err)
	}
	if report != (Report{}) {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRun_EmptyDir(t *testing.T) {
	corpus := &fakeCorpus{}
	dataset := &fakeDataset{}
	report, err := NewRunner(corpus, dataset, t.TempDir(), discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(corpus.paths) != 0 || len(dataset.paths) != 0 {
		t.Error("nothing should be ingested from an empty dir")
	}
	if report != (Report{}) {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRun_CorpusErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	corpus := &fakeCorpus{err: fmt.Errorf("embed service down")}
	_, err := NewRunner(corpus, &fakeDataset{}, dir, discard()).Run(context.Background())
	if err == nil {
		t.Fatal("expected error from corpus ingest")
	}
}
