package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// CorpusIngestor loads page-structured text files into the document index.
type CorpusIngestor interface {
	Ingest(ctx context.Context, paths []string) (int, error)
}

// DatasetIngestor loads a CSV file into the tabular store.
type DatasetIngestor interface {
	IngestCSV(ctx context.Context, path string) (int, error)
}

// Report summarizes one ingestion run.
type Report struct {
	DocumentChunks int `json:"document_chunks"`
	DatasetRows    int `json:"dataset_rows"`
}

// Runner scans a data directory and loads .txt files into the corpus and
// .csv files into the dataset.
type Runner struct {
	corpus  CorpusIngestor
	dataset DatasetIngestor
	dataDir string
	logger  *slog.Logger
}

func NewRunner(corpus CorpusIngestor, dataset DatasetIngestor, dataDir string, logger *slog.Logger) *Runner {
	return &Runner{corpus: corpus, dataset: dataset, dataDir: dataDir, logger: logger}
}

// Run ingests everything under the data directory. A missing directory is
// not an error; it just means there is nothing to load yet.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("data directory missing, nothing to ingest", "dir", r.dataDir)
			return Report{}, nil
		}
		return Report{}, fmt.Errorf("read data dir: %w", err)
	}

	var txt, csv []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(r.dataDir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt":
			txt = append(txt, path)
		case ".csv":
			csv = append(csv, path)
		}
	}

	var report Report
	if len(txt) > 0 {
		n, err := r.corpus.Ingest(ctx, txt)
		if err != nil {
			return report, fmt.Errorf("corpus ingest: %w", err)
		}
		report.DocumentChunks = n
	}
	for _, path := range csv {
		n, err := r.dataset.IngestCSV(ctx, path)
		if err != nil {
			return report, fmt.Errorf("dataset ingest: %w", err)
		}
		report.DatasetRows += n
	}

	r.logger.Info("ingestion complete",
		"dir", r.dataDir,
		"document_chunks", report.DocumentChunks,
		"dataset_rows", report.DatasetRows,
	)
	return report, nil
}
