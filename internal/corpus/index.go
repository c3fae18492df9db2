package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Passage is one retrieved chunk with its provenance.
type Passage struct {
	Content  string
	FileName string
	Page     int
}

// Embedder turns texts into vectors. *gemini.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the document corpus: chunked page text with embeddings in a
// pgvector-backed table, queried by cosine distance.
type Index struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

func New(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *Index {
	return &Index{pool: pool, embedder: embedder, logger: logger}
}

// Init creates the corpus schema if it does not exist.
func (ix *Index) Init(ctx context.Context) error {
	if _, err := ix.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := ix.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS corpus_chunks (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			page INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(768)
		)`)
	if err != nil {
		return fmt.Errorf("create corpus_chunks: %w", err)
	}
	return nil
}

// Ingest reads page-structured text files, chunks them, embeds each chunk and
// stores the result. Re-ingesting a file replaces its previous chunks.
// Returns the number of chunks added.
func (ix *Index) Ingest(ctx context.Context, paths []string) (int, error) {
	total := 0
	for _, path := range paths {
		n, err := ix.ingestFile(ctx, path)
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", path, err)
		}
		total += n
	}
	return total, nil
}

func (ix *Index) ingestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	fileName := filepath.Base(path)

	type pendingChunk struct {
		content string
		page    int
	}
	var pending []pendingChunk
	for pageIdx, pageText := range SplitPages(string(data)) {
		for _, chunk := range SplitText(pageText) {
			// Pages are numbered from 1 in citations.
			pending = append(pending, pendingChunk{content: chunk, page: pageIdx + 1})
		}
	}
	if len(pending) == 0 {
		ix.logger.Warn("no chunks produced", "file", fileName)
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.content
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(pending) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(pending), len(vecs))
	}

	tx, err := ix.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM corpus_chunks WHERE file_name = $1`, fileName); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}
	for i, p := range pending {
		_, err := tx.Exec(ctx, `
			INSERT INTO corpus_chunks (id, file_name, page, content, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)`,
			uuid.New(), fileName, p.page, p.content, pgVector(vecs[i]),
		)
		if err != nil {
			return 0, fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	ix.logger.Info("file ingested", "file", fileName, "chunks", len(pending))
	return len(pending), nil
}

// Search returns up to k passages ordered by decreasing similarity to the
// query. Zero results is a valid outcome, not an error.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	rows, err := ix.pool.Query(ctx, `
		SELECT content, file_name, page
		FROM corpus_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2`,
		pgVector(vecs[0]), k,
	)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		if err := rows.Scan(&p.Content, &p.FileName, &p.Page); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// pgVector formats a float32 slice as a pgvector-compatible string literal,
// e.g. "[0.1,0.2,0.3]", suitable for a parameterized query.
func pgVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
