package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Table is the single queryable table the translator knows about.
const Table = "social_listening"

// Result is the outcome of a read-only query: ordered column names plus one
// map per row.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Store owns the tabular dataset and executes generated queries against it.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// columnTypes fixes the known schema. Keys are the snake_case column names
// the translator prompt describes.
var columnTypes = map[string]string{
	"product_model_name":  "TEXT",
	"product_category":    "TEXT",
	"product_price":       "DOUBLE PRECISION",
	"retailer_name":       "TEXT",
	"retailer_zip":        "DOUBLE PRECISION",
	"retailer_city":       "TEXT",
	"retailer_state":      "TEXT",
	"product_on_sale":     "TEXT",
	"manufacturer_name":   "TEXT",
	"manufacturer_rebate": "TEXT",
	"user_id":             "TEXT",
	"user_age":            "DOUBLE PRECISION",
	"user_gender":         "TEXT",
	"user_occupation":     "TEXT",
	"review_rating":       "DOUBLE PRECISION",
	"review_date":         "TEXT",
	"review_text":         "TEXT",
	"sentiment":           "TEXT",
	"problem":             "TEXT",
	"about":               "TEXT",
	"keywords":            "TEXT",
}

var columnOrder = []string{
	"product_model_name", "product_category", "product_price", "retailer_name",
	"retailer_zip", "retailer_city", "retailer_state", "product_on_sale",
	"manufacturer_name", "manufacturer_rebate", "user_id", "user_age",
	"user_gender", "user_occupation", "review_rating", "review_date",
	"review_text", "sentiment", "problem", "about", "keywords",
}

// Init creates the dataset table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	cols := make([]string, len(columnOrder))
	for i, name := range columnOrder {
		cols[i] = name + " " + columnTypes[name]
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)", Table, strings.Join(cols, ", "),
	))
	if err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	return nil
}

// IngestCSV replaces the dataset table contents with the rows of the given
// CSV file. Headers may be CamelCase; they are normalized to the known
// snake_case column names. Returns the number of rows inserted.
func (s *Store) IngestCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 1 {
		return 0, fmt.Errorf("csv has no header row")
	}

	header := records[0]
	cols := make([]string, 0, len(header))
	keep := make([]int, 0, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, known := columnTypes[name]; !known {
			s.logger.Warn("ignoring unknown csv column", "column", h)
			continue
		}
		cols = append(cols, name)
		keep = append(keep, i)
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("no recognized columns in csv header")
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+Table); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	batch := &pgx.Batch{}
	for _, record := range records[1:] {
		args := make([]any, len(cols))
		for j, srcIdx := range keep {
			if srcIdx >= len(record) {
				args[j] = nil
				continue
			}
			args[j] = cellValue(cols[j], record[srcIdx])
		}
		batch.Queue(insert, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	rows := len(records) - 1
	s.logger.Info("dataset ingested", "path", path, "rows", rows)
	return rows, nil
}

// Execute runs a validated query inside a read-only transaction. The prefix
// gate upstream is a narrow syntactic check; the access mode here guarantees
// nothing can mutate even if a statement slips past it.
func (s *Store) Execute(ctx context.Context, query string) (Result, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return Result{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var res Result
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[res.Columns[i]] = v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	rows.Close()

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit read-only tx: %w", err)
	}
	return res, nil
}

func cellValue(column, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if columnTypes[column] == "DOUBLE PRECISION" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return f
	}
	return raw
}

// NormalizeColumn maps a CSV header like "ProductModelName" or "UserID" to
// its snake_case column name.
func NormalizeColumn(header string) string {
	header = strings.TrimSpace(header)
	var sb strings.Builder
	runes := []rune(header)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_' {
			sb.WriteRune('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
